// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/arxiv"
	"github.com/pdiddy/slr-engine/internal/pipeline"
	"github.com/pdiddy/slr-engine/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Build the Boolean search query from the session's facet terms",
	Long: `Query builds the strict (AND across facets) or broad-recall (topic AND
any curated term) Boolean query from the session file, expands it into
arXiv field syntax, and prints both. With --out the query bundle is saved
as YAML or JSON (by extension) so gather can rerun it later.`,
	RunE: runQuery,
}

func init() {
	addQueryFlags(queryCmd)
	queryCmd.Flags().String("out", "", "write the query bundle to this file (.yaml or .json)")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}
	opts, err := queryOptions(cmd)
	if err != nil {
		return err
	}
	q, err := pipeline.BuildQuery(sess, opts)
	if err != nil {
		return err
	}
	b, err := query.NewBundle(sess.Topic, sess.Terms(), q, opts.Fields, query.ArxivBackend{})
	if err != nil {
		return err
	}
	b.URL = arxiv.BuildURL(b.Query, 0, opts.Fetch.PageSize, opts.Fetch.SortBy)

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := query.WriteBundle(out, b); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
		return nil
	}

	fmt.Printf("Kind:    %s\n", b.Kind)
	fmt.Printf("Boolean: %s\n", b.Boolean)
	names := make([]string, 0, len(b.Parts))
	for name := range b.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-13s %s\n", name+":", strings.Join(b.Parts[name], " OR "))
	}
	fmt.Printf("arXiv:   %s\n", b.Query)
	fmt.Printf("URL:     %s\n", b.URL)
	return nil
}
