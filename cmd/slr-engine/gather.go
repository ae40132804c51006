// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/arxiv"
	"github.com/pdiddy/slr-engine/internal/export"
	"github.com/pdiddy/slr-engine/internal/pipeline"
	"github.com/pdiddy/slr-engine/internal/query"
	"github.com/pdiddy/slr-engine/internal/store"
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Fetch arXiv records matching the review query",
	Long: `Gather pages through the arXiv API for the session's query (or a saved
query bundle) and stores the raw records under a new run. Pages are
requested with a pause between calls and stop at the configured cap.

If a page fails, the records collected so far are kept and the command
prints how to resume: --run appends to that run's raw records, starting
after the ones already stored unless --start says otherwise. --preview
fetches a single page and prints it without creating a run.`,
	RunE: runGather,
}

func init() {
	addQueryFlags(gatherCmd)
	gatherCmd.Flags().String("bundle", "", "rerun the arXiv query saved in this query bundle")
	gatherCmd.Flags().Bool("preview", false, "fetch one page and print it without storing")
	gatherCmd.Flags().String("run", "", "append to this run's raw records instead of creating a run")
	gatherCmd.Flags().Int("start", 0, "offset of the first request (default: 0, or the stored raw count with --run)")
	gatherCmd.Flags().Int("cap", 0, "maximum records to collect (default from arxiv.total_cap)")
	gatherCmd.Flags().String("format", "table", "preview output format: table, json, csv, csl")

	rootCmd.AddCommand(gatherCmd)
}

func runGather(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}
	opts, err := queryOptions(cmd)
	if err != nil {
		return err
	}

	var backendQuery string
	if path, _ := cmd.Flags().GetString("bundle"); path != "" {
		b, err := query.ReadBundle(path)
		if err != nil {
			return err
		}
		backendQuery = b.Query
	} else {
		q, err := pipeline.BuildQuery(sess, opts)
		if err != nil {
			return err
		}
		backendQuery, err = query.Expand(q, opts.Fields, query.ArxivBackend{})
		if err != nil {
			return err
		}
	}

	client, err := newArxivClient()
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetInt("start")

	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		page, err := client.FetchPage(ctx, backendQuery, start, opts.Fetch.PageSize, opts.Fetch.SortBy)
		if err != nil {
			return err
		}
		formatName, _ := cmd.Flags().GetString("format")
		f, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Query: %s\nTotal results reported: %d\n", backendQuery, page.TotalResults)
		return export.Records(os.Stdout, f, page.Records)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	fetch := opts.Fetch
	if cmd.Flags().Changed("cap") {
		fetch.TotalCap, _ = cmd.Flags().GetInt("cap")
	}

	runID, _ := cmd.Flags().GetString("run")
	run, have, err := gatherRun(cmd, st, runID, sess.Topic, backendQuery, sess.Version)
	if err != nil {
		return err
	}
	if run.Query != backendQuery {
		logger.Warn("resuming with the run's stored query",
			zap.String("run", run.ID),
			zap.String("stored", run.Query),
			zap.String("built", backendQuery),
		)
		backendQuery = run.Query
	}
	fetch.Start = have
	if cmd.Flags().Changed("start") {
		fetch.Start = start
	}
	if fetch.TotalCap > 0 {
		if have >= fetch.TotalCap {
			fmt.Printf("Run %s already holds %d raw records (cap %d).\n", run.ID, have, fetch.TotalCap)
			return nil
		}
		fetch.TotalCap -= have
	}
	logger.Info("gathering",
		zap.String("run", run.ID),
		zap.String("query", backendQuery),
		zap.Int("start", fetch.Start),
		zap.Int("stored", have),
	)

	recs, fetchErr := client.FetchAll(ctx, backendQuery, fetch)
	if err := st.AppendRecords(ctx, run.ID, store.StageRaw, recs); err != nil {
		return err
	}
	fmt.Printf("Run %s: %d raw records (%d new)\n", run.ID, have+len(recs), len(recs))

	if pe, ok := arxiv.IsPageError(fetchErr); ok {
		fmt.Fprintf(os.Stderr, "Fetch stopped at offset %d; rerun with --run %s --start %d to continue.\n", pe.Start, run.ID, pe.Start)
	}
	return fetchErr
}

// gatherRun returns the run to gather into and how many raw records it
// already holds. An empty id creates a run for backendQuery.
func gatherRun(cmd *cobra.Command, st *store.Store, id, topic, backendQuery string, version int) (store.Run, int, error) {
	ctx := cmd.Context()
	if id == "" {
		run, err := st.CreateRun(ctx, topic, backendQuery, version)
		return run, 0, err
	}
	run, err := st.GetRun(ctx, id)
	if err != nil {
		return run, 0, err
	}
	counts, err := st.StageCounts(ctx, run.ID)
	if err != nil {
		return run, 0, err
	}
	return run, counts[store.StageRaw], nil
}
