// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/arxiv"
	"github.com/pdiddy/slr-engine/internal/dedup"
	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/internal/pipeline"
	"github.com/pdiddy/slr-engine/internal/query"
	"github.com/pdiddy/slr-engine/internal/secrets"
	"github.com/pdiddy/slr-engine/internal/session"
	"github.com/pdiddy/slr-engine/internal/store"
)

func loadSession(cmd *cobra.Command) (session.Session, error) {
	path, _ := cmd.Flags().GetString("session")
	return session.Load(path)
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Store.Path)
}

func newArxivClient() (*arxiv.Client, error) {
	return arxiv.NewClient(cfg.HTTP, cfg.Arxiv, logger.Named("arxiv"))
}

// newCompleter builds the configured model client. The API key and, for
// OpenAI-compatible servers, the base URL fall back to .secrets/ and the
// provider's environment variables.
func newCompleter() (llm.Completer, error) {
	c := cfg.LLM
	if c.APIKey == "" {
		c.APIKey = loadedSecrets.ModelAPIKey(c.Provider)
	}
	if c.BaseURL == "" && strings.HasPrefix(strings.ToLower(c.Provider), llm.ProviderOpenAI) {
		c.BaseURL = loadedSecrets.Get(secrets.OpenAIBaseURL)
	}
	logger.Debug("model client", zap.String("provider", c.Provider), zap.String("model", c.Model))
	return llm.New(c, logger.Named("llm"))
}

func fetchOptions() (arxiv.FetchOptions, error) {
	sortBy, err := arxiv.ParseSortBy(cfg.Arxiv.SortBy)
	if err != nil {
		return arxiv.FetchOptions{}, err
	}
	return arxiv.FetchOptions{
		PageSize: cfg.Arxiv.PageSize,
		TotalCap: cfg.Arxiv.TotalCap,
		Delay:    cfg.Arxiv.Delay,
		SortBy:   sortBy,
		OnPage: func(start, rows, collected int) {
			logger.Info("fetched page",
				zap.Int("start", start),
				zap.Int("rows", rows),
				zap.Int("collected", collected),
			)
		},
	}, nil
}

// addQueryFlags registers the flags shared by commands that build a query.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("broad", false, "build the broad-recall query instead of the strict one")
	cmd.Flags().String("boolean", "", "use this Boolean query instead of building one from the session")
	cmd.Flags().StringSlice("fields", nil, "target fields: title, abstract, author, category, all (default from arxiv.fields)")
}

// queryOptions reads the query flags into pipeline options, with the
// dedup and screen settings from the config.
func queryOptions(cmd *cobra.Command) (pipeline.Options, error) {
	broad, _ := cmd.Flags().GetBool("broad")
	boolean, _ := cmd.Flags().GetString("boolean")
	fieldNames, _ := cmd.Flags().GetStringSlice("fields")
	if len(fieldNames) == 0 {
		fieldNames = cfg.Arxiv.Fields
	}
	fields, err := query.ParseFields(fieldNames)
	if err != nil {
		return pipeline.Options{}, err
	}
	fetch, err := fetchOptions()
	if err != nil {
		return pipeline.Options{}, err
	}
	key, err := dedup.ParseKey(cfg.Dedup.Key)
	if err != nil {
		return pipeline.Options{}, err
	}
	rule, err := dedup.ParseRule(cfg.Dedup.Rule)
	if err != nil {
		return pipeline.Options{}, err
	}

	kind := query.KindStrict
	if broad {
		kind = query.KindBroad
	}
	return pipeline.Options{
		Kind:      kind,
		Boolean:   boolean,
		Fields:    fields,
		Fetch:     fetch,
		DedupKey:  key,
		DedupRule: rule,
		Screen:    cfg.Screen,
		Threshold: cfg.Quality.Threshold,
	}, nil
}

// withOutput calls fn with stdout when path is empty or "-", and with a
// newly created file otherwise.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

// thresholdFlag returns --threshold when given, else quality.threshold
// from the config. Nil leaves the choice to quality.EffectiveThreshold.
func thresholdFlag(cmd *cobra.Command) *float64 {
	if cmd.Flags().Changed("threshold") {
		v, _ := cmd.Flags().GetFloat64("threshold")
		return &v
	}
	return cfg.Quality.Threshold
}

func runFlag(cmd *cobra.Command) {
	cmd.Flags().String("run", "", "run id (default: latest run)")
}

func resolveRun(cmd *cobra.Command, st *store.Store) (store.Run, error) {
	id, _ := cmd.Flags().GetString("run")
	run, err := st.ResolveRun(cmd.Context(), id)
	if err != nil {
		return run, fmt.Errorf("resolving run %q: %w", id, err)
	}
	return run, nil
}
