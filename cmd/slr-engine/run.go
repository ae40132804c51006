// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/classify"
	"github.com/pdiddy/slr-engine/internal/pipeline"
	"github.com/pdiddy/slr-engine/internal/quality"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage from query to quality score",
	Long: `Run builds the query, gathers records, deduplicates and rule-screens them,
and, unless --no-llm is given, classifies and scores the survivors. Every
stage's records are stored under a new run. A failing stage stops the run;
what earlier stages produced stays in the store.`,
	RunE: runPipeline,
}

func init() {
	addQueryFlags(runCmd)
	runCmd.Flags().Bool("no-llm", false, "stop after the rule screen")
	runCmd.Flags().Float64("threshold", 0, "minimum total quality score for inclusion")
	runCmd.Flags().Int("cap", 0, "maximum records to collect (default from arxiv.total_cap)")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}
	opts, err := queryOptions(cmd)
	if err != nil {
		return err
	}
	opts.Threshold = thresholdFlag(cmd)
	if cmd.Flags().Changed("cap") {
		opts.Fetch.TotalCap, _ = cmd.Flags().GetInt("cap")
	}

	client, err := newArxivClient()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p := &pipeline.Pipeline{
		Fetcher: client,
		Store:   st,
		Log:     logger.Named("pipeline"),
	}
	if noLLM, _ := cmd.Flags().GetBool("no-llm"); !noLLM {
		model, err := newCompleter()
		if err != nil {
			return err
		}
		p.Classifier = &classify.Screener{LLM: model, BatchSize: cfg.LLM.BatchSize, Log: logger.Named("classify")}
		scorer := quality.NewScorer(model, logger.Named("quality"))
		scorer.Mapping = cfg.Quality.ScoreMapping
		p.Scorer = scorer
	}

	rep, runErr := p.Run(cmd.Context(), sess, opts)
	if rep != nil {
		printReport(rep)
	}
	return runErr
}

func printReport(rep *pipeline.Report) {
	if rep.RunID != "" {
		fmt.Printf("Run %s\n", rep.RunID)
	}
	if rep.Query.Query != "" {
		fmt.Printf("Query (%s): %s\n\n", rep.Query.Kind, rep.Query.Query)
	}
	fmt.Printf("%-10s  %-8s  %6s  %6s  %s\n", "Stage", "Outcome", "In", "Out", "Took")
	for _, s := range rep.Stages {
		fmt.Printf("%-10s  %-8s  %6d  %6d  %s\n", s.Name, s.Outcome, s.In, s.Out, s.Duration.Round(time.Millisecond))
		if s.Err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", s.Name, s.Err)
		}
	}
	fmt.Printf("\n%d candidate(s) after the last completed stage\n", len(rep.Final()))
}
