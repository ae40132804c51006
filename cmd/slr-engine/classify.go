// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/classify"
	"github.com/pdiddy/slr-engine/internal/store"
	"github.com/pdiddy/slr-engine/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Screen rule-included records with a language model",
	Long: `Classify sends the run's rule-included records to the configured model in
batches, together with the session's research questions and inclusion and
exclusion criteria, and sorts them into include, exclude, and unsure.

A model failure stops the command. Decisions made so far are stored and the
unprocessed records are kept in the ai_pending set; --from ai_pending
classifies only those.`,
	RunE: runClassify,
}

func init() {
	runFlag(classifyCmd)
	classifyCmd.Flags().String("from", string(store.StageIncluded), "stage to classify (included or ai_pending)")
	classifyCmd.Flags().Int("batch-size", 0, "papers per model call (default from llm.batch_size)")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	batchSize := cfg.LLM.BatchSize
	if cmd.Flags().Changed("batch-size") {
		batchSize, _ = cmd.Flags().GetInt("batch-size")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	run, err := resolveRun(cmd, st)
	if err != nil {
		return err
	}
	input, err := st.Records(ctx, run.ID, store.Stage(from))
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("run %s has no %s records: run screen first", run.ID, from)
	}

	var screener *classify.Screener
	if sess.Policy.IsEmpty() {
		// No model is needed; Classify marks everything unsure.
		screener = &classify.Screener{Log: logger.Named("classify")}
	} else {
		model, err := newCompleter()
		if err != nil {
			return err
		}
		screener = &classify.Screener{LLM: model, BatchSize: batchSize, Log: logger.Named("classify")}
	}

	res, classifyErr := screener.Classify(ctx, input, sess.Policy)
	if res == nil {
		return classifyErr
	}

	// Resuming from ai_pending adds to the earlier decisions.
	resume := store.Stage(from) == store.StageAIPending
	if err := errors.Join(
		saveMerged(cmd, st, run.ID, store.StageAIInclude, res.Included, resume),
		saveMerged(cmd, st, run.ID, store.StageAIExclude, res.Excluded, resume),
		saveMerged(cmd, st, run.ID, store.StageAIUnsure, res.Unsure, resume),
		st.SaveRecords(ctx, run.ID, store.StageAIPending, res.Remaining),
	); err != nil {
		return errors.Join(classifyErr, err)
	}

	fmt.Printf("Run %s: %d classified\n", run.ID, len(input)-len(res.Remaining))
	fmt.Printf("  include:  %d\n", len(res.Included))
	fmt.Printf("  exclude:  %d\n", len(res.Excluded))
	fmt.Printf("  unsure:   %d", len(res.Unsure))
	if n := res.Unparsed(); n > 0 {
		fmt.Printf(" (%d from unparsable model output)", n)
	}
	fmt.Println()
	if len(res.Remaining) > 0 {
		fmt.Fprintf(os.Stderr, "%d record(s) not classified; rerun with --from %s.\n", len(res.Remaining), store.StageAIPending)
	}
	return classifyErr
}

// saveMerged stores recs as stage, appended to the stage's existing
// records when merge is set.
func saveMerged(cmd *cobra.Command, st *store.Store, runID string, stage store.Stage, recs []types.Record, merge bool) error {
	if merge {
		return st.AppendRecords(cmd.Context(), runID, stage, recs)
	}
	return st.SaveRecords(cmd.Context(), runID, stage, recs)
}
