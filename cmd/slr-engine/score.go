// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/export"
	"github.com/pdiddy/slr-engine/internal/quality"
	"github.com/pdiddy/slr-engine/internal/store"
	"github.com/pdiddy/slr-engine/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rate records against the session's quality checklist",
	Long: `Score asks the model to answer every checklist question (Y, P, or N) for
each record, recomputes the weighted total locally, and decides inclusion
against the threshold. By default it scores the AI-included records, or the
rule-included records when the run was not classified.

--rebucket applies a new --threshold to the stored scores without calling
the model.`,
	RunE: runScore,
}

func init() {
	runFlag(scoreCmd)
	scoreCmd.Flags().String("from", "", "stage to score (default: ai_include, else included)")
	scoreCmd.Flags().Float64("threshold", 0, "minimum total score for inclusion (default: checklist cutoff, else half the maximum)")
	scoreCmd.Flags().Bool("rebucket", false, "re-derive decisions from stored scores for --threshold")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}
	checklist := sess.QualityChecklist()
	if err := checklist.Validate(); err != nil {
		return fmt.Errorf("session %s: %w", sess.Topic, err)
	}
	threshold := quality.EffectiveThreshold(checklist, thresholdFlag(cmd))
	if top := checklist.MaxPossible(); threshold < 0 || threshold > top {
		return fmt.Errorf("threshold %g outside [0, %g]", threshold, top)
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

	if rebucket, _ := cmd.Flags().GetBool("rebucket"); rebucket {
		scored, err := st.Scores(ctx, run.ID)
		if err != nil {
			return err
		}
		printBuckets(scored, threshold, checklist.MaxPossible())
		return nil
	}

	input, err := scoreInput(cmd, st, run.ID)
	if err != nil {
		return err
	}
	model, err := newCompleter()
	if err != nil {
		return err
	}
	scorer := quality.NewScorer(model, logger.Named("quality"))
	scorer.Mapping = cfg.Quality.ScoreMapping

	res, scoreErr := scorer.Score(ctx, input, checklist, &threshold)
	if res == nil {
		return scoreErr
	}
	// Retried records join the scores saved before the failure.
	from, _ := cmd.Flags().GetString("from")
	resume := store.Stage(from) == store.StageQAFailed
	saveScores := st.SaveScores
	if resume {
		saveScores = st.MergeScores
	}
	if err := errors.Join(
		saveScores(ctx, run.ID, res.Scored),
		st.SaveRecords(ctx, run.ID, store.StageQAFailed, res.Failed),
	); err != nil {
		return errors.Join(scoreErr, err)
	}

	export.WriteScoreTable(os.Stdout, res.Scored, res.MaxPossible)
	all := res.Scored
	if resume {
		if all, err = st.Scores(ctx, run.ID); err != nil {
			return errors.Join(scoreErr, err)
		}
	}
	printBuckets(all, res.Threshold, res.MaxPossible)
	if len(res.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "%d record(s) failed scoring; rerun with --from %s.\n", len(res.Failed), store.StageQAFailed)
	}
	return scoreErr
}

func scoreInput(cmd *cobra.Command, st *store.Store, runID string) ([]types.Record, error) {
	ctx := cmd.Context()
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		return st.Records(ctx, runID, store.Stage(from))
	}
	recs, err := st.Records(ctx, runID, store.StageAIInclude)
	if err != nil || len(recs) > 0 {
		return recs, err
	}
	return st.Records(ctx, runID, store.StageIncluded)
}

func printBuckets(scored []types.ScoredRecord, threshold, maxPossible float64) {
	include, exclude, unsure := quality.Buckets(scored, threshold)
	fmt.Printf("Threshold %g of %g\n", threshold, maxPossible)
	fmt.Printf("  include:  %d\n", len(include))
	fmt.Printf("  exclude:  %d\n", len(exclude))
	fmt.Printf("  unsure:   %d\n", len(unsure))
}
