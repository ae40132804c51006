// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/dedup"
	"github.com/pdiddy/slr-engine/internal/pipeline"
	"github.com/pdiddy/slr-engine/internal/screen"
	"github.com/pdiddy/slr-engine/internal/store"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Deduplicate a run's raw records and apply the rule filters",
	Long: `Screen removes duplicate records (by normalized title, external id, or
title and year) and then applies the rule screener: the policy's year
window, the category domain prefix, and the session's category allow-list.
Excluded records keep the reason they failed.`,
	RunE: runScreen,
}

func init() {
	runFlag(screenCmd)
	screenCmd.Flags().String("key", "", "dedup key: normalized_title, external_id, title_year (default from dedup.key)")
	screenCmd.Flags().String("rule", "", "dedup rule: keep_first, keep_latest (default from dedup.rule)")

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}

	keyName, ruleName := cfg.Dedup.Key, cfg.Dedup.Rule
	if cmd.Flags().Changed("key") {
		keyName, _ = cmd.Flags().GetString("key")
	}
	if cmd.Flags().Changed("rule") {
		ruleName, _ = cmd.Flags().GetString("rule")
	}
	key, err := dedup.ParseKey(keyName)
	if err != nil {
		return err
	}
	rule, err := dedup.ParseRule(ruleName)
	if err != nil {
		return err
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
	raw, err := st.Records(ctx, run.ID, store.StageRaw)
	if err != nil {
		return err
	}

	deduped, removed := dedup.Dedup(raw, key, rule)
	res := screen.Screen(deduped, screen.RulesFromPolicy(sess.Policy, pipeline.ScreenConfig(cfg.Screen, sess)))

	if err := errors.Join(
		st.SaveRecords(ctx, run.ID, store.StageDeduped, deduped),
		st.SaveRecords(ctx, run.ID, store.StageIncluded, res.Included),
		st.SaveRecords(ctx, run.ID, store.StageExcluded, res.Excluded),
	); err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  raw:       %d\n", len(raw))
	fmt.Printf("  deduped:   %d (%d duplicates removed)\n", len(deduped), removed)
	fmt.Printf("  included:  %d\n", len(res.Included))
	fmt.Printf("  excluded:  %d\n", len(res.Excluded))
	return nil
}
