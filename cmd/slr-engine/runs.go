// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs and their record counts",
	RunE:  runRuns,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a run and everything stored under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsRmCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs.")
		return nil
	}
	for _, r := range runs {
		counts, err := st.StageCounts(ctx, r.ID)
		if err != nil {
			return err
		}
		var parts []string
		for _, s := range store.Stages {
			if n, ok := counts[s]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", s, n))
			}
		}
		fmt.Printf("%s  %s  v%d  %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.SessionVersion, r.Topic)
		fmt.Printf("    %s\n", r.Query)
		if len(parts) > 0 {
			fmt.Printf("    %s\n", strings.Join(parts, "  "))
		}
	}
	return nil
}
