// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-engine/internal/export"
	"github.com/pdiddy/slr-engine/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a run's records or quality scores",
	Long: `Export writes one stage's records (raw, deduped, included, excluded,
ai_include, ai_exclude, ai_unsure, ai_pending, qa_failed) as a table, JSON,
CSV, or CSL-YAML for reference managers.

--quality writes the scored records as CSV with one answer and one
justification column per checklist question. --template writes an empty
scoring sheet for the stage's records, for manual assessment.`,
	RunE: runExport,
}

func init() {
	runFlag(exportCmd)
	exportCmd.Flags().String("stage", string(store.StageIncluded), "record set to export")
	exportCmd.Flags().String("format", "table", "output format: table, json, csv, csl")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")
	exportCmd.Flags().Bool("quality", false, "export quality scores as CSV")
	exportCmd.Flags().Bool("template", false, "export a blank quality scoring sheet as CSV")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stage, _ := cmd.Flags().GetString("stage")
	formatName, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	qualityCSV, _ := cmd.Flags().GetBool("quality")
	template, _ := cmd.Flags().GetBool("template")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	run, err := resolveRun(cmd, st)
	if err != nil {
		return err
	}

	if qualityCSV || template {
		sess, err := loadSession(cmd)
		if err != nil {
			return err
		}
		questions := len(sess.QualityChecklist().Questions)
		if qualityCSV {
			scored, err := st.Scores(ctx, run.ID)
			if err != nil {
				return err
			}
			return withOutput(out, func(w io.Writer) error {
				return export.WriteQualityCSV(w, scored, questions)
			})
		}
		recs, err := st.Records(ctx, run.ID, store.Stage(stage))
		if err != nil {
			return err
		}
		return withOutput(out, func(w io.Writer) error {
			return export.QualityTemplateCSV(w, recs, questions)
		})
	}

	f, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	recs, err := st.Records(ctx, run.ID, store.Stage(stage))
	if err != nil {
		return err
	}
	return withOutput(out, func(w io.Writer) error {
		return export.Records(w, f, recs)
	})
}
