// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes record sets and quality results as JSON, CSV,
// CSL-YAML, or a plain-text table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatCSL   Format = "csl"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatCSL:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json, csv, or csl)", s)
	}
}

// Records writes records in format f.
func Records(w io.Writer, f Format, records []types.Record) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatCSL:
		return WriteCSL(w, records)
	default:
		WriteTable(w, records)
		return nil
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var recordHeader = []string{"id", "title", "summary", "published", "updated", "authors", "category", "link"}

// WriteCSV writes one row per record. A reason column is added when any
// record carries a rule-screen reason, and AI columns when any record was
// classified.
func WriteCSV(w io.Writer, records []types.Record) error {
	withReason, withAI := false, false
	for _, r := range records {
		withReason = withReason || r.Reason != ""
		withAI = withAI || r.AIDecision != ""
	}

	header := append([]string(nil), recordHeader...)
	if withReason {
		header = append(header, "reason")
	}
	if withAI {
		header = append(header, "ai_decision", "ai_reason", "ai_matched_rules")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID, oneLine(r.Title), oneLine(r.Summary), r.Published, r.Updated,
			strings.Join(r.Authors, ", "), r.Category, r.Link,
		}
		if withReason {
			row = append(row, r.Reason)
		}
		if withAI {
			row = append(row, string(r.AIDecision), r.AIReason, strings.Join(r.AIMatchedRules, ";"))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteQualityCSV writes scored records with per-question answers and
// justifications followed by the totals. questions is the checklist size.
func WriteQualityCSV(w io.Writer, scored []types.ScoredRecord, questions int) error {
	header := []string{"id", "title", "published", "category", "link"}
	for i := 1; i <= questions; i++ {
		header = append(header, fmt.Sprintf("Q%d_answer", i))
	}
	for i := 1; i <= questions; i++ {
		header = append(header, fmt.Sprintf("Q%d_why", i))
	}
	header = append(header, "total_score", "total_score_pct", "decision")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sr := range scored {
		row := []string{sr.ID, oneLine(sr.Title), sr.Published, sr.Category, sr.Link}
		for i := 0; i < questions; i++ {
			a := ""
			if i < len(sr.QA.Answers) {
				a = string(sr.QA.Answers[i])
			}
			row = append(row, a)
		}
		for i := 0; i < questions; i++ {
			why := ""
			if i < len(sr.QA.Justifications) {
				why = oneLine(sr.QA.Justifications[i])
			}
			row = append(row, why)
		}
		row = append(row,
			strconv.FormatFloat(sr.TotalScore, 'f', -1, 64),
			strconv.FormatFloat(sr.TotalScorePct, 'f', -1, 64),
			string(sr.Decision),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// QualityTemplateCSV writes an empty manual scoring sheet: id, title, one
// column per question, and total_score.
func QualityTemplateCSV(w io.Writer, records []types.Record, questions int) error {
	header := []string{"id", "title"}
	for i := 1; i <= questions; i++ {
		header = append(header, fmt.Sprintf("Q%d", i))
	}
	header = append(header, "total_score")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := make([]string, len(header))
		row[0], row[1] = r.ID, oneLine(r.Title)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
