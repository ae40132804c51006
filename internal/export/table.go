// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// WriteTable writes a fixed-width summary of records.
func WriteTable(w io.Writer, records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-56s  %-20s  %-4s  %-10s  %s\n",
		"#", "ID", "Title", "Authors", "Year", "Category", "Note")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for i, r := range records {
		year := ""
		if y, ok := r.Year(); ok {
			year = strconv.Itoa(y)
		}
		fmt.Fprintf(w, "%-4d  %-16s  %-56s  %-20s  %-4s  %-10s  %s\n",
			i+1, truncate(r.ID, 16), truncate(oneLine(r.Title), 56), formatAuthors(r.Authors),
			year, truncate(r.Category, 10), note(r))
	}
	fmt.Fprintf(w, "\n%d records\n", len(records))
}

// WriteScoreTable writes a fixed-width summary of scored records.
func WriteScoreTable(w io.Writer, scored []types.ScoredRecord, maxPossible float64) {
	if len(scored) == 0 {
		fmt.Fprintln(w, "No scored records.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-56s  %-12s  %-7s  %s\n",
		"#", "ID", "Title", "Score", "Pct", "Decision")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, sr := range scored {
		score := fmt.Sprintf("%g / %g", sr.TotalScore, maxPossible)
		fmt.Fprintf(w, "%-4d  %-16s  %-56s  %-12s  %-7.2f  %s\n",
			i+1, truncate(sr.ID, 16), truncate(oneLine(sr.Title), 56), score, sr.TotalScorePct, sr.Decision)
	}
	fmt.Fprintf(w, "\n%d records\n", len(scored))
}

func note(r types.Record) string {
	switch {
	case r.Reason != "":
		return r.Reason
	case r.AIDecision != "":
		return string(r.AIDecision) + ": " + r.AIReason
	default:
		return ""
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
