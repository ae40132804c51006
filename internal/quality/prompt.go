// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/slr-engine/pkg/types"
)

const systemPrompt = `You are an assistant for systematic literature reviews.
You rate papers against a short quality checklist. Respond STRICTLY with JSON, no commentary.`

var paperPromptTmpl = template.Must(template.New("paper").Parse(`Paper:
- Title: {{.Title}}
- Abstract: {{.Abstract}}
- Published: {{.Published}}
- Category: {{.Category}}

Quality checklist:
{{range .Checklist}}{{.}}
{{end}}
Scoring:
- {{.SchemeLine}}
- Numeric mapping: {{.Mapping}}
- Total score is sum of (answer_score * weight).
- Also return percentage of max possible ({{.MaxPossible}}).

Output JSON ONLY with the following shape (no extra text):
{
  "answers": ["Y", "N", ...],
  "justifications": ["one sentence per question", ...],
  "score_per_question": [float, ...],
  "total_score": float,
  "total_score_pct": float,
  "decision": "include" | "exclude" | "unsure"
}
"answers", "justifications" and "score_per_question" must each have exactly {{.Count}} entries.

Rules:
- If evidence is insufficient, answer {{.Fallback}}, and you may set decision to "unsure".
- Keep justifications SHORT (at most 20 words).
- Never output markdown or prose; JSON ONLY.
`))

type paperPromptData struct {
	Title       string
	Abstract    string
	Published   string
	Category    string
	Checklist   []string
	SchemeLine  string
	Mapping     string
	MaxPossible string
	Count       int
	Fallback    string
}

// renderPaperPrompt builds the rubric prompt for one record.
func renderPaperPrompt(r types.Record, c types.QualityChecklist, m types.ScoreMapping) (string, error) {
	data := paperPromptData{
		Title:       strings.TrimSpace(r.Title),
		Abstract:    strings.TrimSpace(r.Summary),
		Published:   r.Published,
		Category:    r.Category,
		SchemeLine:  "Allowed answers per question: Y, P (Partial), or N.",
		Mapping:     fmt.Sprintf("Y=%s, P=%s, N=%s", num(m.Yes), num(m.Partial), num(m.No)),
		MaxPossible: num(c.MaxPossible()),
		Count:       len(c.Questions),
		Fallback:    "'P'",
	}
	if !c.Scheme.AllowsPartial() {
		data.SchemeLine = "Allowed answers per question: Y or N."
		data.Mapping = fmt.Sprintf("Y=%s, N=%s", num(m.Yes), num(m.No))
		data.Fallback = "'N'"
	}
	for i, q := range c.Questions {
		data.Checklist = append(data.Checklist, fmt.Sprintf("%d. %s (weight %s)", i+1, q.Text, num(q.Weight)))
	}

	var buf bytes.Buffer
	if err := paperPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering quality prompt: %w", err)
	}
	return buf.String(), nil
}

// num formats like %g without exponent noise for small decimals.
func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
