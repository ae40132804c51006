// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// systemPrompt fixes the decision vocabulary and the JSON-only contract.
const systemPrompt = `You are an assistant screening papers for a systematic literature review.
For every paper you must decide exactly one of: "include", "exclude", "unsure".
Use "unsure" when the title and abstract do not give enough evidence.
Respond STRICTLY with a single JSON object and nothing else: no markdown, no prose.`

// batchPromptTmpl is the user payload for one batch: the screening policy
// followed by one block per paper in input order.
var batchPromptTmpl = template.Must(template.New("batch").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Screening policy
================
{{if .Questions}}Research questions:
{{range $i, $q := .Questions}}RQ{{inc $i}}. {{$q}}
{{end}}
{{end}}{{if .Include}}Inclusion criteria:
{{range $i, $c := .Include}}I{{inc $i}}. {{$c}}
{{end}}
{{end}}{{if .Exclude}}Exclusion criteria:
{{range $i, $c := .Exclude}}E{{inc $i}}. {{$c}}
{{end}}
{{end}}{{if .Years}}Publication years: {{.Years}}

{{end}}Papers ({{len .Papers}})
==========
{{range $i, $p := .Papers}}[{{inc $i}}]
id: {{$p.ID}}
title: {{$p.Title}}
authors: {{$p.Authors}}
year: {{$p.Year}}
category: {{$p.Category}}
link: {{$p.Link}}
abstract: {{$p.Abstract}}

{{end}}Return JSON with exactly {{len .Papers}} entries in "results", one per paper, in the same order:
{"results": [{"id": "<paper id>", "decision": "include" | "exclude" | "unsure", "reason": "<one short sentence>", "matched_rules": ["I1", "E2", ...]}]}
`))

type promptPaper struct {
	ID       string
	Title    string
	Authors  string
	Year     string
	Category string
	Link     string
	Abstract string
}

type promptData struct {
	Questions []string
	Include   []string
	Exclude   []string
	Years     string
	Papers    []promptPaper
}

// renderBatchPrompt builds the user payload for a batch.
func renderBatchPrompt(policy types.ScreeningPolicy, batch []types.Record) (string, error) {
	data := promptData{
		Questions: trimmed(policy.ResearchQuestions),
		Include:   trimmed(policy.Include),
		Exclude:   trimmed(policy.Exclude),
		Years:     yearsText(policy.Years),
	}
	for _, r := range batch {
		year := "n/a"
		if y, ok := r.Year(); ok {
			year = strconv.Itoa(y)
		}
		data.Papers = append(data.Papers, promptPaper{
			ID:       r.ID,
			Title:    r.Title,
			Authors:  strings.Join(r.Authors, ", "),
			Year:     year,
			Category: orNA(r.Category),
			Link:     orNA(r.Link),
			Abstract: orNA(r.Summary),
		})
	}

	var buf bytes.Buffer
	if err := batchPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering batch prompt: %w", err)
	}
	return buf.String(), nil
}

func trimmed(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func yearsText(w *types.YearWindow) string {
	if w == nil || (w.From <= 0 && w.To <= 0) {
		return ""
	}
	from, to := "any", "any"
	if w.From > 0 {
		from = strconv.Itoa(w.From)
	}
	if w.To > 0 {
		to = strconv.Itoa(w.To)
	}
	return from + " to " + to
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}
