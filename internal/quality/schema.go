// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"github.com/tidwall/gjson"

	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// rating is the model's answer for one paper, after repair.
type rating struct {
	Answers          []types.Answer
	Justifications   []string
	ScorePerQuestion []float64
	ReportedTotal    *float64
	Decision         string
}

// parseRating extracts the rating object from raw model output. Output
// without an "answers" key is an error; the caller scores it as all N.
func parseRating(raw string) (rating, error) {
	obj, err := llm.ExtractObject(raw, "answers")
	if err != nil {
		return rating{}, err
	}
	doc := gjson.Parse(obj)

	var r rating
	for _, a := range doc.Get("answers").Array() {
		r.Answers = append(r.Answers, types.ParseAnswer(a.String()))
	}
	for _, j := range doc.Get("justifications").Array() {
		r.Justifications = append(r.Justifications, j.String())
	}
	for _, s := range doc.Get("score_per_question").Array() {
		r.ScorePerQuestion = append(r.ScorePerQuestion, s.Float())
	}
	if t := doc.Get("total_score"); t.Type == gjson.Number {
		v := t.Float()
		r.ReportedTotal = &v
	}
	r.Decision = doc.Get("decision").String()
	return r, nil
}

// fitAnswers pads answers with N or truncates them to n.
func fitAnswers(as []types.Answer, n int) []types.Answer {
	out := make([]types.Answer, n)
	for i := range out {
		out[i] = types.AnswerNo
		if i < len(as) {
			out[i] = as[i]
		}
	}
	return out
}

// fitStrings pads with empty strings or truncates to n.
func fitStrings(ss []string, n int) []string {
	out := make([]string, n)
	copy(out, ss)
	return out
}
