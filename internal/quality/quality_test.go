// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/pkg/types"
)

type fakeLLM struct {
	responses map[string]string // keyed by a substring of the prompt
	fail      map[string]error
	prompts   []string
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	for key, err := range f.fail {
		if strings.Contains(req.Prompt, key) {
			return "", err
		}
	}
	for key, out := range f.responses {
		if strings.Contains(req.Prompt, key) {
			return out, nil
		}
	}
	return "not json", nil
}

func twoQuestions() types.QualityChecklist {
	return types.QualityChecklist{
		Scheme: types.SchemeYPN,
		Questions: []types.ChecklistItem{
			{Text: "Is the research aim clearly stated?", Weight: 1.0},
			{Text: "Is the evaluation replicable?", Weight: 0.5},
		},
	}
}

func TestReconcileWeightedTotal(t *testing.T) {
	// Weights [1.0, 0.5], answers [Y, P]: 1.0*1.0 + 0.5*0.5 = 1.25 of 1.5.
	c := twoQuestions()
	m := types.DefaultScoreMapping()
	assert.Equal(t, 1.5, c.MaxPossible())

	sr := Reconcile(types.Record{ID: "a"}, []types.Answer{types.AnswerYes, types.AnswerPartial}, nil, "include", c, m, 0.75)
	assert.Equal(t, 1.25, sr.TotalScore)
	assert.Equal(t, 83.33, sr.TotalScorePct)
	assert.Equal(t, []float64{1.0, 0.25}, sr.QA.ScorePerQuestion)
	assert.Equal(t, types.DecisionInclude, sr.Decision)
	assert.Equal(t, []string{"", ""}, sr.QA.Justifications)
}

func TestReconcileTotalIsWeightedSum(t *testing.T) {
	c := types.QualityChecklist{
		Scheme: types.SchemeYPN,
		Questions: []types.ChecklistItem{
			{Text: "q1", Weight: 1}, {Text: "q2", Weight: 0.5}, {Text: "q3", Weight: 0}, {Text: "q4", Weight: 1},
		},
	}
	m := types.ScoreMapping{Yes: 2, Partial: 0.5, No: 0.25}
	answers := [][]types.Answer{
		{"Y", "Y", "Y", "Y"},
		{"N", "P", "Y", "P"},
		{"P"},
		nil,
	}
	for _, as := range answers {
		sr := Reconcile(types.Record{}, as, nil, "", c, m, 0)
		want := 0.0
		for i, q := range c.Questions {
			a := types.AnswerNo
			if i < len(as) {
				a = as[i]
			}
			want += m.Base(a, c.Scheme) * q.Weight
		}
		assert.InDelta(t, want, sr.TotalScore, 1e-9, "answers %v", as)
		assert.Len(t, sr.QA.Answers, len(c.Questions))
	}
}

func TestReconcileSchemeWithoutPartial(t *testing.T) {
	c := twoQuestions()
	c.Scheme = types.SchemeYN
	sr := Reconcile(types.Record{}, []types.Answer{"Y", "P"}, nil, "", c, types.DefaultScoreMapping(), 0)
	assert.Equal(t, 1.0, sr.TotalScore)
	assert.Equal(t, []types.Answer{"Y", "N"}, sr.QA.Answers)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		model     types.Decision
		total     float64
		threshold float64
		want      types.Decision
	}{
		{"include", 1.0, 0.75, types.DecisionInclude},
		{"include", 0.5, 0.75, types.DecisionExclude},
		{"exclude", 1.5, 0.75, types.DecisionExclude},
		{"unsure", 0.2, 0.75, types.DecisionUnsure},
		{"probably", 0.75, 0.75, types.DecisionInclude},
		{"", 0.7, 0.75, types.DecisionExclude},
	}
	for _, tt := range tests {
		if got := decide(tt.model, tt.total, tt.threshold); got != tt.want {
			t.Errorf("decide(%q, %g, %g) = %q, want %q", tt.model, tt.total, tt.threshold, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	f := &fakeLLM{
		responses: map[string]string{
			"Strong paper": "```json\n" + `{"answers": ["Y", "Y"], "justifications": ["aim stated", "code released"],
				"score_per_question": [1, 0.5], "total_score": 99, "total_score_pct": 100, "decision": "include"}` + "\n```",
			"Weak paper": `{"answers": ["N", "P"], "justifications": ["no aim"], "decision": "include"}`,
		},
		fail: map[string]error{"Broken paper": errors.New("gateway timeout")},
	}
	records := []types.Record{
		{ID: "1", Title: "Strong paper"},
		{ID: "2", Title: "Broken paper"},
		{ID: "3", Title: "Weak paper"},
		{ID: "4", Title: "Garbled paper"},
	}
	s := NewScorer(f, nil)

	res, err := s.Score(context.Background(), records, twoQuestions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring 2")
	assert.Equal(t, 0.75, res.Threshold, "defaults to half the maximum")
	assert.Len(t, f.prompts, 4)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "2", res.Failed[0].ID)

	require.Len(t, res.Scored, 3)
	strong, weak, garbled := res.Scored[0], res.Scored[1], res.Scored[2]

	assert.Equal(t, 1.5, strong.TotalScore)
	assert.Equal(t, 100.0, strong.TotalScorePct)
	require.NotNil(t, strong.QA.ReportedTotal)
	assert.Equal(t, 99.0, *strong.QA.ReportedTotal)
	assert.Equal(t, types.DecisionInclude, strong.Decision)

	assert.Equal(t, 0.25, weak.TotalScore)
	assert.Equal(t, types.DecisionExclude, weak.Decision, "include below threshold is downgraded")
	assert.Equal(t, types.DecisionInclude, weak.QA.ModelDecision)
	assert.Equal(t, []string{"no aim", ""}, weak.QA.Justifications)

	assert.Equal(t, 0.0, garbled.TotalScore)
	assert.Equal(t, []types.Answer{"N", "N"}, garbled.QA.Answers)
	assert.Equal(t, types.DecisionExclude, garbled.Decision)
}

func TestScorePrompt(t *testing.T) {
	f := &fakeLLM{}
	s := NewScorer(f, nil)
	c := twoQuestions()
	_, err := s.Score(context.Background(), []types.Record{{ID: "x", Title: "T", Category: "cs.SE"}}, c, ptr(1))
	require.NoError(t, err)
	require.Len(t, f.prompts, 1)

	p := f.prompts[0]
	assert.Contains(t, p, "1. Is the research aim clearly stated? (weight 1)")
	assert.Contains(t, p, "2. Is the evaluation replicable? (weight 0.5)")
	assert.Contains(t, p, "Numeric mapping: Y=1, P=0.5, N=0")
	assert.Contains(t, p, "percentage of max possible (1.5)")
	assert.Contains(t, p, "- Category: cs.SE")

	c.Scheme = types.SchemeYN
	out, err := renderPaperPrompt(types.Record{}, c, types.DefaultScoreMapping())
	require.NoError(t, err)
	assert.Contains(t, out, "Numeric mapping: Y=1, N=0")
	assert.Contains(t, out, "Allowed answers per question: Y or N.")
}

func TestScoreEmptyChecklist(t *testing.T) {
	f := &fakeLLM{}
	res, err := NewScorer(f, nil).Score(context.Background(), []types.Record{{ID: "1"}}, types.QualityChecklist{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Scored)
	assert.Empty(t, f.prompts)
}

func TestScoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewScorer(&fakeLLM{}, nil).Score(ctx, []types.Record{{ID: "1"}, {ID: "2"}}, twoQuestions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Failed, 2)
}

func scoredAs(id string, total float64, model types.Decision) types.ScoredRecord {
	return types.ScoredRecord{
		Record:     types.Record{ID: id},
		QA:         types.QualityAssessment{ModelDecision: model},
		TotalScore: total,
	}
}

func TestBuckets(t *testing.T) {
	scored := []types.ScoredRecord{
		scoredAs("a", 1.5, types.DecisionInclude),
		scoredAs("b", 1.0, types.DecisionInclude),
		scoredAs("c", 0.5, types.DecisionUnsure),
		scoredAs("d", 1.5, types.DecisionExclude),
	}

	in, ex, un := Buckets(scored, 0.75)
	assert.Len(t, in, 2)
	assert.Len(t, ex, 1)
	assert.Len(t, un, 1)

	in, ex, _ = Buckets(scored, 1.25)
	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].ID)
	assert.Len(t, ex, 2)
}

func TestBuildChecklistFromYAML(t *testing.T) {
	src := `
- Is the aim clear?
- text: Is the method sound?
  weight: 0.6
- text: Dropped question
  keep: false
- text: Is there a threat analysis?
  weight: 0.1
- text: "   "
- text: Bad weight
  weight: lots
`
	var qs []Question
	require.NoError(t, yaml.Unmarshal([]byte(src), &qs))

	c := BuildChecklist(qs, "y/n", 0)
	assert.Equal(t, types.SchemeYN, c.Scheme)
	assert.Equal(t, []types.ChecklistItem{
		{Text: "Is the aim clear?", Weight: 1},
		{Text: "Is the method sound?", Weight: 0.5},
		{Text: "Is there a threat analysis?", Weight: 0},
		{Text: "Bad weight", Weight: 1},
	}, c.Questions)
}

func TestBuildChecklistFromJSON(t *testing.T) {
	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(`["A?", {"text": "B?", "weight": "0.5"}, {"text": "C?", "weight": 0.9, "keep": true}]`), &qs))

	c := BuildChecklist(qs, "", 0)
	assert.Equal(t, types.SchemeYPN, c.Scheme)
	require.Len(t, c.Questions, 3)
	assert.Equal(t, 0.5, c.Questions[1].Weight)
	assert.Equal(t, 1.0, c.Questions[2].Weight)
}

func ptr(f float64) *float64 { return &f }

func TestEffectiveThreshold(t *testing.T) {
	c := twoQuestions()
	assert.Equal(t, 1.0, EffectiveThreshold(c, ptr(1.0)))
	assert.Equal(t, 0.75, EffectiveThreshold(c, nil))
	c.Cutoff = 1.2
	assert.Equal(t, 1.2, EffectiveThreshold(c, nil))
	assert.Equal(t, 0.0, EffectiveThreshold(c, ptr(0)), "explicit zero overrides the cutoff")
}

func TestScoreAtZeroThreshold(t *testing.T) {
	f := &fakeLLM{responses: map[string]string{"Thin paper": `{"answers": ["N", "N"], "decision": "include"}`}}
	c := twoQuestions()
	c.Cutoff = 1.0

	res, err := NewScorer(f, nil).Score(context.Background(), []types.Record{{ID: "1", Title: "Thin paper"}}, c, ptr(0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Threshold)
	require.Len(t, res.Scored, 1)
	assert.Equal(t, types.DecisionInclude, res.Scored[0].Decision)
}

func TestMaxPossibleIsSumOfWeights(t *testing.T) {
	c := twoQuestions()
	assert.Equal(t, 1.5, c.MaxPossible())

	// A Y worth 2 doubles the total but not the maximum.
	sr := Reconcile(types.Record{}, []types.Answer{"Y", "N"}, nil, "", c, types.ScoreMapping{Yes: 2, Partial: 0.5}, 0)
	assert.Equal(t, 2.0, sr.TotalScore)
	assert.Equal(t, 133.33, sr.TotalScorePct)
}

func TestBucketsRegateDowngradedInclude(t *testing.T) {
	c := twoQuestions()
	m := types.DefaultScoreMapping()
	sr := Reconcile(types.Record{ID: "a"}, []types.Answer{"Y", "N"}, nil, "include", c, m, 1.5)
	assert.Equal(t, 1.0, sr.TotalScore)
	assert.Equal(t, types.DecisionExclude, sr.Decision)
	assert.Equal(t, types.DecisionInclude, sr.QA.ModelDecision)

	in, ex, _ := Buckets([]types.ScoredRecord{sr}, 0.5)
	require.Len(t, in, 1)
	assert.Empty(t, ex)

	derived := Reconcile(types.Record{ID: "b"}, []types.Answer{"Y", "N"}, nil, "maybe", c, m, 1.5)
	assert.Equal(t, types.DecisionExclude, derived.Decision)
	assert.Empty(t, derived.QA.ModelDecision)
	in, _, _ = Buckets([]types.ScoredRecord{derived}, 0.5)
	assert.Len(t, in, 1, "an invalid model decision is re-derived from the new threshold")
}
