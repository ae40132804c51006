// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality rates included records against a weighted checklist with
// a language model and recomputes every score locally.
package quality

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// Result holds the records scored in one run. Failed lists records whose
// model call failed; they can be passed to another Score call.
type Result struct {
	Scored []types.ScoredRecord
	Failed []types.Record

	Threshold   float64
	MaxPossible float64
}

// Scorer calls the model once per record.
type Scorer struct {
	LLM     llm.Completer
	Mapping types.ScoreMapping

	// MaxTokens bounds each completion. Zero uses the provider default.
	MaxTokens int64

	Log *zap.Logger
}

// NewScorer returns a Scorer with the default Y/P/N mapping.
func NewScorer(c llm.Completer, log *zap.Logger) *Scorer {
	return &Scorer{LLM: c, Mapping: types.DefaultScoreMapping(), Log: log}
}

// Score rates every record against checklist. threshold gates inclusion
// (see EffectiveThreshold for nil). Per-record model errors do
// not stop the run: the record goes to Result.Failed and the errors are
// joined into the returned error. A cancelled context stops the run and
// the unscored records are reported as failed.
func (s *Scorer) Score(ctx context.Context, records []types.Record, checklist types.QualityChecklist, threshold *float64) (*Result, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := s.Mapping
	if m == (types.ScoreMapping{}) {
		m = types.DefaultScoreMapping()
	}

	res := &Result{
		Threshold:   EffectiveThreshold(checklist, threshold),
		MaxPossible: checklist.MaxPossible(),
	}
	if len(checklist.Questions) == 0 {
		log.Warn("quality checklist is empty, skipping scoring", zap.Int("records", len(records)))
		return res, nil
	}

	var errs []error
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			for _, rest := range records[i:] {
				res.Failed = append(res.Failed, rest.Clone())
			}
			errs = append(errs, err)
			break
		}

		prompt, err := renderPaperPrompt(r, checklist, m)
		if err != nil {
			return res, err
		}
		raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPrompt, Prompt: prompt, MaxTokens: s.MaxTokens})
		if err != nil {
			log.Error("model call failed, record left unscored",
				zap.String("id", r.ID),
				zap.Int("index", i),
				zap.Error(err),
			)
			res.Failed = append(res.Failed, r.Clone())
			errs = append(errs, fmt.Errorf("scoring %s: %w", r.ID, err))
			continue
		}

		rt, err := parseRating(raw)
		if err != nil {
			log.Warn("could not parse model output, scoring as all N",
				zap.String("id", r.ID),
				zap.Error(err),
			)
		}
		sr := Reconcile(r, rt.Answers, rt.Justifications, rt.Decision, checklist, m, res.Threshold)
		sr.QA.ReportedTotal = rt.ReportedTotal
		if rt.ReportedTotal != nil && math.Abs(*rt.ReportedTotal-sr.TotalScore) > 1e-6 {
			log.Debug("model total differs from recomputed total",
				zap.String("id", r.ID),
				zap.Float64("reported", *rt.ReportedTotal),
				zap.Float64("recomputed", sr.TotalScore),
			)
		}
		res.Scored = append(res.Scored, sr)
		log.Info("scored record",
			zap.Int("index", i+1),
			zap.Int("total", len(records)),
			zap.String("id", r.ID),
			zap.Float64("score", sr.TotalScore),
			zap.String("decision", string(sr.Decision)),
		)
	}
	return res, errors.Join(errs...)
}

// Reconcile builds a ScoredRecord from the model's answers. Scores are
// always recomputed from answers and weights. A valid model decision is
// kept unless it is include with a total below threshold; an invalid one
// is derived from the threshold. The ungated model decision stays in
// QA.ModelDecision so Buckets can re-gate for another threshold.
func Reconcile(r types.Record, answers []types.Answer, justifications []string, decision string, c types.QualityChecklist, m types.ScoreMapping, threshold float64) types.ScoredRecord {
	n := len(c.Questions)
	qa := types.QualityAssessment{
		Answers:          fitAnswers(answers, n),
		Justifications:   fitStrings(justifications, n),
		ScorePerQuestion: make([]float64, n),
	}

	total := 0.0
	for i, q := range c.Questions {
		if qa.Answers[i] == types.AnswerPartial && !c.Scheme.AllowsPartial() {
			qa.Answers[i] = types.AnswerNo
		}
		qa.ScorePerQuestion[i] = m.Base(qa.Answers[i], c.Scheme) * q.Weight
		total += qa.ScorePerQuestion[i]
	}

	model := types.Decision(strings.ToLower(strings.TrimSpace(decision)))
	if model.IsValid() {
		qa.ModelDecision = model
	}

	pct := 0.0
	if top := c.MaxPossible(); top > 0 {
		pct = total / top * 100
	}

	total = round(total, 4)
	return types.ScoredRecord{
		Record:        r.Clone(),
		QA:            qa,
		TotalScore:    total,
		TotalScorePct: round(pct, 2),
		Decision:      decide(qa.ModelDecision, total, threshold),
	}
}

// decide applies the threshold gate to a model decision.
func decide(d types.Decision, total, threshold float64) types.Decision {
	if !d.IsValid() {
		if total >= threshold {
			return types.DecisionInclude
		}
		return types.DecisionExclude
	}
	if d == types.DecisionInclude && total < threshold {
		return types.DecisionExclude
	}
	return d
}

// Buckets re-derives include, exclude, and unsure sets for a new
// threshold without calling the model again. The gate is applied to the
// model's own decision, so a record downgraded at a stricter threshold
// comes back at a looser one.
func Buckets(scored []types.ScoredRecord, threshold float64) (include, exclude, unsure []types.ScoredRecord) {
	for _, sr := range scored {
		switch decide(sr.QA.ModelDecision, sr.TotalScore, threshold) {
		case types.DecisionInclude:
			include = append(include, sr)
		case types.DecisionUnsure:
			unsure = append(unsure, sr)
		default:
			exclude = append(exclude, sr)
		}
	}
	return include, exclude, unsure
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
