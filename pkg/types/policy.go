// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"strings"
)

// YearWindow bounds publication years. A zero bound is open.
type YearWindow struct {
	From int `json:"from" yaml:"from" mapstructure:"from"`
	To   int `json:"to" yaml:"to" mapstructure:"to"`
}

// ScreeningPolicy holds the planning artifacts used by the screeners.
// Every field may be empty.
type ScreeningPolicy struct {
	ResearchQuestions []string    `json:"research_questions" yaml:"research_questions"`
	Include           []string    `json:"include" yaml:"include"`
	Exclude           []string    `json:"exclude" yaml:"exclude"`
	Years             *YearWindow `json:"years,omitempty" yaml:"years,omitempty"`
}

// IsEmpty reports whether the policy has no research questions and no
// criteria, i.e. nothing a model could screen against.
func (p ScreeningPolicy) IsEmpty() bool {
	return len(nonBlank(p.ResearchQuestions)) == 0 &&
		len(nonBlank(p.Include)) == 0 &&
		len(nonBlank(p.Exclude)) == 0
}

func nonBlank(ss []string) []string {
	var out []string
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// Scheme names the allowed answers of a quality checklist.
type Scheme string

const (
	SchemeYN  Scheme = "Y/N"
	SchemeYPN Scheme = "Y/P/N"
)

// AllowsPartial reports whether P is a valid answer under the scheme.
func (s Scheme) AllowsPartial() bool {
	return strings.Contains(strings.ToUpper(string(s)), "P")
}

// Answer is a checklist answer symbol.
type Answer string

const (
	AnswerYes     Answer = "Y"
	AnswerPartial Answer = "P"
	AnswerNo      Answer = "N"
)

// ParseAnswer normalizes an answer symbol; unknown symbols map to N.
func ParseAnswer(s string) Answer {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES":
		return AnswerYes
	case "P", "PARTIAL":
		return AnswerPartial
	default:
		return AnswerNo
	}
}

// ChecklistItem is one weighted quality question.
type ChecklistItem struct {
	Text   string  `json:"text" yaml:"text"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// QualityChecklist is the weighted Yes/Partial/No questionnaire.
type QualityChecklist struct {
	Questions []ChecklistItem `json:"questions" yaml:"questions"`
	Scheme    Scheme          `json:"scheme" yaml:"scheme"`
	Cutoff    float64         `json:"cutoff" yaml:"cutoff"`
}

// ScoreMapping assigns a base score to each answer symbol.
type ScoreMapping struct {
	Yes     float64 `json:"yes" yaml:"yes" mapstructure:"yes"`
	Partial float64 `json:"partial" yaml:"partial" mapstructure:"partial"`
	No      float64 `json:"no" yaml:"no" mapstructure:"no"`
}

// DefaultScoreMapping is Y=1.0, P=0.5, N=0.0.
func DefaultScoreMapping() ScoreMapping {
	return ScoreMapping{Yes: 1.0, Partial: 0.5, No: 0.0}
}

// Base returns the base score for a under scheme. P counts as N when the
// scheme does not allow partial answers.
func (m ScoreMapping) Base(a Answer, scheme Scheme) float64 {
	switch a {
	case AnswerYes:
		return m.Yes
	case AnswerPartial:
		if scheme.AllowsPartial() {
			return m.Partial
		}
		return m.No
	default:
		return m.No
	}
}

// NormalizeWeight snaps a weight to 1.0, 0.5, or 0.0.
func NormalizeWeight(w float64) float64 {
	switch {
	case math.IsNaN(w):
		return 1.0
	case w >= 0.75:
		return 1.0
	case w >= 0.25:
		return 0.5
	default:
		return 0.0
	}
}

// MaxPossible is the sum of the question weights: the total when every
// answer scores at full weight.
func (c QualityChecklist) MaxPossible() float64 {
	total := 0.0
	for _, q := range c.Questions {
		total += q.Weight
	}
	return total
}

// Validate checks weights and that the cutoff lies in [0, MaxPossible].
func (c QualityChecklist) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("quality checklist has no questions")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %d: empty text", i+1)
		}
		if q.Weight != 1.0 && q.Weight != 0.5 && q.Weight != 0.0 {
			return fmt.Errorf("question %d: weight %g not in {1.0, 0.5, 0.0}", i+1, q.Weight)
		}
	}
	if top := c.MaxPossible(); c.Cutoff < 0 || c.Cutoff > top {
		return fmt.Errorf("cutoff %g outside [0, %g]", c.Cutoff, top)
	}
	return nil
}

// QualityAssessment holds the per-question output of the quality scorer.
type QualityAssessment struct {
	Answers          []Answer  `json:"answers" yaml:"answers"`
	Justifications   []string  `json:"justifications" yaml:"justifications"`
	ScorePerQuestion []float64 `json:"score_per_question" yaml:"score_per_question"`

	// ModelDecision is the model's own decision before the threshold gate,
	// empty when the model gave none or an invalid one.
	ModelDecision Decision `json:"model_decision,omitempty" yaml:"model_decision,omitempty"`

	// ReportedTotal is what the model claimed, kept for audit only.
	ReportedTotal *float64 `json:"reported_total,omitempty" yaml:"reported_total,omitempty"`
}

// ScoredRecord is a Record with its quality assessment.
type ScoredRecord struct {
	Record        `yaml:",inline"`
	QA            QualityAssessment `json:"qa" yaml:"qa"`
	TotalScore    float64           `json:"total_score" yaml:"total_score"`
	TotalScorePct float64           `json:"total_score_pct" yaml:"total_score_pct"`
	Decision      Decision          `json:"decision" yaml:"decision"`
}
