// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Question is a checklist entry as written by a reviewer: either a bare
// string or a {text, weight, keep} mapping.
type Question struct {
	Text   string   `json:"text" yaml:"text"`
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Keep   *bool    `json:"keep,omitempty" yaml:"keep,omitempty"`
}

// UnmarshalYAML accepts a scalar or a mapping.
func (q *Question) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*q = Question{Text: n.Value}
		return nil
	}
	var raw struct {
		Text   string `yaml:"text"`
		Weight string `yaml:"weight"`
		Keep   *bool  `yaml:"keep"`
	}
	if err := n.Decode(&raw); err != nil {
		return fmt.Errorf("checklist question at line %d: %w", n.Line, err)
	}
	*q = Question{Text: raw.Text, Keep: raw.Keep, Weight: coerceWeight(raw.Weight)}
	return nil
}

// UnmarshalJSON accepts a string or an object.
func (q *Question) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = Question{Text: s}
		return nil
	}
	var raw struct {
		Text   string          `json:"text"`
		Weight json.RawMessage `json:"weight"`
		Keep   *bool           `json:"keep"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("checklist question: %w", err)
	}
	*q = Question{Text: raw.Text, Keep: raw.Keep, Weight: coerceWeight(strings.Trim(string(raw.Weight), `"`))}
	return nil
}

// coerceWeight parses a weight; an unparsable one is treated as absent.
func coerceWeight(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &w
}

// BuildChecklist turns reviewer-written questions into a checklist. Blank
// questions and those with keep=false are dropped; weights default to 1
// and snap to 1.0, 0.5, or 0.0. An empty scheme means Y/P/N.
func BuildChecklist(questions []Question, scheme types.Scheme, cutoff float64) types.QualityChecklist {
	c := types.QualityChecklist{Scheme: normalizeScheme(scheme), Cutoff: cutoff}
	for _, q := range questions {
		text := strings.TrimSpace(q.Text)
		if text == "" || (q.Keep != nil && !*q.Keep) {
			continue
		}
		w := 1.0
		if q.Weight != nil {
			w = types.NormalizeWeight(*q.Weight)
		}
		c.Questions = append(c.Questions, types.ChecklistItem{Text: text, Weight: w})
	}
	return c
}

func normalizeScheme(s types.Scheme) types.Scheme {
	switch strings.ToUpper(strings.ReplaceAll(string(s), " ", "")) {
	case "Y/N", "YN":
		return types.SchemeYN
	default:
		return types.SchemeYPN
	}
}

// EffectiveThreshold picks the decision cutoff: threshold when set (zero
// included), else the checklist's cutoff when positive, else half the
// maximum score.
func EffectiveThreshold(c types.QualityChecklist, threshold *float64) float64 {
	switch {
	case threshold != nil:
		return *threshold
	case c.Cutoff > 0:
		return c.Cutoff
	default:
		return c.MaxPossible() * 0.5
	}
}
