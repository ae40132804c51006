// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the slr-engine pipeline:
// candidate records, screening policies, quality checklists, and the
// configuration consumed by each stage.
package types

import (
	"regexp"
	"strconv"
	"strings"
)

// Decision is the outcome assigned to a record by a screening stage.
type Decision string

const (
	DecisionInclude Decision = "include"
	DecisionExclude Decision = "exclude"
	DecisionUnsure  Decision = "unsure"
)

// ParseDecision normalizes a model-supplied decision token. Anything other
// than include, exclude, or unsure maps to unsure.
func ParseDecision(s string) Decision {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionInclude:
		return DecisionInclude
	case DecisionExclude:
		return DecisionExclude
	default:
		return DecisionUnsure
	}
}

// IsValid reports whether d is one of the three recognised decisions.
func (d Decision) IsValid() bool {
	return d == DecisionInclude || d == DecisionExclude || d == DecisionUnsure
}

// Record is one candidate paper retrieved from a bibliographic API. All
// fields default to empty values rather than nil so downstream stages can
// read them without checks. Later stages enrich the record in place.
type Record struct {
	// ID is the external identifier (arXiv ID) or a generated placeholder.
	// It is assigned at parse time and never regenerated.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract.
	Summary string `json:"summary" yaml:"summary"`

	// Published is the ISO-8601 publication timestamp as sent by the source.
	Published string `json:"published" yaml:"published"`

	// Updated is the ISO-8601 last-updated timestamp.
	Updated string `json:"updated" yaml:"updated"`

	// Authors lists author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Category is the primary category code (e.g. "cs.SE").
	Category string `json:"category" yaml:"category"`

	// Link is the landing-page URL.
	Link string `json:"link" yaml:"link"`

	// Reason explains a rule-based exclusion.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// AIDecision, AIReason and AIMatchedRules are set by the LLM screener.
	AIDecision     Decision `json:"ai_decision,omitempty" yaml:"ai_decision,omitempty"`
	AIReason       string   `json:"ai_reason,omitempty" yaml:"ai_reason,omitempty"`
	AIMatchedRules []string `json:"ai_matched_rules,omitempty" yaml:"ai_matched_rules,omitempty"`
}

var yearRe = regexp.MustCompile(`^\s*(\d{4})`)

// ParseYear extracts the leading four-digit year from a date string such as
// "2024-01-05T00:00:00Z". It returns false when no year is present.
func ParseYear(s string) (int, bool) {
	m := yearRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// Year returns the publication year of the record.
func (r Record) Year() (int, bool) {
	return ParseYear(r.Published)
}

// Clone returns a copy of r that shares no slices with the original.
func (r Record) Clone() Record {
	c := r
	if r.Authors != nil {
		c.Authors = append([]string(nil), r.Authors...)
	}
	if r.AIMatchedRules != nil {
		c.AIMatchedRules = append([]string(nil), r.AIMatchedRules...)
	}
	return c
}
