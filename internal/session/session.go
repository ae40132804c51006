// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the reviewer's planning artifacts for one review:
// topic, curated facet terms, screening policy, and quality checklist.
// A Session is a value. Every With method returns an updated copy with
// the version bumped; nothing is shared between reviews.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-engine/internal/quality"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// DefaultFile is the session file name used by the CLI.
const DefaultFile = "review.yaml"

// Checklist is the quality checklist as written by the reviewer.
type Checklist struct {
	Questions []quality.Question `yaml:"questions"`
	Scheme    types.Scheme       `yaml:"scheme,omitempty"`
	Cutoff    float64            `yaml:"min_total,omitempty"`
}

// Session is the on-disk review.yaml.
type Session struct {
	Version int    `yaml:"version"`
	Topic   string `yaml:"topic"`

	// PICOC holds the short free-text description of each facet.
	PICOC map[types.Facet]string `yaml:"picoc,omitempty"`

	Facets        types.FacetTerms `yaml:"facets"`
	IncludeFacets []types.Facet    `yaml:"include_facets,omitempty"`

	Policy     types.ScreeningPolicy `yaml:"policy"`
	Checklist  Checklist             `yaml:"checklist"`
	Categories []string              `yaml:"categories,omitempty"`
}

// New returns an empty session at version 1.
func New(topic string) Session {
	return Session{Version: 1, Topic: topic, Facets: types.FacetTerms{}}
}

// Load reads a session file.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing session %s: %w", path, err)
	}
	if s.Facets == nil {
		s.Facets = types.FacetTerms{}
	}
	return s, nil
}

// Save writes the session atomically.
func (s Session) Save(path string) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".review-*.yaml")
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Terms returns the curated terms restricted to IncludeFacets (all facets
// when none are selected).
func (s Session) Terms() types.FacetTerms {
	if len(s.IncludeFacets) == 0 {
		return s.Facets
	}
	return s.Facets.Only(s.IncludeFacets)
}

// QualityChecklist normalizes the reviewer's checklist.
func (s Session) QualityChecklist() types.QualityChecklist {
	return quality.BuildChecklist(s.Checklist.Questions, s.Checklist.Scheme, s.Checklist.Cutoff)
}

func (s Session) bump() Session {
	s.Version++
	return s
}

// WithTopic returns a copy with a new topic.
func (s Session) WithTopic(topic string) Session {
	s.Topic = topic
	return s.bump()
}

// WithFacetTerms returns a copy with the terms of one facet replaced.
func (s Session) WithFacetTerms(f types.Facet, terms []string) Session {
	facets := make(types.FacetTerms, len(s.Facets)+1)
	for k, v := range s.Facets {
		facets[k] = slices.Clone(v)
	}
	facets[f] = slices.Clone(terms)
	s.Facets = facets
	return s.bump()
}

// WithIncludeFacets returns a copy restricting queries to facets.
func (s Session) WithIncludeFacets(facets []types.Facet) Session {
	s.IncludeFacets = slices.Clone(facets)
	return s.bump()
}

// WithPolicy returns a copy with a new screening policy.
func (s Session) WithPolicy(p types.ScreeningPolicy) Session {
	s.Policy = types.ScreeningPolicy{
		ResearchQuestions: slices.Clone(p.ResearchQuestions),
		Include:           slices.Clone(p.Include),
		Exclude:           slices.Clone(p.Exclude),
	}
	if p.Years != nil {
		w := *p.Years
		s.Policy.Years = &w
	}
	return s.bump()
}

// WithChecklist returns a copy with a new quality checklist.
func (s Session) WithChecklist(c Checklist) Session {
	c.Questions = slices.Clone(c.Questions)
	s.Checklist = c
	return s.bump()
}

// WithCategories returns a copy with a new category allow-list.
func (s Session) WithCategories(cats []string) Session {
	s.Categories = slices.Clone(cats)
	return s.bump()
}
