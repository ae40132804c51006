// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Facet is one PICOC dimension.
type Facet string

const (
	FacetPopulation   Facet = "Population"
	FacetIntervention Facet = "Intervention"
	FacetComparison   Facet = "Comparison"
	FacetOutcome      Facet = "Outcome"
	FacetContext      Facet = "Context"

	// FacetTopic is the pseudo-facet holding the review topic phrase.
	FacetTopic Facet = "Topic"
)

// Facets lists the PICOC facets in strict-query priority order.
var Facets = []Facet{FacetPopulation, FacetIntervention, FacetComparison, FacetOutcome, FacetContext}

// BroadFacets lists the PICOC facets in broad-recall priority order.
var BroadFacets = []Facet{FacetIntervention, FacetPopulation, FacetComparison, FacetOutcome, FacetContext}

// ParseFacet matches a facet name case-insensitively.
func ParseFacet(s string) (Facet, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(FacetTopic)) {
		return FacetTopic, true
	}
	for _, f := range Facets {
		if strings.EqualFold(s, string(f)) {
			return f, true
		}
	}
	return "", false
}

// FacetTerms maps each facet to its curated, ordered term list.
type FacetTerms map[Facet][]string

// Only returns the subset of ft restricted to the given facets.
func (ft FacetTerms) Only(facets []Facet) FacetTerms {
	out := make(FacetTerms, len(facets))
	for _, f := range facets {
		if terms, ok := ft[f]; ok {
			out[f] = append([]string(nil), terms...)
		}
	}
	return out
}

// IsEmpty reports whether no facet holds a term.
func (ft FacetTerms) IsEmpty() bool {
	for _, terms := range ft {
		if len(terms) > 0 {
			return false
		}
	}
	return true
}

// ParseFacetTerms converts loosely typed input (decoded JSON or YAML) into
// FacetTerms. Unknown facet names and non-string terms are dropped.
func ParseFacetTerms(raw map[string]any) FacetTerms {
	out := FacetTerms{}
	for name, v := range raw {
		f, ok := ParseFacet(name)
		if !ok || f == FacetTopic {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			if ss, ok := v.([]string); ok {
				out[f] = append(out[f], ss...)
			}
			continue
		}
		for _, item := range list {
			if s, ok := item.(string); ok {
				out[f] = append(out[f], s)
			}
		}
	}
	return out
}
