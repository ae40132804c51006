// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Kind distinguishes the two query shapes.
type Kind string

const (
	// KindStrict is an AND-chain of per-facet OR-groups.
	KindStrict Kind = "strict"

	// KindBroad is a single flat OR-bucket.
	KindBroad Kind = "broad"
)

// Group is one OR-group of canonical terms. Facet is empty for the pooled
// bucket of a broad query and for groups parsed from a hand-edited string.
type Group struct {
	Facet types.Facet `json:"facet,omitempty" yaml:"facet,omitempty"`
	Terms []string    `json:"terms" yaml:"terms"`
}

// Quoted returns the group's terms rendered with QuoteTerm.
func (g Group) Quoted() []string {
	out := make([]string, len(g.Terms))
	for i, t := range g.Terms {
		out[i] = QuoteTerm(t)
	}
	return out
}

// BooleanQuery is the backend-agnostic query representation. Query is the
// rendered string; Groups is the structure it was rendered from.
type BooleanQuery struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Query  string  `json:"query" yaml:"query"`
	Groups []Group `json:"groups" yaml:"groups"`
}

// IsEmpty reports whether the query has no terms.
func (q BooleanQuery) IsEmpty() bool {
	return q.Query == ""
}

// Parts returns the quoted terms of each facet group.
func (q BooleanQuery) Parts() map[types.Facet][]string {
	out := make(map[types.Facet][]string, len(q.Groups))
	for _, g := range q.Groups {
		out[g.Facet] = append(out[g.Facet], g.Quoted()...)
	}
	return out
}

// Terms returns every quoted term in group order.
func (q BooleanQuery) Terms() []string {
	var out []string
	for _, g := range q.Groups {
		out = append(out, g.Quoted()...)
	}
	return out
}

// Render reconstructs the Boolean string from Groups.
func (q BooleanQuery) Render() string {
	if q.Kind == KindBroad {
		return orGroup(q.Terms(), false)
	}
	parts := make([]string, 0, len(q.Groups))
	for _, g := range q.Groups {
		if len(g.Terms) == 0 {
			continue
		}
		parts = append(parts, orGroup(g.Quoted(), g.Facet == types.FacetTopic))
	}
	return strings.Join(parts, " AND ")
}

func orGroup(terms []string, forceParens bool) string {
	switch {
	case len(terms) == 0:
		return ""
	case len(terms) == 1 && !forceParens:
		return terms[0]
	default:
		return "(" + strings.Join(terms, " OR ") + ")"
	}
}

// BuildStrict assembles the high-precision query. Facets are visited in
// Population, Intervention, Comparison, Outcome, Context order; each
// non-empty facet becomes an OR-group and groups are joined with AND. A
// non-blank topic becomes the first group and is always parenthesised.
// The result is empty when no facet has terms.
func BuildStrict(terms types.FacetTerms, topic string) BooleanQuery {
	q := BooleanQuery{Kind: KindStrict}
	for _, f := range types.Facets {
		cleaned := CleanTerms(terms[f])
		if len(cleaned) == 0 {
			continue
		}
		q.Groups = append(q.Groups, Group{Facet: f, Terms: cleaned})
	}
	if len(q.Groups) == 0 {
		return q
	}
	if t := NormalizeTerm(topic); t != "" {
		q.Groups = append([]Group{{Facet: types.FacetTopic, Terms: []string{t}}}, q.Groups...)
	}
	q.Query = q.Render()
	return q
}

// BuildBroadRecall pools the topic and every facet term into one OR-bucket,
// in topic, Intervention, Population, Comparison, Outcome, Context order,
// deduplicated case-insensitively.
func BuildBroadRecall(topic string, terms types.FacetTerms) BooleanQuery {
	pool := []string{topic}
	for _, f := range types.BroadFacets {
		pool = append(pool, terms[f]...)
	}
	q := BooleanQuery{Kind: KindBroad}
	cleaned := CleanTerms(pool)
	if len(cleaned) == 0 {
		return q
	}
	q.Groups = []Group{{Terms: cleaned}}
	q.Query = q.Render()
	return q
}
