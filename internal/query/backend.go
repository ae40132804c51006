// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"strings"
)

// Field is an abstract search field, mapped to backend syntax by a Backend.
type Field string

const (
	FieldTitle    Field = "title"
	FieldAbstract Field = "abstract"
	FieldAuthor   Field = "author"
	FieldCategory Field = "category"
	FieldAll      Field = "all"
)

// DefaultFields is used when the caller selects no target fields.
var DefaultFields = []Field{FieldTitle, FieldAbstract}

// ParseFields converts field names into Fields. Empty input yields
// DefaultFields.
func ParseFields(names []string) ([]Field, error) {
	var out []Field
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		switch f := Field(n); f {
		case FieldTitle, FieldAbstract, FieldAuthor, FieldCategory, FieldAll:
			out = append(out, f)
		case "ti":
			out = append(out, FieldTitle)
		case "abs":
			out = append(out, FieldAbstract)
		default:
			return nil, fmt.Errorf("unknown search field %q", n)
		}
	}
	if len(out) == 0 {
		return append([]Field(nil), DefaultFields...), nil
	}
	return out, nil
}

// Backend maps abstract fields onto a bibliographic API's query syntax.
type Backend interface {
	// Name returns the backend identifier (e.g. "arxiv").
	Name() string

	// FieldPrefix returns the backend's prefix for f, or false when the
	// backend cannot search that field.
	FieldPrefix(f Field) (string, bool)
}

// ArxivBackend expands fields into arXiv search_query prefixes.
type ArxivBackend struct{}

// Name returns "arxiv".
func (ArxivBackend) Name() string { return "arxiv" }

var arxivPrefixes = map[Field]string{
	FieldTitle:    "ti",
	FieldAbstract: "abs",
	FieldAuthor:   "au",
	FieldCategory: "cat",
	FieldAll:      "all",
}

// FieldPrefix returns ti, abs, au, cat, or all.
func (ArxivBackend) FieldPrefix(f Field) (string, bool) {
	p, ok := arxivPrefixes[f]
	return p, ok
}

// Expand renders q in the backend's field-qualified syntax. Each term
// becomes an OR across the target fields, e.g. (ti:"quick sort" OR
// abs:"quick sort"). Term groups are joined with OR inside a group and AND
// across groups for strict queries; a broad query is one OR-bucket.
func Expand(q BooleanQuery, fields []Field, b Backend) (string, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	prefixes := make([]string, 0, len(fields))
	for _, f := range fields {
		p, ok := b.FieldPrefix(f)
		if !ok {
			return "", fmt.Errorf("backend %s does not support field %q", b.Name(), f)
		}
		prefixes = append(prefixes, p)
	}

	if q.Kind == KindBroad {
		var all []string
		for _, g := range q.Groups {
			all = append(all, g.Terms...)
		}
		return orGroup(expandTerms(all, prefixes), false), nil
	}

	var groups []string
	for _, g := range q.Groups {
		if len(g.Terms) == 0 {
			continue
		}
		groups = append(groups, orGroup(expandTerms(g.Terms, prefixes), false))
	}
	return strings.Join(groups, " AND "), nil
}

func expandTerms(terms []string, prefixes []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(NormalizeTerm(t), `"`, `\"`)
		if t == "" {
			continue
		}
		pieces := make([]string, len(prefixes))
		for i, p := range prefixes {
			pieces[i] = p + `:"` + t + `"`
		}
		out = append(out, orGroup(pieces, false))
	}
	return out
}
