// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query builds Boolean search expressions from curated PICOC facet
// terms and expands them into field-qualified syntax for a bibliographic
// backend.
package query

import (
	"regexp"
	"strings"
)

var (
	dashRe       = regexp.MustCompile("[\u2010-\u2015\u2212]")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// quotePairs lists the surrounding quote characters removed by NormalizeTerm.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"},
}

// NormalizeTerm produces the canonical form of a raw term: unicode dashes
// become ASCII hyphens, whitespace is trimmed and collapsed, and surrounding
// quote characters are removed. NormalizeTerm(NormalizeTerm(x)) equals
// NormalizeTerm(x).
func NormalizeTerm(raw string) string {
	t := dashRe.ReplaceAllString(raw, "-")
	t = strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
	for {
		stripped := stripQuotes(t)
		if stripped == t {
			return t
		}
		t = strings.TrimSpace(stripped)
	}
}

func stripQuotes(t string) string {
	for _, p := range quotePairs {
		if len(t) >= len(p[0])+len(p[1]) && strings.HasPrefix(t, p[0]) && strings.HasSuffix(t, p[1]) {
			return t[len(p[0]) : len(t)-len(p[1])]
		}
	}
	return t
}

// QuoteTerm renders a canonical term for a Boolean expression. Terms
// containing a space, a hyphen, or expression syntax are wrapped in double
// quotes with internal quotes and backslashes escaped, as are the bare
// words AND and OR. Other single tokens stay bare.
func QuoteTerm(canonical string) string {
	if !strings.ContainsAny(canonical, ` -()"\`) && canonical != "AND" && canonical != "OR" {
		return canonical
	}
	t := strings.ReplaceAll(canonical, `\`, `\\`)
	t = strings.ReplaceAll(t, `"`, `\"`)
	return `"` + t + `"`
}

// CleanTerms normalizes each raw term, drops empties, and removes
// case-insensitive duplicates while keeping first-seen order.
func CleanTerms(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		t := NormalizeTerm(r)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
