// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokAnd
	tokOr
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits a Boolean expression into terms, operators, and
// parentheses. Quoted terms may contain escaped quotes and backslashes.
// Consecutive bare words form one term.
func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	var bare []string
	bareStart := 0
	flush := func() {
		if len(bare) > 0 {
			toks = append(toks, token{kind: tokTerm, text: strings.Join(bare, " "), pos: bareStart})
			bare = nil
		}
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			flush()
			toks = append(toks, token{kind: tokOpen, pos: i})
			i++
		case r == ')':
			flush()
			toks = append(toks, token{kind: tokClose, pos: i})
			i++
		case r == '"':
			flush()
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				if rs[i] == '\\' && i+1 < len(rs) && (rs[i+1] == '"' || rs[i+1] == '\\') {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if rs[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote at offset %d", start)
			}
			toks = append(toks, token{kind: tokTerm, text: b.String(), pos: start})
		default:
			start := i
			var b strings.Builder
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '(' && rs[i] != ')' && rs[i] != '"' {
				if rs[i] == '\\' && i+1 < len(rs) && rs[i+1] == '"' {
					b.WriteRune('"')
					i += 2
					continue
				}
				b.WriteRune(rs[i])
				i++
			}
			word := b.String()
			switch word {
			case "AND":
				flush()
				toks = append(toks, token{kind: tokAnd, pos: start})
			case "OR":
				flush()
				toks = append(toks, token{kind: tokOr, pos: start})
			default:
				if len(bare) == 0 {
					bareStart = start
				}
				bare = append(bare, word)
			}
		}
	}
	flush()
	return toks, nil
}

// ParseBoolean parses an AND-of-OR expression, as produced by BuildStrict
// or BuildBroadRecall, into groups of canonical terms. Nested parentheses
// and empty groups are rejected.
func ParseBoolean(s string) ([][]string, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, nil
	}

	var groups [][]string
	i := 0
	for {
		group, next, err := parseGroup(toks, i)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
		i = next
		if i == len(toks) {
			return groups, nil
		}
		if toks[i].kind != tokAnd {
			return nil, fmt.Errorf("expected AND at offset %d", toks[i].pos)
		}
		i++
		if i == len(toks) {
			return nil, fmt.Errorf("dangling AND at end of expression")
		}
	}
}

// parseGroup reads either a parenthesised OR-list or a bare OR-list of
// terms starting at toks[i].
func parseGroup(toks []token, i int) ([]string, int, error) {
	paren := toks[i].kind == tokOpen
	if paren {
		i++
	}
	var terms []string
	for {
		if i >= len(toks) {
			if paren {
				return nil, i, fmt.Errorf("unbalanced parenthesis")
			}
			return nil, i, fmt.Errorf("expected term at end of expression")
		}
		t := toks[i]
		if t.kind != tokTerm {
			return nil, i, fmt.Errorf("expected term at offset %d", t.pos)
		}
		if c := NormalizeTerm(t.text); c != "" {
			terms = append(terms, c)
		}
		i++
		if i < len(toks) && toks[i].kind == tokOr {
			i++
			continue
		}
		break
	}
	if paren {
		if i >= len(toks) || toks[i].kind != tokClose {
			return nil, i, fmt.Errorf("unbalanced parenthesis")
		}
		i++
	}
	if len(terms) == 0 {
		return nil, i, fmt.Errorf("empty group")
	}
	return terms, i, nil
}

// FromBoolean builds a BooleanQuery from a hand-edited expression. A single
// group is treated as a broad OR-bucket, several groups as a strict query.
func FromBoolean(s string) (BooleanQuery, error) {
	groups, err := ParseBoolean(s)
	if err != nil {
		return BooleanQuery{}, fmt.Errorf("parsing boolean query: %w", err)
	}
	q := BooleanQuery{Kind: KindStrict}
	if len(groups) == 1 {
		q.Kind = KindBroad
	}
	for _, g := range groups {
		q.Groups = append(q.Groups, Group{Terms: g})
	}
	q.Query = q.Render()
	return q, nil
}
