// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses near-duplicate candidate records under a
// configurable key and conflict rule.
package dedup

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Key selects how two records are judged to be duplicates.
type Key string

const (
	KeyNormalizedTitle Key = "normalized_title"
	KeyExternalID      Key = "external_id"
	KeyTitleYear       Key = "title_year"
)

// Rule decides which of two duplicates survives.
type Rule string

const (
	// RuleKeepFirst keeps the first occurrence.
	RuleKeepFirst Rule = "keep_first"

	// RuleKeepLatest replaces the stored record when a duplicate has a
	// strictly greater publication year.
	RuleKeepLatest Rule = "keep_latest"
)

// ParseKey accepts the canonical names and a few spellings used on the
// command line ("title", "id", "title+year").
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normalized_title", "normalized-title", "title":
		return KeyNormalizedTitle, nil
	case "external_id", "external-id", "id":
		return KeyExternalID, nil
	case "title_year", "title-year", "title+year":
		return KeyTitleYear, nil
	default:
		return "", fmt.Errorf("unknown dedup key %q", s)
	}
}

// ParseRule accepts keep_first and keep_latest (or first, latest).
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep_first", "keep-first", "first":
		return RuleKeepFirst, nil
	case "keep_latest", "keep-latest", "latest", "keep_latest_by_year":
		return RuleKeepLatest, nil
	default:
		return "", fmt.Errorf("unknown dedup rule %q", s)
	}
}

// NormalizeTitle lowercases a title, turns every non-alphanumeric
// character into a space, and collapses whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// KeyOf returns the dedup key of r. An empty key means r has nothing to
// compare on.
func KeyOf(r types.Record, key Key) string {
	switch key {
	case KeyExternalID:
		return strings.ToLower(strings.TrimSpace(r.ID))
	case KeyTitleYear:
		t := NormalizeTitle(r.Title)
		if t == "" {
			return ""
		}
		y, _ := r.Year()
		return t + "::" + strconv.Itoa(y)
	default:
		return NormalizeTitle(r.Title)
	}
}

// Dedup returns the surviving records in order of first appearance and the
// number dropped. Under RuleKeepLatest a replacement takes the slot of the
// record it replaces. Records with an empty key are always kept.
func Dedup(records []types.Record, key Key, rule Rule) ([]types.Record, int) {
	seen := make(map[string]int, len(records))
	out := make([]types.Record, 0, len(records))
	dropped := 0

	for _, r := range records {
		k := KeyOf(r, key)
		if k == "" {
			out = append(out, r.Clone())
			continue
		}
		idx, ok := seen[k]
		if !ok {
			seen[k] = len(out)
			out = append(out, r.Clone())
			continue
		}
		dropped++
		if rule == RuleKeepLatest {
			oldYear, _ := out[idx].Year()
			newYear, _ := r.Year()
			if newYear > oldYear {
				out[idx] = r.Clone()
			}
		}
	}
	return out, dropped
}
