// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen applies deterministic inclusion filters (publication year
// window, category domain, category allow-list) to candidate records.
package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// DefaultDomainPrefix restricts records to computer science categories.
const DefaultDomainPrefix = "cs."

// Rules are the deterministic filters. Zero year bounds are open; an empty
// DomainPrefix or Allowed list disables that check.
type Rules struct {
	YearFrom     int
	YearTo       int
	DomainPrefix string
	Allowed      []string
}

// RulesFromPolicy builds Rules from the policy year window and the screen
// configuration.
func RulesFromPolicy(p types.ScreeningPolicy, cfg types.ScreenConfig) Rules {
	r := Rules{
		DomainPrefix: cfg.DomainPrefix,
		Allowed:      append([]string(nil), cfg.Categories...),
	}
	if p.Years != nil {
		r.YearFrom, r.YearTo = p.Years.From, p.Years.To
	}
	return r
}

// Result partitions the screened records. Every input record lands in
// exactly one of the two slices.
type Result struct {
	Included []types.Record
	Excluded []types.Record
}

// Screen applies the rules in order (year, domain, allow-list) and stops
// at the first failing rule. Records whose year cannot be parsed pass the
// year check. Excluded copies carry the reason.
func Screen(records []types.Record, rules Rules) Result {
	allowed := make(map[string]bool, len(rules.Allowed))
	for _, c := range rules.Allowed {
		if c = strings.TrimSpace(c); c != "" {
			allowed[c] = true
		}
	}

	res := Result{
		Included: make([]types.Record, 0, len(records)),
		Excluded: make([]types.Record, 0),
	}
	for _, r := range records {
		if reason := rules.reason(r, allowed); reason != "" {
			c := r.Clone()
			c.Reason = reason
			res.Excluded = append(res.Excluded, c)
			continue
		}
		res.Included = append(res.Included, r.Clone())
	}
	return res
}

func (rules Rules) reason(r types.Record, allowed map[string]bool) string {
	if y, ok := r.Year(); ok {
		if (rules.YearFrom > 0 && y < rules.YearFrom) || (rules.YearTo > 0 && y > rules.YearTo) {
			return fmt.Sprintf("year %d outside [%s-%s]", y, bound(rules.YearFrom), bound(rules.YearTo))
		}
	}

	cat := strings.TrimSpace(r.Category)
	if rules.DomainPrefix != "" && !strings.HasPrefix(cat, rules.DomainPrefix) {
		if cat == "" {
			cat = "N/A"
		}
		return fmt.Sprintf("non-%s category: %s", strings.ToUpper(strings.TrimSuffix(rules.DomainPrefix, ".")), cat)
	}

	if len(allowed) > 0 && !allowed[cat] {
		return fmt.Sprintf("category not in selected sources: %s", cat)
	}
	return ""
}

func bound(y int) string {
	if y <= 0 {
		return "*"
	}
	return strconv.Itoa(y)
}
