// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-engine/pkg/types"
)

func TestScreenYearOutsideWindow(t *testing.T) {
	records := []types.Record{{ID: "1", Title: "Old", Published: "2010-03-01", Category: "cs.SE"}}
	res := Screen(records, Rules{YearFrom: 2015, YearTo: 2025, DomainPrefix: DefaultDomainPrefix})

	assert.Empty(t, res.Included)
	require.Len(t, res.Excluded, 1)
	assert.Contains(t, res.Excluded[0].Reason, "2010")
	assert.Contains(t, res.Excluded[0].Reason, "2015-2025")
	assert.Equal(t, "year 2010 outside [2015-2025]", res.Excluded[0].Reason)
	assert.Empty(t, records[0].Reason, "input must not be mutated")
}

func TestScreenRules(t *testing.T) {
	rules := Rules{
		YearFrom:     2015,
		DomainPrefix: "cs.",
		Allowed:      []string{"cs.SE", "cs.LG"},
	}
	tests := []struct {
		name   string
		rec    types.Record
		reason string
	}{
		{"passes", types.Record{Published: "2020-01-01", Category: "cs.SE"}, ""},
		{"unparsable year passes", types.Record{Published: "unknown", Category: "cs.LG"}, ""},
		{"open upper bound", types.Record{Published: "2099-01-01", Category: "cs.SE"}, ""},
		{"too old", types.Record{Published: "2001-01-01", Category: "cs.SE"}, "year 2001 outside [2015-*]"},
		{"non cs", types.Record{Published: "2020-01-01", Category: "math.CO"}, "non-CS category: math.CO"},
		{"missing category", types.Record{Published: "2020-01-01"}, "non-CS category: N/A"},
		{"not allowed", types.Record{Published: "2020-01-01", Category: "cs.AI"}, "category not in selected sources: cs.AI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Screen([]types.Record{tt.rec}, rules)
			if tt.reason == "" {
				assert.Len(t, res.Included, 1)
				assert.Empty(t, res.Excluded)
				return
			}
			require.Len(t, res.Excluded, 1)
			assert.Equal(t, tt.reason, res.Excluded[0].Reason)
		})
	}
}

func TestScreenDisabledChecks(t *testing.T) {
	records := []types.Record{
		{Published: "1990-01-01", Category: "physics.gen-ph"},
		{Published: "2030-01-01", Category: ""},
	}
	res := Screen(records, Rules{})
	assert.Len(t, res.Included, 2)
	assert.Empty(t, res.Excluded)
}

func TestScreenPartition(t *testing.T) {
	var records []types.Record
	cats := []string{"cs.SE", "cs.AI", "math.ST", "", "cs.LG"}
	for i := 0; i < 50; i++ {
		records = append(records, types.Record{
			ID:        string(rune('a' + i%26)),
			Published: []string{"2012-01-01", "2018-01-01", "2024-01-01", "n/a"}[i%4],
			Category:  cats[i%len(cats)],
		})
	}
	res := Screen(records, Rules{YearFrom: 2015, YearTo: 2023, DomainPrefix: "cs.", Allowed: []string{"cs.SE", "cs.LG"}})
	assert.Equal(t, len(records), len(res.Included)+len(res.Excluded))
	for _, r := range res.Excluded {
		assert.NotEmpty(t, r.Reason)
	}
	for _, r := range res.Included {
		assert.Empty(t, r.Reason)
	}
}

func TestRulesFromPolicy(t *testing.T) {
	p := types.ScreeningPolicy{Years: &types.YearWindow{From: 2015, To: 2025}}
	r := RulesFromPolicy(p, types.ScreenConfig{DomainPrefix: "cs.", Categories: []string{"cs.SE"}})
	assert.Equal(t, 2015, r.YearFrom)
	assert.Equal(t, 2025, r.YearTo)
	assert.Equal(t, "cs.", r.DomainPrefix)
	assert.Equal(t, []string{"cs.SE"}, r.Allowed)

	r = RulesFromPolicy(types.ScreeningPolicy{}, types.ScreenConfig{})
	assert.Zero(t, r.YearFrom)
	assert.Zero(t, r.YearTo)
}
