// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-engine/pkg/types"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deep Learning for X", "deep learning for x"},
		{"  deep   learning: for X!", "deep learning for x"},
		{"State-of-the-Art", "state of the art"},
		{"Ünïcode Títles", "ünïcode títles"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupCaseInsensitiveTitles(t *testing.T) {
	records := []types.Record{
		{ID: "1", Title: "Deep Learning for X"},
		{ID: "2", Title: "deep learning for x"},
	}
	out, dropped := Dedup(records, KeyNormalizedTitle, RuleKeepFirst)
	require.Len(t, out, 1)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "1", out[0].ID)
}

func TestDedupKeepLatest(t *testing.T) {
	records := []types.Record{
		{ID: "a", Title: "Paper", Published: "2019-05-01"},
		{ID: "b", Title: "Other", Published: "2020-01-01"},
		{ID: "c", Title: "paper", Published: "2021-05-01"},
		{ID: "d", Title: "PAPER", Published: "2021-12-31"}, // same year, not strictly greater
		{ID: "e", Title: "paper.", Published: "2018-01-01"},
	}
	out, dropped := Dedup(records, KeyNormalizedTitle, RuleKeepLatest)
	require.Len(t, out, 2)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, "c", out[0].ID, "replacement keeps first-seen slot")
	assert.Equal(t, "b", out[1].ID)
}

func TestDedupKeepLatestMissingYear(t *testing.T) {
	records := []types.Record{
		{ID: "a", Title: "Paper"},
		{ID: "b", Title: "Paper", Published: "2001"},
	}
	out, _ := Dedup(records, KeyNormalizedTitle, RuleKeepLatest)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestDedupByExternalID(t *testing.T) {
	records := []types.Record{
		{ID: "2301.07041", Title: "A"},
		{ID: " 2301.07041 ", Title: "B"},
		{ID: "", Title: "C"},
		{ID: "", Title: "D"},
	}
	out, dropped := Dedup(records, KeyExternalID, RuleKeepFirst)
	assert.Equal(t, 1, dropped)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"A", "C", "D"}, []string{out[0].Title, out[1].Title, out[2].Title})
}

func TestDedupByTitleYear(t *testing.T) {
	records := []types.Record{
		{ID: "1", Title: "Same", Published: "2020-01-01"},
		{ID: "2", Title: "same", Published: "2021-01-01"},
		{ID: "3", Title: "SAME", Published: "2020-06-01"},
	}
	out, dropped := Dedup(records, KeyTitleYear, RuleKeepFirst)
	assert.Equal(t, 1, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "2", out[1].ID)
}

func TestDedupIdempotent(t *testing.T) {
	records := []types.Record{
		{ID: "1", Title: "Alpha", Published: "2020"},
		{ID: "2", Title: "alpha!", Published: "2022"},
		{ID: "3", Title: "Beta", Published: "2021"},
		{ID: "4", Title: "", Published: "2021"},
		{ID: "5", Title: "beta", Published: "2019"},
	}
	for _, key := range []Key{KeyNormalizedTitle, KeyExternalID, KeyTitleYear} {
		for _, rule := range []Rule{RuleKeepFirst, RuleKeepLatest} {
			once, _ := Dedup(records, key, rule)
			twice, dropped := Dedup(once, key, rule)
			assert.Equal(t, once, twice, "key=%s rule=%s", key, rule)
			assert.Zero(t, dropped, "key=%s rule=%s", key, rule)
		}
	}
}

func TestDedupDoesNotAliasInput(t *testing.T) {
	records := []types.Record{{ID: "1", Title: "A", Authors: []string{"x"}}}
	out, _ := Dedup(records, KeyNormalizedTitle, RuleKeepFirst)
	out[0].Authors[0] = "changed"
	assert.Equal(t, "x", records[0].Authors[0])
}

func TestParseKeyAndRule(t *testing.T) {
	k, err := ParseKey("title+year")
	require.NoError(t, err)
	assert.Equal(t, KeyTitleYear, k)

	k, err = ParseKey("")
	require.NoError(t, err)
	assert.Equal(t, KeyNormalizedTitle, k)

	_, err = ParseKey("doi")
	assert.Error(t, err)

	r, err := ParseRule("latest")
	require.NoError(t, err)
	assert.Equal(t, RuleKeepLatest, r)

	_, err = ParseRule("random")
	assert.Error(t, err)
}
