// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-engine/pkg/types"
)

func sample() []types.Record {
	return []types.Record{
		{
			ID:        "1706.03762",
			Title:     "Attention Is All\n  You Need",
			Summary:   "The dominant sequence transduction models...",
			Published: "2017-06-12T17:57:34Z",
			Updated:   "2023-08-02T00:41:18Z",
			Authors:   []string{"Ashish Vaswani", "Noam Shazeer"},
			Category:  "cs.CL",
			Link:      "https://arxiv.org/abs/1706.03762",
		},
		{
			ID:       "old-1",
			Title:    "Legacy work",
			Authors:  []string{"Plato"},
			Category: "math.HO",
			Reason:   "non-CS category: math.HO",
		},
	}
}

func TestToCSLItem(t *testing.T) {
	item := toCSLItem(sample()[0])

	if item.Type != "article" {
		t.Errorf("Type = %q, want %q", item.Type, "article")
	}
	if item.Genre != "Preprint" {
		t.Errorf("Genre = %q, want Preprint", item.Genre)
	}
	if len(item.Author) != 2 {
		t.Fatalf("len(Author) = %d, want 2", len(item.Author))
	}
	if item.Author[0].Family != "Vaswani" || item.Author[0].Given != "Ashish" {
		t.Errorf("Author[0] = %+v", item.Author[0])
	}
	if item.Issued == nil || item.Issued.DateParts[0][0] != 2017 || item.Issued.DateParts[0][2] != 12 {
		t.Errorf("Issued = %+v, want 2017-06-12", item.Issued)
	}

	single := toCSLItem(sample()[1])
	if single.Author[0].Literal != "Plato" {
		t.Errorf("single-token author should be literal, got %+v", single.Author[0])
	}
	if single.Issued != nil {
		t.Errorf("Issued should be nil without a date, got %+v", single.Issued)
	}
}

func TestWriteCSL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSL(&buf, sample()); err != nil {
		t.Fatalf("WriteCSL: %v", err)
	}
	s := buf.String()
	if strings.Count(s, "type: article") != 2 {
		t.Errorf("expected two articles:\n%s", s)
	}
	if !strings.Contains(s, "URL: https://arxiv.org/abs/1706.03762") {
		t.Error("CSL output should carry the landing page URL")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "title", "summary", "published", "updated", "authors", "category", "link", "reason"}, rows[0])
	assert.Equal(t, "Attention Is All You Need", rows[1][1])
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer", rows[1][5])
	assert.Equal(t, "non-CS category: math.HO", rows[2][8])
}

func TestWriteCSVWithoutReasonOrAI(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()[:1]))
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "id,title,summary,published,updated,authors,category,link", header)
}

func TestWriteCSVWithAI(t *testing.T) {
	r := sample()[0]
	r.AIDecision = types.DecisionInclude
	r.AIMatchedRules = []string{"I1", "I2"}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []types.Record{r}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_decision", "ai_reason", "ai_matched_rules"}, rows[0][8:])
	assert.Equal(t, []string{"include", "", "I1;I2"}, rows[1][8:])
}

func TestWriteQualityCSV(t *testing.T) {
	scored := []types.ScoredRecord{{
		Record: sample()[0],
		QA: types.QualityAssessment{
			Answers:        []types.Answer{types.AnswerYes, types.AnswerPartial},
			Justifications: []string{"aim stated"},
		},
		TotalScore:    1.25,
		TotalScorePct: 83.33,
		Decision:      types.DecisionInclude,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteQualityCSV(&buf, scored, 2))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"id", "title", "published", "category", "link",
		"Q1_answer", "Q2_answer", "Q1_why", "Q2_why",
		"total_score", "total_score_pct", "decision",
	}, rows[0])
	assert.Equal(t, []string{"Y", "P", "aim stated", "", "1.25", "83.33", "include"}, rows[1][5:])
}

func TestQualityTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, QualityTemplateCSV(&buf, sample(), 3))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title,Q1,Q2,Q3,total_score", lines[0])
	assert.Equal(t, "old-1,Legacy work,,,,", lines[2])
}

func TestRecordsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Records(&buf, FormatJSON, sample()))
	var got []types.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sample(), got)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, sample())
	s := buf.String()
	assert.Contains(t, s, "Ashish Vaswani et al.")
	assert.Contains(t, s, "non-CS category: math.HO")
	assert.Contains(t, s, "2 records")

	buf.Reset()
	WriteTable(&buf, nil)
	assert.Equal(t, "No records.\n", buf.String())
}

func TestWriteScoreTable(t *testing.T) {
	var buf bytes.Buffer
	WriteScoreTable(&buf, []types.ScoredRecord{{Record: sample()[0], TotalScore: 1.25, TotalScorePct: 83.33, Decision: "include"}}, 1.5)
	assert.Contains(t, buf.String(), "1.25 / 1.5")
	assert.Contains(t, buf.String(), "include")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, " csv ": FormatCSV, "csl": FormatCSL} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
