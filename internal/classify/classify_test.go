// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// fakeLLM returns canned responses in order and records every request.
type fakeLLM struct {
	responses []string
	errAt     int // 1-based call that fails; 0 never fails
	err       error
	requests  []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.errAt == n {
		return "", f.err
	}
	if n <= len(f.responses) {
		return f.responses[n-1], nil
	}
	return `{"results": []}`, nil
}

func papers(n int) []types.Record {
	out := make([]types.Record, n)
	for i := range out {
		out[i] = types.Record{
			ID:        fmt.Sprintf("2401.%05d", i+1),
			Title:     fmt.Sprintf("Paper %d", i+1),
			Summary:   "An abstract.",
			Published: "2024-01-02T00:00:00Z",
			Authors:   []string{"Ada Lovelace", "Alan Turing"},
			Category:  "cs.SE",
			Link:      fmt.Sprintf("https://arxiv.org/abs/2401.%05d", i+1),
		}
	}
	return out
}

var policy = types.ScreeningPolicy{
	ResearchQuestions: []string{"How are LLMs used for test generation?"},
	Include:           []string{"Uses a large language model", "Evaluates generated tests"},
	Exclude:           []string{"Not peer reviewed"},
}

func TestClassifyPadsShortResults(t *testing.T) {
	// Three papers, two results: the third is padded as unsure.
	f := &fakeLLM{responses: []string{"```json\n" + `{"results": [
		{"id": "2401.00001", "decision": "include", "reason": "uses GPT-4", "matched_rules": ["I1", "I2"]},
		{"id": "2401.00002", "decision": "exclude", "reason": "survey", "matched_rules": "E1"}
	]}` + "\n```"}}
	core, logs := observer.New(zap.WarnLevel)
	s := &Screener{LLM: f, BatchSize: 10, Log: zap.New(core)}

	res, err := s.Classify(context.Background(), papers(3), policy)
	require.NoError(t, err)

	require.Len(t, res.Included, 1)
	require.Len(t, res.Excluded, 1)
	require.Len(t, res.Unsure, 1)
	assert.Equal(t, 3, res.Classified())
	assert.Equal(t, []BatchState{BatchParsed}, res.Batches)

	assert.Equal(t, "2401.00001", res.Included[0].ID)
	assert.Equal(t, []string{"I1", "I2"}, res.Included[0].AIMatchedRules)
	assert.Equal(t, []string{"E1"}, res.Excluded[0].AIMatchedRules)
	assert.Equal(t, "2401.00003", res.Unsure[0].ID)
	assert.Equal(t, types.DecisionUnsure, res.Unsure[0].AIDecision)

	assert.Equal(t, 1, logs.FilterMessage("model returned wrong number of results").Len())
}

func TestClassifyTruncatesAndNormalizes(t *testing.T) {
	f := &fakeLLM{responses: []string{`{"results": [
		{"decision": "INCLUDE"},
		{"decision": "maybe"},
		{"decision": "exclude"}
	]}`}}
	s := &Screener{LLM: f, BatchSize: 2}

	res, err := s.Classify(context.Background(), papers(2), policy)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Classified())
	require.Len(t, res.Included, 1)
	require.Len(t, res.Unsure, 1)
	assert.Equal(t, "2401.00002", res.Unsure[0].ID)
}

func TestClassifyBatching(t *testing.T) {
	f := &fakeLLM{}
	s := &Screener{LLM: f, BatchSize: 4}

	in := papers(10)
	res, err := s.Classify(context.Background(), in, policy)
	require.NoError(t, err)

	require.Len(t, f.requests, 3)
	assert.Equal(t, len(in), res.Classified())
	assert.Len(t, res.Batches, 3)

	// Each payload embeds the policy and only its own papers, in order.
	first := f.requests[0].Prompt
	assert.Contains(t, first, "RQ1. How are LLMs used for test generation?")
	assert.Contains(t, first, "I2. Evaluates generated tests")
	assert.Contains(t, first, "E1. Not peer reviewed")
	assert.Contains(t, first, "authors: Ada Lovelace, Alan Turing")
	assert.Contains(t, first, "year: 2024")
	assert.Less(t, strings.Index(first, "2401.00001"), strings.Index(first, "2401.00004"))
	assert.NotContains(t, first, "2401.00005")
	assert.Contains(t, f.requests[2].Prompt, "2401.00010")
	assert.Equal(t, systemPrompt, f.requests[0].System)
}

func TestClassifyUnparsedBatch(t *testing.T) {
	f := &fakeLLM{responses: []string{"I cannot help with that."}}
	s := &Screener{LLM: f, BatchSize: 5}

	res, err := s.Classify(context.Background(), papers(3), policy)
	require.NoError(t, err)
	require.Len(t, res.Unsure, 3)
	assert.Equal(t, 1, res.Unparsed())
	for _, r := range res.Unsure {
		assert.Equal(t, ReasonUnparsed, r.AIReason)
	}
}

func TestClassifyModelErrorKeepsPartial(t *testing.T) {
	boom := errors.New("bad gateway")
	f := &fakeLLM{
		responses: []string{`{"results": [{"decision": "include"}, {"decision": "exclude"}]}`},
		errAt:     2,
		err:       boom,
	}
	s := &Screener{LLM: f, BatchSize: 2}

	res, err := s.Classify(context.Background(), papers(5), policy)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Batch)
	assert.Equal(t, 2, be.Start)

	assert.Equal(t, 2, res.Classified())
	require.Len(t, res.Remaining, 3)
	assert.Equal(t, "2401.00003", res.Remaining[0].ID)
	assert.Equal(t, []BatchState{BatchParsed, BatchFailed}, res.Batches)
	assert.Len(t, f.requests, 2)
}

func TestClassifyEmptyPolicy(t *testing.T) {
	f := &fakeLLM{}
	s := &Screener{LLM: f}

	res, err := s.Classify(context.Background(), papers(4), types.ScreeningPolicy{})
	require.NoError(t, err)
	assert.Empty(t, f.requests)
	require.Len(t, res.Unsure, 4)
	assert.Equal(t, ReasonNoPolicy, res.Unsure[0].AIReason)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	in := papers(1)
	f := &fakeLLM{responses: []string{`{"results": [{"decision": "include", "matched_rules": ["I1"]}]}`}}
	s := &Screener{LLM: f}

	_, err := s.Classify(context.Background(), in, policy)
	require.NoError(t, err)
	assert.Empty(t, in[0].AIDecision)
	assert.Empty(t, in[0].AIMatchedRules)
}

func TestParseVerdicts(t *testing.T) {
	vs, err := parseVerdicts(`Here: {"results": [{"decision": "include", "matched_rules": "I1, I2"}, 7, {"decision": "exclude"}]}`)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, ruleList{"I1", "I2"}, vs[0].MatchedRules)
	assert.Equal(t, verdict{}, vs[1])
	assert.Equal(t, "exclude", vs[2].Decision)

	_, err = parseVerdicts(`{"results": "none"}`)
	assert.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestFit(t *testing.T) {
	assert.Len(t, fit(nil, 3), 3)
	assert.Len(t, fit(make([]verdict, 5), 3), 3)
	assert.Len(t, fit(make([]verdict, 3), 3), 3)
}

func TestRenderBatchPromptYears(t *testing.T) {
	p := policy
	p.Years = &types.YearWindow{From: 2015}
	out, err := renderBatchPrompt(p, []types.Record{{ID: "x", Title: "T"}})
	require.NoError(t, err)
	assert.Contains(t, out, "Publication years: 2015 to any")
	assert.Contains(t, out, "year: n/a")
	assert.Contains(t, out, "abstract: n/a")
}
