// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-engine/internal/arxiv"
	"github.com/pdiddy/slr-engine/internal/classify"
	"github.com/pdiddy/slr-engine/internal/dedup"
	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/internal/quality"
	"github.com/pdiddy/slr-engine/internal/query"
	"github.com/pdiddy/slr-engine/internal/session"
	"github.com/pdiddy/slr-engine/internal/store"
	"github.com/pdiddy/slr-engine/pkg/types"
)

type fakeFetcher struct {
	records []types.Record
	err     error
	query   string
}

func (f *fakeFetcher) FetchAll(_ context.Context, q string, _ arxiv.FetchOptions) ([]types.Record, error) {
	f.query = q
	return f.records, f.err
}

func fetched() []types.Record {
	return []types.Record{
		{ID: "1", Title: "LLM Test Generation", Published: "2023-03-01T00:00:00Z", Category: "cs.SE"},
		{ID: "2", Title: "LLM test generation!", Published: "2024-03-01T00:00:00Z", Category: "cs.SE"},
		{ID: "3", Title: "Old testing study", Published: "2010-01-01T00:00:00Z", Category: "cs.SE"},
		{ID: "4", Title: "Protein folding", Published: "2022-01-01T00:00:00Z", Category: "q-bio.BM"},
		{ID: "5", Title: "Fuzzing with LLMs", Published: "2023-06-01T00:00:00Z", Category: "cs.CR"},
	}
}

func testSession() session.Session {
	s := session.New("test generation").
		WithFacetTerms(types.FacetIntervention, []string{"large language model"}).
		WithFacetTerms(types.FacetOutcome, []string{"unit test"}).
		WithPolicy(types.ScreeningPolicy{
			Include: []string{"Generates tests with an LLM"},
			Years:   &types.YearWindow{From: 2015, To: 2025},
		})
	return s.WithChecklist(session.Checklist{Questions: []quality.Question{{Text: "Is the aim clear?"}}})
}

func testOptions() Options {
	return Options{
		Fields:    []query.Field{query.FieldTitle},
		DedupKey:  dedup.KeyNormalizedTitle,
		DedupRule: dedup.RuleKeepFirst,
		Screen:    types.ScreenConfig{DomainPrefix: "cs."},
	}
}

func TestRunRuleStagesOnly(t *testing.T) {
	f := &fakeFetcher{records: fetched()}
	p := &Pipeline{Fetcher: f}

	rep, err := p.Run(context.Background(), testSession(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, `ti:"test generation" AND ti:"large language model" AND ti:"unit test"`, f.query)
	assert.Len(t, rep.Raw, 5)
	assert.Len(t, rep.Deduped, 4)
	assert.Equal(t, 1, rep.DupsRemoved)
	assert.Len(t, rep.Screened.Included, 2)
	assert.Len(t, rep.Screened.Excluded, 2)
	assert.Equal(t, rep.Screened.Included, rep.Final())

	var outcomes []Outcome
	for _, s := range rep.Stages {
		outcomes = append(outcomes, s.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomeOK, OutcomeOK, OutcomeOK, OutcomeSkipped, OutcomeSkipped}, outcomes)
}

type scriptedLLM struct {
	fn func(req llm.Request) (string, error)
}

func (s scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	return s.fn(req)
}

func TestRunFullWithStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "slr.db"))
	require.NoError(t, err)
	defer st.Close()

	model := scriptedLLM{fn: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, `"results"`) {
			// Classification batch of two: include the first, exclude the second.
			return `{"results": [{"decision": "include", "reason": "on topic"}, {"decision": "exclude"}]}`, nil
		}
		return `{"answers": ["Y"], "decision": "include"}`, nil
	}}

	p := &Pipeline{
		Fetcher:    &fakeFetcher{records: fetched()},
		Classifier: &classify.Screener{LLM: model, BatchSize: 5},
		Scorer:     quality.NewScorer(model, nil),
		Store:      st,
	}
	rep, err := p.Run(ctx, testSession(), testOptions())
	require.NoError(t, err)
	require.NotEmpty(t, rep.RunID)

	require.NotNil(t, rep.Classified)
	assert.Len(t, rep.Classified.Included, 1)
	require.NotNil(t, rep.Scored)
	require.Len(t, rep.Scored.Scored, 1)
	assert.Equal(t, 1.0, rep.Scored.Scored[0].TotalScore)
	require.Len(t, rep.Final(), 1)
	assert.Equal(t, "1", rep.Final()[0].ID)

	counts, err := st.StageCounts(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, 5, counts[store.StageRaw])
	assert.Equal(t, 4, counts[store.StageDeduped])
	assert.Equal(t, 2, counts[store.StageIncluded])
	assert.Equal(t, 1, counts[store.StageAIInclude])
	assert.Equal(t, 1, counts[store.StageAIExclude])

	scores, err := st.Scores(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestRunFetchFailureKeepsPartial(t *testing.T) {
	pe := &arxiv.PageError{Start: 2, Err: errors.New("HTTP 503")}
	p := &Pipeline{Fetcher: &fakeFetcher{records: fetched()[:2], err: pe}}

	rep, err := p.Run(context.Background(), testSession(), testOptions())
	require.Error(t, err)
	got, ok := arxiv.IsPageError(err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Start)

	assert.Len(t, rep.Raw, 2)
	require.Len(t, rep.Stages, 1)
	assert.Equal(t, OutcomePartial, rep.Stages[0].Outcome)
}

func TestRunClassifyFailureStops(t *testing.T) {
	boom := errors.New("bad gateway")
	model := scriptedLLM{fn: func(llm.Request) (string, error) { return "", boom }}
	p := &Pipeline{
		Fetcher:    &fakeFetcher{records: fetched()},
		Classifier: &classify.Screener{LLM: model, BatchSize: 1},
		Scorer:     quality.NewScorer(model, nil),
	}

	rep, err := p.Run(context.Background(), testSession(), testOptions())
	require.ErrorIs(t, err, boom)
	sr, ok := rep.Stage("classify")
	require.True(t, ok)
	assert.Equal(t, OutcomeFailed, sr.Outcome)
	assert.Len(t, rep.Classified.Remaining, 2)
	_, ok = rep.Stage("score")
	assert.False(t, ok)
}

func TestBuildQuery(t *testing.T) {
	sess := testSession()

	q, err := BuildQuery(sess, Options{Kind: query.KindBroad})
	require.NoError(t, err)
	assert.Equal(t, query.KindBroad, q.Kind)

	q, err = BuildQuery(sess, Options{Boolean: `("a" OR "b") AND ("c")`})
	require.NoError(t, err)
	assert.Equal(t, query.KindStrict, q.Kind)
	assert.Len(t, q.Groups, 2)

	_, err = BuildQuery(session.New("only a topic"), Options{})
	assert.Error(t, err)
}
