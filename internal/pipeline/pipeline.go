// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains the review stages: query building, arXiv
// fetch, deduplication, rule screening, and the optional LLM screening and
// quality scoring. Each stage returns its output together with an error,
// and the Report records how every stage ended.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/arxiv"
	"github.com/pdiddy/slr-engine/internal/classify"
	"github.com/pdiddy/slr-engine/internal/dedup"
	"github.com/pdiddy/slr-engine/internal/quality"
	"github.com/pdiddy/slr-engine/internal/query"
	"github.com/pdiddy/slr-engine/internal/screen"
	"github.com/pdiddy/slr-engine/internal/session"
	"github.com/pdiddy/slr-engine/internal/store"
	"github.com/pdiddy/slr-engine/pkg/types"
)

const tracerName = "github.com/pdiddy/slr-engine/internal/pipeline"

// Fetcher retrieves every record matching a backend query.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, opts arxiv.FetchOptions) ([]types.Record, error)
}

// Classifier screens records with a model.
type Classifier interface {
	Classify(ctx context.Context, records []types.Record, policy types.ScreeningPolicy) (*classify.Result, error)
}

// Scorer rates records against a quality checklist.
type Scorer interface {
	Score(ctx context.Context, records []types.Record, checklist types.QualityChecklist, threshold *float64) (*quality.Result, error)
}

// Outcome is how a stage ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StageReport summarizes one stage.
type StageReport struct {
	Name     string
	Outcome  Outcome
	In       int
	Out      int
	Err      error
	Duration time.Duration
}

// Report is the result of a pipeline run. Record sets are filled up to
// the last stage that ran.
type Report struct {
	RunID   string
	Query   query.BooleanQuery
	Backend string

	Stages []StageReport

	Raw         []types.Record
	Deduped     []types.Record
	DupsRemoved int
	Screened    screen.Result
	Classified  *classify.Result
	Scored      *quality.Result
}

// Final returns the candidate set after the last stage that produced one:
// quality includes, else AI includes, else rule-screen includes.
func (r *Report) Final() []types.Record {
	if r.Scored != nil && len(r.Scored.Scored) > 0 {
		include, _, _ := quality.Buckets(r.Scored.Scored, r.Scored.Threshold)
		out := make([]types.Record, len(include))
		for i, sr := range include {
			out[i] = sr.Record
		}
		return out
	}
	if r.Classified != nil {
		return r.Classified.Included
	}
	return r.Screened.Included
}

// Stage returns the report of the named stage.
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Options configures a run.
type Options struct {
	// Kind selects the strict or broad query. Ignored when Boolean is set.
	Kind query.Kind

	// Boolean, when set, replaces the query built from the session facets.
	Boolean string

	Fields []query.Field
	Fetch  arxiv.FetchOptions

	DedupKey  dedup.Key
	DedupRule dedup.Rule

	Screen types.ScreenConfig

	// Threshold is the quality cutoff (see quality.EffectiveThreshold).
	Threshold *float64
}

// Pipeline holds the stage implementations. Classifier and Scorer are
// optional; nil skips the stage. Store, when set, receives every stage's
// output under a new run.
type Pipeline struct {
	Fetcher    Fetcher
	Classifier Classifier
	Scorer     Scorer
	Store      *store.Store
	Log        *zap.Logger
}

// BuildQuery returns the Boolean query for the session and options.
func BuildQuery(sess session.Session, opts Options) (query.BooleanQuery, error) {
	if opts.Boolean != "" {
		return query.FromBoolean(opts.Boolean)
	}
	var q query.BooleanQuery
	if opts.Kind == query.KindBroad {
		q = query.BuildBroadRecall(sess.Topic, sess.Terms())
	} else {
		q = query.BuildStrict(sess.Terms(), sess.Topic)
	}
	if q.IsEmpty() {
		return q, errors.New("no curated facet terms: nothing to search for")
	}
	return q, nil
}

// Run executes every stage in order. A failing stage stops the run: the
// report holds everything produced so far, including the failing stage's
// partial output, and the stage error is returned.
func (p *Pipeline) Run(ctx context.Context, sess session.Session, opts Options) (*Report, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.Int("session.version", sess.Version)))
	defer span.End()

	rep := &Report{Backend: query.ArxivBackend{}.Name()}
	fail := func(err error) (*Report, error) {
		span.SetStatus(codes.Error, err.Error())
		return rep, err
	}

	q, err := BuildQuery(sess, opts)
	if err != nil {
		return fail(err)
	}
	rep.Query = q
	backendQuery, err := query.Expand(q, opts.Fields, query.ArxivBackend{})
	if err != nil {
		return fail(err)
	}
	log.Info("built query", zap.String("kind", string(q.Kind)), zap.String("query", backendQuery))

	if p.Store != nil {
		run, err := p.Store.CreateRun(ctx, sess.Topic, backendQuery, sess.Version)
		if err != nil {
			return fail(err)
		}
		rep.RunID = run.ID
	}

	// Fetch.
	err = p.stage(ctx, rep, "fetch", 0, func(ctx context.Context) (int, error) {
		recs, err := p.Fetcher.FetchAll(ctx, backendQuery, opts.Fetch)
		rep.Raw = recs
		return len(recs), errors.Join(err, p.save(ctx, rep.RunID, store.StageRaw, recs))
	})
	if err != nil {
		return fail(err)
	}

	// Deduplicate.
	err = p.stage(ctx, rep, "dedup", len(rep.Raw), func(ctx context.Context) (int, error) {
		rep.Deduped, rep.DupsRemoved = dedup.Dedup(rep.Raw, opts.DedupKey, opts.DedupRule)
		return len(rep.Deduped), p.save(ctx, rep.RunID, store.StageDeduped, rep.Deduped)
	})
	if err != nil {
		return fail(err)
	}

	// Rule screen.
	err = p.stage(ctx, rep, "screen", len(rep.Deduped), func(ctx context.Context) (int, error) {
		rep.Screened = screen.Screen(rep.Deduped, screen.RulesFromPolicy(sess.Policy, ScreenConfig(opts.Screen, sess)))
		return len(rep.Screened.Included), errors.Join(
			p.save(ctx, rep.RunID, store.StageIncluded, rep.Screened.Included),
			p.save(ctx, rep.RunID, store.StageExcluded, rep.Screened.Excluded),
		)
	})
	if err != nil {
		return fail(err)
	}

	// LLM screen.
	candidates := rep.Screened.Included
	if p.Classifier == nil {
		rep.skip("classify", len(candidates))
	} else {
		err = p.stage(ctx, rep, "classify", len(candidates), func(ctx context.Context) (int, error) {
			res, err := p.Classifier.Classify(ctx, candidates, sess.Policy)
			rep.Classified = res
			if res == nil {
				return 0, err
			}
			return len(res.Included), errors.Join(err, p.saveClassified(ctx, rep.RunID, res))
		})
		if err != nil {
			return fail(err)
		}
		candidates = rep.Classified.Included
	}

	// Quality score.
	checklist := sess.QualityChecklist()
	if p.Scorer == nil || len(checklist.Questions) == 0 {
		rep.skip("score", len(candidates))
		return rep, nil
	}
	err = p.stage(ctx, rep, "score", len(candidates), func(ctx context.Context) (int, error) {
		res, err := p.Scorer.Score(ctx, candidates, checklist, opts.Threshold)
		rep.Scored = res
		if res == nil {
			return 0, err
		}
		var saveErr error
		if rep.RunID != "" {
			saveErr = errors.Join(
				p.Store.SaveScores(ctx, rep.RunID, res.Scored),
				p.save(ctx, rep.RunID, store.StageQAFailed, res.Failed),
			)
		}
		return len(res.Scored), errors.Join(err, saveErr)
	})
	if err != nil {
		return fail(err)
	}
	return rep, nil
}

// stage runs fn in a span, times it, and appends its report. Output
// produced before an error is kept and the stage is marked partial.
func (p *Pipeline) stage(ctx context.Context, rep *Report, name string, in int, fn func(context.Context) (int, error)) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "stage."+name,
		trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	started := time.Now()
	out, err := fn(ctx)
	sr := StageReport{Name: name, Outcome: OutcomeOK, In: in, Out: out, Err: err, Duration: time.Since(started)}
	span.SetAttributes(attribute.Int("records.in", in), attribute.Int("records.out", out))

	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err != nil {
		sr.Outcome = OutcomeFailed
		if out > 0 {
			sr.Outcome = OutcomePartial
		}
		span.SetStatus(codes.Error, err.Error())
		log.Error("stage failed",
			zap.String("stage", name),
			zap.String("outcome", string(sr.Outcome)),
			zap.Int("out", out),
			zap.Error(err),
		)
		err = fmt.Errorf("%s: %w", name, err)
	} else {
		log.Info("stage done",
			zap.String("stage", name),
			zap.Int("in", in),
			zap.Int("out", out),
			zap.Duration("took", sr.Duration),
		)
	}
	rep.Stages = append(rep.Stages, sr)
	return err
}

func (r *Report) skip(name string, in int) {
	r.Stages = append(r.Stages, StageReport{Name: name, Outcome: OutcomeSkipped, In: in, Out: in})
}

func (p *Pipeline) save(ctx context.Context, runID string, stage store.Stage, recs []types.Record) error {
	if p.Store == nil || runID == "" {
		return nil
	}
	return p.Store.SaveRecords(ctx, runID, stage, recs)
}

func (p *Pipeline) saveClassified(ctx context.Context, runID string, res *classify.Result) error {
	return errors.Join(
		p.save(ctx, runID, store.StageAIInclude, res.Included),
		p.save(ctx, runID, store.StageAIExclude, res.Excluded),
		p.save(ctx, runID, store.StageAIUnsure, res.Unsure),
		p.save(ctx, runID, store.StageAIPending, res.Remaining),
	)
}

// ScreenConfig merges the session's category allow-list into cfg.
func ScreenConfig(cfg types.ScreenConfig, sess session.Session) types.ScreenConfig {
	if len(sess.Categories) > 0 {
		cfg.Categories = append([]string(nil), sess.Categories...)
	}
	return cfg
}
