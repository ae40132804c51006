// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify screens records against a screening policy with a
// language model, one batch per call.
package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/llm"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// DefaultBatchSize is used when Screener.BatchSize is not positive.
const DefaultBatchSize = 10

const (
	// ReasonNoPolicy marks records that were not sent to the model because
	// the policy is empty.
	ReasonNoPolicy = "no screening policy available; not classified"

	// ReasonUnparsed marks records whose batch output could not be parsed.
	ReasonUnparsed = "model output could not be parsed"

	reasonMissing = "no decision returned by model"
)

// Result partitions classified records by AI decision. Remaining holds
// records that were not classified because a model call failed; it is
// empty on success.
type Result struct {
	Included  []types.Record
	Excluded  []types.Record
	Unsure    []types.Record
	Remaining []types.Record

	// Batches holds the final state of every batch attempted, in order.
	Batches []BatchState
}

// BatchState tracks one batch through classification.
type BatchState string

const (
	BatchPending     BatchState = "pending"
	BatchParsed      BatchState = "parsed"
	BatchParseFailed BatchState = "parse_failed"
	BatchFailed      BatchState = "failed"
)

// Unparsed counts batches whose output could not be parsed.
func (r *Result) Unparsed() int {
	n := 0
	for _, st := range r.Batches {
		if st == BatchParseFailed {
			n++
		}
	}
	return n
}

// Classified returns the number of records with an AI decision.
func (r *Result) Classified() int {
	return len(r.Included) + len(r.Excluded) + len(r.Unsure)
}

// BatchError reports a model failure. Batches before Batch were
// classified; Start is the index of the first unclassified record.
type BatchError struct {
	Batch int
	Start int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("classifying batch %d (record %d): %v", e.Batch+1, e.Start, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Screener classifies records with an LLM.
type Screener struct {
	LLM       llm.Completer
	BatchSize int

	// MaxTokens bounds each completion. Zero uses the provider default.
	MaxTokens int64

	Log *zap.Logger
}

// Classify sends records to the model in batches of BatchSize and returns
// them partitioned by decision, each annotated with AIDecision, AIReason,
// and AIMatchedRules. An invalid or missing decision becomes "unsure".
//
// With an empty policy no model call is made and every record is unsure.
// When a call fails the records classified so far are returned together
// with a *BatchError; the unclassified ones are in Result.Remaining.
func (s *Screener) Classify(ctx context.Context, records []types.Record, policy types.ScreeningPolicy) (*Result, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	res := &Result{}

	if policy.IsEmpty() {
		log.Warn("screening policy is empty, marking all records unsure", zap.Int("records", len(records)))
		for _, r := range records {
			res.add(annotate(r, verdict{Decision: string(types.DecisionUnsure), Reason: ReasonNoPolicy}))
		}
		return res, nil
	}

	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for batch, start := 0, 0; start < len(records); batch, start = batch+1, start+size {
		end := min(start+size, len(records))
		chunk := records[start:end]

		prompt, err := renderBatchPrompt(policy, chunk)
		if err != nil {
			return res, err
		}

		res.Batches = append(res.Batches, BatchPending)
		raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPrompt, Prompt: prompt, MaxTokens: s.MaxTokens})
		if err != nil {
			res.Batches[batch] = BatchFailed
			res.Remaining = cloneAll(records[start:])
			log.Error("model call failed, stopping",
				zap.Int("batch", batch+1),
				zap.Int("classified", res.Classified()),
				zap.Int("remaining", len(res.Remaining)),
				zap.Error(err),
			)
			return res, &BatchError{Batch: batch, Start: start, Err: err}
		}

		verdicts, err := parseVerdicts(raw)
		if err != nil {
			res.Batches[batch] = BatchParseFailed
			log.Warn("could not parse model output, marking batch unsure",
				zap.Int("batch", batch+1),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			for _, r := range chunk {
				res.add(annotate(r, verdict{Decision: string(types.DecisionUnsure), Reason: ReasonUnparsed}))
			}
			continue
		}
		res.Batches[batch] = BatchParsed
		if len(verdicts) != len(chunk) {
			log.Warn("model returned wrong number of results",
				zap.Int("batch", batch+1),
				zap.Int("want", len(chunk)),
				zap.Int("got", len(verdicts)),
			)
		}

		for i, v := range fit(verdicts, len(chunk)) {
			res.add(annotate(chunk[i], v))
		}
		log.Info("classified batch",
			zap.Int("batch", batch+1),
			zap.Int("size", len(chunk)),
			zap.Int("included", len(res.Included)),
			zap.Int("excluded", len(res.Excluded)),
			zap.Int("unsure", len(res.Unsure)),
		)
	}
	return res, nil
}

func (r *Result) add(rec types.Record) {
	switch rec.AIDecision {
	case types.DecisionInclude:
		r.Included = append(r.Included, rec)
	case types.DecisionExclude:
		r.Excluded = append(r.Excluded, rec)
	default:
		r.Unsure = append(r.Unsure, rec)
	}
}

func annotate(r types.Record, v verdict) types.Record {
	out := r.Clone()
	out.AIDecision = types.ParseDecision(v.Decision)
	out.AIReason = strings.TrimSpace(v.Reason)
	if out.AIReason == "" && v.Decision == "" {
		out.AIReason = reasonMissing
	}
	out.AIMatchedRules = append([]string(nil), v.MatchedRules...)
	return out
}

func cloneAll(rs []types.Record) []types.Record {
	out := make([]types.Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
