// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists review runs in SQLite: the query that started a
// run, the record set produced by each pipeline stage, and quality scores.
// CLI commands read the previous stage's set and write their own.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Stage names a record set within a run.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageDeduped   Stage = "deduped"
	StageIncluded  Stage = "included"
	StageExcluded  Stage = "excluded"
	StageAIInclude Stage = "ai_include"
	StageAIExclude Stage = "ai_exclude"
	StageAIUnsure  Stage = "ai_unsure"
	StageAIPending Stage = "ai_pending"
	StageQAFailed  Stage = "qa_failed"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageRaw, StageDeduped, StageIncluded, StageExcluded,
	StageAIInclude, StageAIExclude, StageAIUnsure, StageAIPending, StageQAFailed,
}

// ErrNoRun is returned when a run lookup finds nothing.
var ErrNoRun = errors.New("no such run")

// Run is one gather-to-score pass over a query.
type Run struct {
	ID             string    `db:"id"`
	Topic          string    `db:"topic"`
	Query          string    `db:"query"`
	SessionVersion int       `db:"session_version"`
	CreatedAt      time.Time `db:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL DEFAULT '',
			session_version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			stage TEXT NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			published TEXT NOT NULL DEFAULT '',
			updated TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			category TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			ai_decision TEXT NOT NULL DEFAULT '',
			ai_reason TEXT NOT NULL DEFAULT '',
			ai_matched_rules TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, stage, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_id ON records(id)`,
		`CREATE TABLE IF NOT EXISTS scores (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			record TEXT NOT NULL,
			qa TEXT NOT NULL,
			total_score REAL NOT NULL,
			total_score_pct REAL NOT NULL,
			decision TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a run with a fresh id and the current time.
func (s *Store) CreateRun(ctx context.Context, topic, query string, sessionVersion int) (Run, error) {
	r := Run{
		ID:             uuid.NewString(),
		Topic:          topic,
		Query:          query,
		SessionVersion: sessionVersion,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO runs (id, topic, query, session_version, created_at)
		 VALUES (:id, :topic, :query, :session_version, :created_at)`, r)
	if err != nil {
		return Run{}, fmt.Errorf("creating run: %w", err)
	}
	return r, nil
}

// GetRun looks up a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNoRun, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("reading run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, `SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRun
	}
	if err != nil {
		return Run{}, fmt.Errorf("reading latest run: %w", err)
	}
	return r, nil
}

// ResolveRun returns the run with id, or the latest run when id is empty.
func (s *Store) ResolveRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return s.LatestRun(ctx)
	}
	return s.GetRun(ctx, id)
}

// Runs lists all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

type recordRow struct {
	RunID          string `db:"run_id"`
	Stage          string `db:"stage"`
	Position       int    `db:"position"`
	ID             string `db:"id"`
	Title          string `db:"title"`
	Summary        string `db:"summary"`
	Published      string `db:"published"`
	Updated        string `db:"updated"`
	Authors        string `db:"authors"`
	Category       string `db:"category"`
	Link           string `db:"link"`
	Reason         string `db:"reason"`
	AIDecision     string `db:"ai_decision"`
	AIReason       string `db:"ai_reason"`
	AIMatchedRules string `db:"ai_matched_rules"`
}

func toRow(runID string, stage Stage, pos int, r types.Record) (recordRow, error) {
	authors, err := json.Marshal(nonNil(r.Authors))
	if err != nil {
		return recordRow{}, err
	}
	rules, err := json.Marshal(nonNil(r.AIMatchedRules))
	if err != nil {
		return recordRow{}, err
	}
	return recordRow{
		RunID: runID, Stage: string(stage), Position: pos,
		ID: r.ID, Title: r.Title, Summary: r.Summary,
		Published: r.Published, Updated: r.Updated,
		Authors: string(authors), Category: r.Category, Link: r.Link,
		Reason: r.Reason, AIDecision: string(r.AIDecision), AIReason: r.AIReason,
		AIMatchedRules: string(rules),
	}, nil
}

func (row recordRow) record() (types.Record, error) {
	r := types.Record{
		ID: row.ID, Title: row.Title, Summary: row.Summary,
		Published: row.Published, Updated: row.Updated,
		Category: row.Category, Link: row.Link, Reason: row.Reason,
		AIDecision: types.Decision(row.AIDecision), AIReason: row.AIReason,
	}
	if err := json.Unmarshal([]byte(row.Authors), &r.Authors); err != nil {
		return r, fmt.Errorf("decoding authors of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.AIMatchedRules), &r.AIMatchedRules); err != nil {
		return r, fmt.Errorf("decoding matched rules of %s: %w", row.ID, err)
	}
	if len(r.AIMatchedRules) == 0 {
		r.AIMatchedRules = nil
	}
	return r, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// SaveRecords replaces the record set of stage in run.
func (s *Store) SaveRecords(ctx context.Context, runID string, stage Stage, records []types.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ? AND stage = ?`, runID, string(stage)); err != nil {
		return fmt.Errorf("clearing stage %s: %w", stage, err)
	}
	for i, r := range records {
		row, err := toRow(runID, stage, i, r)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", r.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO records (
				run_id, stage, position, id, title, summary, published, updated, authors,
				category, link, reason, ai_decision, ai_reason, ai_matched_rules
			) VALUES (
				:run_id, :stage, :position, :id, :title, :summary, :published, :updated, :authors,
				:category, :link, :reason, :ai_decision, :ai_reason, :ai_matched_rules
			)`, row); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// AppendRecords adds records after the existing set of stage in run.
func (s *Store) AppendRecords(ctx context.Context, runID string, stage Stage, records []types.Record) error {
	prev, err := s.Records(ctx, runID, stage)
	if err != nil {
		return err
	}
	return s.SaveRecords(ctx, runID, stage, append(prev, records...))
}

// Records returns the record set of stage in run, in saved order.
func (s *Store) Records(ctx context.Context, runID string, stage Stage) ([]types.Record, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM records WHERE run_id = ? AND stage = ? ORDER BY position`, runID, string(stage)); err != nil {
		return nil, fmt.Errorf("reading stage %s: %w", stage, err)
	}
	out := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// StageCounts returns the number of records saved per stage in run.
func (s *Store) StageCounts(ctx context.Context, runID string) (map[Stage]int, error) {
	var rows []struct {
		Stage string `db:"stage"`
		N     int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT stage, count(*) AS n FROM records WHERE run_id = ? GROUP BY stage`, runID); err != nil {
		return nil, fmt.Errorf("counting stages: %w", err)
	}
	counts := make(map[Stage]int, len(rows))
	for _, r := range rows {
		counts[Stage(r.Stage)] = r.N
	}
	return counts, nil
}

type scoreRow struct {
	RunID         string  `db:"run_id"`
	Position      int     `db:"position"`
	Record        string  `db:"record"`
	QA            string  `db:"qa"`
	TotalScore    float64 `db:"total_score"`
	TotalScorePct float64 `db:"total_score_pct"`
	Decision      string  `db:"decision"`
}

// SaveScores replaces the quality scores of run.
func (s *Store) SaveScores(ctx context.Context, runID string, scored []types.ScoredRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scores WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clearing scores: %w", err)
	}
	for i, sr := range scored {
		rec, err := json.Marshal(sr.Record)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", sr.ID, err)
		}
		qa, err := json.Marshal(sr.QA)
		if err != nil {
			return fmt.Errorf("encoding assessment of %s: %w", sr.ID, err)
		}
		row := scoreRow{
			RunID: runID, Position: i, Record: string(rec), QA: string(qa),
			TotalScore: sr.TotalScore, TotalScorePct: sr.TotalScorePct, Decision: string(sr.Decision),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO scores
			(run_id, position, record, qa, total_score, total_score_pct, decision)
			VALUES (:run_id, :position, :record, :qa, :total_score, :total_score_pct, :decision)`, row); err != nil {
			return fmt.Errorf("inserting score for %s: %w", sr.ID, err)
		}
	}
	return tx.Commit()
}

// MergeScores upserts scored into the stored scores of run by record id.
// A rescored record keeps its position; new records go after the rest.
func (s *Store) MergeScores(ctx context.Context, runID string, scored []types.ScoredRecord) error {
	prev, err := s.Scores(ctx, runID)
	if err != nil {
		return err
	}
	at := make(map[string]int, len(prev))
	for i, sr := range prev {
		at[sr.ID] = i
	}
	for _, sr := range scored {
		if i, ok := at[sr.ID]; ok {
			prev[i] = sr
			continue
		}
		at[sr.ID] = len(prev)
		prev = append(prev, sr)
	}
	return s.SaveScores(ctx, runID, prev)
}

// Scores returns the quality scores of run in saved order.
func (s *Store) Scores(ctx context.Context, runID string) ([]types.ScoredRecord, error) {
	var rows []scoreRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM scores WHERE run_id = ? ORDER BY position`, runID); err != nil {
		return nil, fmt.Errorf("reading scores: %w", err)
	}
	out := make([]types.ScoredRecord, 0, len(rows))
	for _, row := range rows {
		sr := types.ScoredRecord{
			TotalScore:    row.TotalScore,
			TotalScorePct: row.TotalScorePct,
			Decision:      types.Decision(row.Decision),
		}
		if err := json.Unmarshal([]byte(row.Record), &sr.Record); err != nil {
			return nil, fmt.Errorf("decoding scored record: %w", err)
		}
		if err := json.Unmarshal([]byte(row.QA), &sr.QA); err != nil {
			return nil, fmt.Errorf("decoding assessment of %s: %w", sr.ID, err)
		}
		out = append(out, sr)
	}
	return out, nil
}

// DeleteRun removes a run and everything saved under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoRun, id)
	}
	return nil
}
