package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/sqlx"

	"github.com/solatis/callwarden/internal/checker"
	"github.com/solatis/callwarden/internal/types"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded check run.
type Run struct {
	ID          types.RunID `db:"run_id"`
	StartedAt   time.Time   `db:"started_at"`
	FinishedAt  time.Time   `db:"finished_at"`
	Patterns    string      `db:"patterns"`
	RulesFile   string      `db:"rules_file"`
	RulesDigest string      `db:"rules_digest"`
	RuleCount   int         `db:"rule_count"`
	Packages    int         `db:"packages"`
	CallSites   int         `db:"call_sites"`
	Violations  int         `db:"violations"`
}

// FindingRecord is one stored violation.
type FindingRecord struct {
	RunID       types.RunID `db:"run_id"`
	Fingerprint string      `db:"fingerprint"`
	RuleIndex   int         `db:"rule_index"`
	File        string      `db:"file"`
	Line        int         `db:"line"`
	Column      int         `db:"col"`
	Offender    string      `db:"offender"`
	Caller      string      `db:"caller"`
	Reason      string      `db:"reason"`
}

// OffenderCount is the number of findings for one offender in a run.
type OffenderCount struct {
	Offender string `db:"offender"`
	Total    int    `db:"total"`
}

// Fingerprint identifies a finding across runs: the same offender called
// by the same caller at the same position hashes to the same value.
func Fingerprint(offender, caller, file string, line, column int) string {
	d := xxhash.New()
	for _, part := range []string{offender, caller, file, strconv.Itoa(line), strconv.Itoa(column)} {
		d.WriteString(part)
		d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// NewFindingRecord converts a checker finding for storage under runID.
func NewFindingRecord(runID types.RunID, f checker.Finding) FindingRecord {
	v := f.Violation
	return FindingRecord{
		RunID:       runID,
		Fingerprint: Fingerprint(v.Offender, v.CallerType, f.Position.Filename, f.Position.Line, f.Position.Column),
		RuleIndex:   v.RuleIndex,
		File:        f.Position.Filename,
		Line:        f.Position.Line,
		Column:      f.Position.Column,
		Offender:    v.Offender,
		Caller:      v.CallerType,
		Reason:      v.Rule.Reason,
	}
}

// Store records and lists check runs.
type Store struct {
	db      *sqlx.DB
	queries *Queries
}

// NewStore binds the run history queries to db. The schema must already be
// migrated.
func NewStore(db *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries}, nil
}

// RecordRun stores run and its findings in one transaction. run.Violations
// is set from findings.
func (s *Store) RecordRun(ctx context.Context, run *Run, findings []checker.Finding) error {
	if run.ID == "" {
		run.ID = types.NewRunID()
	}
	run.Violations = len(findings)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)
	if _, err := q.Exec(ctx, "insert-run",
		run.ID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Patterns,
		run.RulesFile,
		run.RulesDigest,
		run.RuleCount,
		run.Packages,
		run.CallSites,
		run.Violations,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, f := range findings {
		r := NewFindingRecord(run.ID, f)
		if _, err := q.Exec(ctx, "insert-finding",
			r.RunID, r.Fingerprint, r.RuleIndex, r.File, r.Line, r.Column, r.Offender, r.Caller, r.Reason,
		); err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", r.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id types.RunID) (*Run, error) {
	var run Run
	if err := s.queries.Get(ctx, "get-run", &run, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := s.queries.Select(ctx, "list-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListFindings returns the findings of one run in report order.
func (s *Store) ListFindings(ctx context.Context, id types.RunID) ([]FindingRecord, error) {
	var findings []FindingRecord
	if err := s.queries.Select(ctx, "list-findings", &findings, id); err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	return findings, nil
}

// CountOffenders returns per-offender finding totals of one run, largest first.
func (s *Store) CountOffenders(ctx context.Context, id types.RunID) ([]OffenderCount, error) {
	var counts []OffenderCount
	if err := s.queries.Select(ctx, "count-offenders", &counts, id); err != nil {
		return nil, fmt.Errorf("failed to count offenders: %w", err)
	}
	return counts, nil
}
