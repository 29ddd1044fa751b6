package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/stakes"
	"github.com/banshee-data/kappa/internal/sweep"
)

// ErrRunNotFound is returned when a run ID has no stored run.
var ErrRunNotFound = errors.New("db: run not found")

// SweepRun describes one stored sweep. Points and DomainErrors are filled in
// by RecordSweep from the points it stores.
type SweepRun struct {
	ID           string
	Variant      kappa.Variant
	TMedSpec     string
	TSSpec       string
	Points       int
	DomainErrors int
	CreatedAt    time.Time
}

// Allocation describes one stored reward allocation.
type Allocation struct {
	ID             string
	Variant        kappa.Variant
	TMed           float64
	Pool           float64
	WeightedMedian bool
	Stakes         int
	CreatedAt      time.Time
}

// storedDomainError is a point error read back from the database. Only
// domain errors are recorded on sweep points.
type storedDomainError struct{ msg string }

func (e *storedDomainError) Error() string { return e.msg }
func (e *storedDomainError) Unwrap() error { return kappa.ErrDomain }

func (db *DB) createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return db.clock.Now().UTC()
	}
	return t.UTC()
}

// RecordSweep stores run and its points in a single transaction and returns
// the new run ID. Points with a domain error are stored with a NULL c_kappa
// and the error message.
func (db *DB) RecordSweep(ctx context.Context, run SweepRun, points []sweep.Point) (string, error) {
	run.ID = uuid.NewString()
	run.Points = len(points)
	run.DomainErrors = 0
	for _, p := range points {
		if !p.OK() {
			run.DomainErrors++
		}
	}
	run.CreatedAt = db.createdAt(run.CreatedAt)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin sweep run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweep_runs (run_id, variant, t_med_spec, t_s_spec, point_count, domain_errors, created_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Variant), run.TMedSpec, run.TSSpec, run.Points, run.DomainErrors, run.CreatedAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert sweep run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_points (run_id, seq, t_med, t_s, c_kappa, error)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare sweep points: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		value := sql.NullFloat64{Float64: p.Kappa, Valid: p.OK()}
		var msg sql.NullString
		if !p.OK() {
			msg = sql.NullString{String: p.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, p.TMed, p.TS, value, msg); err != nil {
			return "", fmt.Errorf("insert sweep point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit sweep run: %w", err)
	}
	return run.ID, nil
}

// SweepRuns lists stored sweeps, newest first.
func (db *DB) SweepRuns(ctx context.Context) ([]SweepRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, variant, t_med_spec, t_s_spec, point_count, domain_errors, created_unix
		FROM sweep_runs
		ORDER BY created_unix DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var r SweepRun
		var variant string
		var created int64
		if err := rows.Scan(&r.ID, &variant, &r.TMedSpec, &r.TSSpec, &r.Points, &r.DomainErrors, &created); err != nil {
			return nil, fmt.Errorf("scan sweep run: %w", err)
		}
		r.Variant = kappa.Variant(variant)
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SweepPoints returns the points of run runID in their original order.
func (db *DB) SweepPoints(ctx context.Context, runID string) ([]sweep.Point, error) {
	if err := db.runExists(ctx, "sweep_runs", runID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT t_med, t_s, c_kappa, error
		FROM sweep_points
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sweep points: %w", err)
	}
	defer rows.Close()

	var points []sweep.Point
	for rows.Next() {
		var p sweep.Point
		var value sql.NullFloat64
		var msg sql.NullString
		if err := rows.Scan(&p.TMed, &p.TS, &value, &msg); err != nil {
			return nil, fmt.Errorf("scan sweep point: %w", err)
		}
		p.Kappa = value.Float64
		if msg.Valid {
			p.Err = &storedDomainError{msg: msg.String}
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecordAllocation stores an allocation and its shares in a single
// transaction and returns the new run ID.
func (db *DB) RecordAllocation(ctx context.Context, a Allocation, shares []stakes.Share) (string, error) {
	a.ID = uuid.NewString()
	a.Stakes = len(shares)
	a.CreatedAt = db.createdAt(a.CreatedAt)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin allocation: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO allocation_runs (run_id, variant, t_med, pool, weighted_median, stake_count, created_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Variant), a.TMed, a.Pool, boolInt(a.WeightedMedian), a.Stakes, a.CreatedAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert allocation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO allocation_shares (run_id, seq, stake_id, term, amount, c_kappa, weight, reward)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare allocation shares: %w", err)
	}
	defer stmt.Close()

	for i, s := range shares {
		if _, err := stmt.ExecContext(ctx, a.ID, i, s.ID, s.Term, s.Amount, s.Kappa, s.Weight, s.Reward); err != nil {
			return "", fmt.Errorf("insert share %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit allocation: %w", err)
	}
	return a.ID, nil
}

// AllocationRuns lists stored allocations, newest first.
func (db *DB) AllocationRuns(ctx context.Context) ([]Allocation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, variant, t_med, pool, weighted_median, stake_count, created_unix
		FROM allocation_runs
		ORDER BY created_unix DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		var a Allocation
		var variant string
		var weighted int
		var created int64
		if err := rows.Scan(&a.ID, &variant, &a.TMed, &a.Pool, &weighted, &a.Stakes, &created); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Variant = kappa.Variant(variant)
		a.WeightedMedian = weighted != 0
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// AllocationShares returns the shares of allocation runID in input order.
func (db *DB) AllocationShares(ctx context.Context, runID string) ([]stakes.Share, error) {
	if err := db.runExists(ctx, "allocation_runs", runID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT stake_id, term, amount, c_kappa, weight, reward
		FROM allocation_shares
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query allocation shares: %w", err)
	}
	defer rows.Close()

	var shares []stakes.Share
	for rows.Next() {
		var s stakes.Share
		if err := rows.Scan(&s.ID, &s.Term, &s.Amount, &s.Kappa, &s.Weight, &s.Reward); err != nil {
			return nil, fmt.Errorf("scan allocation share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (db *DB) runExists(ctx context.Context, table, runID string) error {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return fmt.Errorf("look up run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, runID, ErrRunNotFound)
	}
	return nil
}
