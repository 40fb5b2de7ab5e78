package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// RunInfo describes a stored run without its records.
type RunInfo struct {
	CreatedAt time.Time
	ID        string
	Model     string
	Label     string
	Params    simulation.Params
	Warnings  []string
	Customers int
	Duration  time.Duration
	Seed      uint64
}

// SaveRun writes a run, its warnings and every scored record in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, result *simulation.Result) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	params, err := json.Marshal(result.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	filter, err := json.Marshal(result.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, model, label, seed, customers, duration_ms, params, filter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.CreatedAt.UTC(),
		result.Params.Model,
		result.Params.Label,
		int64(result.Params.Seed), //nolint:gosec // round-trips through uint64 on read
		len(result.Records),
		result.Duration.Milliseconds(),
		string(params),
		string(filter),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	for i, warning := range result.Warnings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_warnings (run_id, position, message) VALUES (?, ?, ?)`,
			result.RunID, i, warning); err != nil {
			return fmt.Errorf("failed to insert warning: %w", err)
		}
	}

	if err := saveRecordsTx(ctx, tx, result.RunID, result.Records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", result.RunID, err)
	}
	return nil
}

func saveRecordsTx(ctx context.Context, tx *sql.Tx, runID string, records []model.ScoredRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scored_records (
			run_id, customer_id, segment, sector, category, financial_performance,
			digital_openness, promotion_sensitivity, innovation_openness,
			avg_amount, total_amount, tx_count, max_amount, std_amount,
			top_category, top_channel, weekday_ratio, tx_category_count, main_spending,
			past_product_interest, product_score, base_probability,
			product_interest_probability, twin_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			runID, r.ID, string(r.Segment), r.Sector, r.Category, r.FinancialPerformance,
			r.DigitalOpenness, r.PromotionSensitivity, r.InnovationOpenness,
			r.AvgAmount, r.TotalAmount, r.TxCount, r.MaxAmount, r.StdAmount,
			r.TopCategory, r.TopChannel, r.WeekdayRatio, r.TxCategoryCount, r.MainSpending,
			r.PastProductInterest, r.ProductScore, r.BaseProbability,
			r.ProductInterestProbability, string(r.TwinResponse),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}
	return nil
}

// GetRun returns the stored description of a run.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	var (
		info       RunInfo
		seed       int64
		durationMS int64
		params     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, model, label, seed, customers, duration_ms, params
		FROM runs WHERE id = ?`, runID).
		Scan(&info.ID, &info.CreatedAt, &info.Model, &info.Label, &seed, &info.Customers, &durationMS, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	info.Seed = uint64(seed) //nolint:gosec // stored from a uint64
	info.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(params), &info.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM run_warnings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		info.Warnings = append(info.Warnings, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read warnings: %w", err)
	}

	return &info, nil
}

// ResponseCounts returns how many twins of a run gave each response. Every
// response is present, in display order.
func (s *SQLiteStorage) ResponseCounts(ctx context.Context, runID string) ([]simulation.ResponseCount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT twin_response, COUNT(*)
		FROM scored_records
		WHERE run_id = ?
		GROUP BY twin_response`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query response counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Response]int)
	total := 0
	for rows.Next() {
		var (
			response string
			count    int
		)
		if err := rows.Scan(&response, &count); err != nil {
			return nil, fmt.Errorf("failed to scan response count: %w", err)
		}
		counts[model.Response(response)] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response counts: %w", err)
	}

	out := make([]simulation.ResponseCount, 0, len(model.Responses()))
	for _, r := range model.Responses() {
		c := simulation.ResponseCount{Response: r, Count: counts[r]}
		if total > 0 {
			c.Percent = 100 * float64(c.Count) / float64(total)
		}
		out = append(out, c)
	}
	return out, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context) ([]RunInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, model, label, seed, customers, duration_ms
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunInfo
	for rows.Next() {
		var (
			info       RunInfo
			seed       int64
			durationMS int64
		)
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Model, &info.Label, &seed, &info.Customers, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.Seed = uint64(seed) //nolint:gosec // stored from a uint64
		info.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
