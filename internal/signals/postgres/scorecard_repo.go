package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClosedSignalRow is one closed-and-published signal joined for scorecard
// computation.
type ClosedSignalRow struct {
	SignalID        string
	ConfluenceScore float64
	RRRealized      float64
}

// ScorecardRepo queries closed signals and upserts the weekly scorecard
// row. It is a thin, independent query surface — joins happen only here,
// per the component design's "join only in the scorecard query" guidance.
type ScorecardRepo struct {
	eventLog *EventLog
}

// NewScorecardRepo builds a ScorecardRepo sharing the EventLog's db handle.
func NewScorecardRepo(e *EventLog) *ScorecardRepo {
	return &ScorecardRepo{eventLog: e}
}

// ClosedInWeek returns every signal published in [weekStart, weekEnd) that
// has a closure row.
func (r *ScorecardRepo) ClosedInWeek(ctx context.Context, weekStart, weekEnd time.Time) ([]ClosedSignalRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.eventLog.timeout)
	defer cancel()

	const query = `
		SELECT s.signal_id, s.confluence_score, c.rr_realized
		FROM signals s
		JOIN signal_closures c ON c.signal_id = s.signal_id
		WHERE s.ts_published >= $1 AND s.ts_published < $2`

	rows, err := r.eventLog.db.QueryxContext(ctx, query, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("query closed signals in week: %w", err)
	}
	defer rows.Close()

	var out []ClosedSignalRow
	for rows.Next() {
		var row ClosedSignalRow
		if err := rows.Scan(&row.SignalID, &row.ConfluenceScore, &row.RRRealized); err != nil {
			return nil, fmt.Errorf("scan closed signal row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertScorecard writes {weekStart, bins, monotonicOk} into
// weekly_scorecard, replacing any existing row for the same week.
func (r *ScorecardRepo) UpsertScorecard(ctx context.Context, weekStart time.Time, bins interface{}, monotonicOk bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.eventLog.timeout)
	defer cancel()

	binsJSON, err := json.Marshal(bins)
	if err != nil {
		return fmt.Errorf("marshal scorecard bins: %w", err)
	}

	const query = `
		INSERT INTO weekly_scorecard (week_start, bins, monotonic_ok, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (week_start) DO UPDATE
		SET bins = EXCLUDED.bins, monotonic_ok = EXCLUDED.monotonic_ok, created_at = now()`

	if _, err := r.eventLog.db.ExecContext(ctx, query, weekStart, binsJSON, monotonicOk); err != nil {
		return fmt.Errorf("upsert weekly scorecard: %w", err)
	}
	return nil
}
