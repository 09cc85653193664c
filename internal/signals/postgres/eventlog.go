// Package postgres implements the signal lifecycle EventLog against
// Postgres via sqlx/lib-pq, with idempotent publish on signal_id.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/cryptoscreen/screenerd/internal/signals"
)

// pqDuplicateKeyCode is the Postgres error code for a unique-constraint
// violation, used to make Publish idempotent on signal_id.
const pqDuplicateKeyCode = "23505"

// EventLog implements signals.EventLog against Postgres.
type EventLog struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New builds a Postgres-backed EventLog.
func New(db *sqlx.DB, timeout time.Duration) *EventLog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventLog{db: db, timeout: timeout}
}

// Publish inserts a new signal row. A duplicate signal_id is a no-op —
// this is what makes Publish idempotent.
func (e *EventLog) Publish(ctx context.Context, evt signals.Published) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	const query = `
		INSERT INTO signals (signal_id, symbol, side, confluence_score, rr_target, expiry_minutes, rules_version, ts_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := e.db.ExecContext(ctx, query,
		evt.SignalID, evt.Symbol, evt.Side, evt.ConfluenceScore,
		evt.RRTarget, evt.ExpiryMinutes, evt.RulesVersion, evt.TSPublished)
	if isDuplicateKey(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Triggered inserts a signal_triggers row.
func (e *EventLog) Triggered(ctx context.Context, evt signals.Triggered) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	const query = `
		INSERT INTO signal_triggers (signal_id, ts_triggered, entry_fill, time_to_trigger_ms)
		VALUES ($1, $2, $3, $4)`

	_, err := e.db.ExecContext(ctx, query, evt.SignalID, evt.TSTriggered, evt.EntryFill, evt.TimeToTrigger.Milliseconds())
	if isDuplicateKey(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert signal trigger: %w", err)
	}
	return nil
}

// Invalidated inserts a signal_invalidations row.
func (e *EventLog) Invalidated(ctx context.Context, evt signals.Invalidated) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	const query = `
		INSERT INTO signal_invalidations (signal_id, ts_invalidated, reason)
		VALUES ($1, $2, $3)`

	_, err := e.db.ExecContext(ctx, query, evt.SignalID, evt.TSInvalidated, evt.Reason)
	if isDuplicateKey(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert signal invalidation: %w", err)
	}
	return nil
}

// Closed inserts a signal_closures row.
func (e *EventLog) Closed(ctx context.Context, evt signals.Closed) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	const query = `
		INSERT INTO signal_closures (signal_id, ts_closed, rr_realized, time_in_trade_ms, exit_reason)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := e.db.ExecContext(ctx, query, evt.SignalID, evt.TSClosed, evt.RRRealized, evt.TimeInTrade.Milliseconds(), evt.ExitReason)
	if isDuplicateKey(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert signal closure: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqDuplicateKeyCode
	}
	return false
}

// GuardedEventLog wraps an EventLog so Publish/Triggered/Invalidated/Closed
// failures are logged and swallowed rather than propagated — the
// component design requires emissions to never crash request paths. The
// screening/signal-emitting call sites should hold a signals.EventLog typed
// as this wrapper (or NullEventLog when disabled), never the bare
// Postgres EventLog.
type GuardedEventLog struct {
	inner signals.EventLog
}

// Guard wraps inner so its errors are logged, never returned.
func Guard(inner signals.EventLog) *GuardedEventLog {
	return &GuardedEventLog{inner: inner}
}

func (g *GuardedEventLog) Publish(ctx context.Context, evt signals.Published) error {
	if err := g.inner.Publish(ctx, evt); err != nil {
		log.Error().Err(err).Str("signal_id", evt.SignalID).Msg("signals: publish failed, dropped")
	}
	return nil
}

func (g *GuardedEventLog) Triggered(ctx context.Context, evt signals.Triggered) error {
	if err := g.inner.Triggered(ctx, evt); err != nil {
		log.Error().Err(err).Str("signal_id", evt.SignalID).Msg("signals: triggered insert failed, dropped")
	}
	return nil
}

func (g *GuardedEventLog) Invalidated(ctx context.Context, evt signals.Invalidated) error {
	if err := g.inner.Invalidated(ctx, evt); err != nil {
		log.Error().Err(err).Str("signal_id", evt.SignalID).Msg("signals: invalidated insert failed, dropped")
	}
	return nil
}

func (g *GuardedEventLog) Closed(ctx context.Context, evt signals.Closed) error {
	if err := g.inner.Closed(ctx, evt); err != nil {
		log.Error().Err(err).Str("signal_id", evt.SignalID).Msg("signals: closed insert failed, dropped")
	}
	return nil
}
