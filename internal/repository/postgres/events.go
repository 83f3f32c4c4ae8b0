package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// EventRepo implements repository.EventRepository on Postgres.
type EventRepo struct {
	client *Client
	log    *zap.Logger
}

func NewEventRepo(client *Client, log *zap.Logger) *EventRepo {
	return &EventRepo{client: client, log: log}
}

// IsDuplicate checks the trailing window for an event of the same kind and,
// for amount-bearing kinds, the same amount. Read-only; the caller decides
// whether to skip processing.
func (r *EventRepo) IsDuplicate(ctx context.Context, userID int64, kind domain.EventKind, amount *float64, window time.Duration) (bool, error) {
	var (
		exists bool
		err    error
	)
	if kind.HasAmount() && amount != nil {
		err = r.client.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM events
				WHERE user_id = $1 AND kind = $2 AND amount = $3
					AND created_at > now() - $4 * interval '1 second'
			)`, userID, kind.String(), *amount, window.Seconds()).Scan(&exists)
	} else {
		err = r.client.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM events
				WHERE user_id = $1 AND kind = $2
					AND created_at > now() - $3 * interval '1 second'
			)`, userID, kind.String(), window.Seconds()).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate for user %d: %w", userID, err)
	}
	return exists, nil
}

// RecordEvent appends the event and applies the kind's funnel mutation in one
// transaction. The user row is locked first so the prior deposit-class count
// (the slot) cannot be observed twice by concurrent requests for the same
// user; unrelated users never contend.
func (r *EventRepo) RecordEvent(ctx context.Context, userID int64, kind domain.EventKind, amount, commission *float64, raw map[string]any) (*repository.RecordResult, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	tx, err := r.client.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin event transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previousRevenue *float64
	err = tx.QueryRowContext(ctx,
		`SELECT revenue FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&previousRevenue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}

	result := &repository.RecordResult{PreviousRevenue: previousRevenue}

	if kind.DepositClass() {
		err = tx.QueryRowContext(ctx,
			`SELECT count(*) FROM events WHERE user_id = $1 AND kind IN ('dep', 'redep')`,
			userID).Scan(&result.DepositSeq)
		if err != nil {
			return nil, fmt.Errorf("failed to count prior deposits for user %d: %w", userID, err)
		}
		// The tracker slot is part of the audit snapshot, and it only exists
		// once the count is taken under the lock.
		raw["tid"] = 6 + result.DepositSeq
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw snapshot: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (user_id, kind, amount, commission, raw)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, kind.String(), amount, commission, rawJSON).Scan(&result.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event for user %d: %w", userID, err)
	}

	if err := applyFunnelMutation(ctx, tx, userID, kind, amount); err != nil {
		return nil, err
	}

	if kind.DepositClass() {
		err = tx.QueryRowContext(ctx,
			`SELECT coalesce(sum(amount), 0) FROM events WHERE user_id = $1 AND kind IN ('dep', 'redep')`,
			userID).Scan(&result.TotalDepositsSum)
		if err != nil {
			return nil, fmt.Errorf("failed to sum deposits for user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit event for user %d: %w", userID, err)
	}

	r.log.Info("Event recorded",
		zap.Int64("event_id", result.EventID),
		zap.Int64("user_id", userID),
		zap.String("kind", kind.String()))

	return result, nil
}

// applyFunnelMutation updates the denormalized user fields for the kind.
// Timestamps only move from unset to set; revenue is overwritten, not
// accumulated; withdrawals leave the user row untouched.
func applyFunnelMutation(ctx context.Context, tx *sql.Tx, userID int64, kind domain.EventKind, amount *float64) error {
	var q string
	args := []any{userID}

	switch kind {
	case domain.KindFirstMessage:
		q = `UPDATE users SET first_message_at = now() WHERE id = $1 AND first_message_at IS NULL`
	case domain.KindRegistration:
		q = `UPDATE users SET registered_at = now() WHERE id = $1 AND registered_at IS NULL`
	case domain.KindDeposit:
		q = `UPDATE users SET
				first_deposit_at = coalesce(first_deposit_at, now()),
				deposits_sum = deposits_sum + $2
			WHERE id = $1`
		args = append(args, deref(amount))
	case domain.KindRedeposit:
		q = `UPDATE users SET
				redeposit_at = now(),
				redeposits_sum = redeposits_sum + $2
			WHERE id = $1`
		args = append(args, deref(amount))
	case domain.KindWithdrawal:
		return nil
	case domain.KindRevenue:
		q = `UPDATE users SET revenue = $2 WHERE id = $1`
		args = append(args, deref(amount))
	case domain.KindManagerAssignment:
		// Applied separately via SetManager so the previous label lands in
		// the raw snapshot.
		return nil
	default:
		return fmt.Errorf("unhandled event kind %v", kind)
	}

	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("failed to apply %s mutation for user %d: %w", kind, userID, err)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (r *EventRepo) UserEvents(ctx context.Context, userID int64, limit int) ([]domain.Event, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, commission, raw, created_at
		FROM events WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.Commission, &e.Raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepo) UserEventsSummary(ctx context.Context, userID int64) (map[string]int, error) {
	rows, err := r.client.db.QueryContext(ctx,
		`SELECT kind, count(*) FROM events WHERE user_id = $1 GROUP BY kind`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events summary for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	summary := map[string]int{}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan events summary: %w", err)
		}
		summary[kind] = count
	}
	return summary, rows.Err()
}

func (r *EventRepo) DepositsCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.client.db.QueryRowContext(ctx,
		`SELECT count(*) FROM events WHERE user_id = $1 AND kind IN ('dep', 'redep')`,
		userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count deposits for user %d: %w", userID, err)
	}
	return n, nil
}

func (r *EventRepo) TotalDepositsSum(ctx context.Context, userID int64) (float64, error) {
	var sum float64
	err := r.client.db.QueryRowContext(ctx,
		`SELECT coalesce(sum(amount), 0) FROM events WHERE user_id = $1 AND kind IN ('dep', 'redep')`,
		userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum deposits for user %d: %w", userID, err)
	}
	return sum, nil
}

// Stats aggregates the event log per kind plus totals.
func (r *EventRepo) Stats(ctx context.Context) (map[string]any, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		SELECT kind, count(*), coalesce(sum(amount), 0)
		FROM events GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byKind := map[string]any{}
	var total int64
	for rows.Next() {
		var kind string
		var count int64
		var sum float64
		if err := rows.Scan(&kind, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		byKind[kind] = map[string]any{"count": count, "sum": sum}
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"total_events": total, "by_kind": byKind}, nil
}
