package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// UserRepo implements repository.UserRepository on Postgres.
type UserRepo struct {
	client *Client
	log    *zap.Logger
}

func NewUserRepo(client *Client, log *zap.Logger) *UserRepo {
	return &UserRepo{client: client, log: log}
}

const userColumns = `id, subscriber_id, clickid, trader_id, sub_id,
	first_message_at, registered_at, first_deposit_at, redeposit_at,
	deposits_sum, redeposits_sum, revenue,
	campaign_name, campaign_id, landing_name, landing_id, country, manager,
	balance, pocket_status, pocket_total_deposits, pocket_ftd_amount,
	pocket_country, pocket_registered_at, pocket_synced_at, created_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.SubscriberID, &u.ClickID, &u.TraderID, &u.SubID,
		&u.FirstMessageAt, &u.RegisteredAt, &u.FirstDepositAt, &u.RedepositAt,
		&u.DepositsSum, &u.RedepositsSum, &u.Revenue,
		&u.CampaignName, &u.CampaignID, &u.LandingName, &u.LandingID, &u.Country, &u.Manager,
		&u.Balance, &u.PocketStatus, &u.PocketTotalDeposits, &u.PocketFTDAmount,
		&u.PocketCountry, &u.PocketRegisteredAt, &u.PocketSyncedAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByAny tries each identifier in trust order and stops on the first hit.
// Internal id is caller-asserted and most trustworthy; trader id is reused
// across re-registrations so it is consulted last.
func (r *UserRepo) FindByAny(ctx context.Context, ids domain.Identifiers) (*repository.Resolution, error) {
	if ids.Empty() {
		return nil, repository.ErrIdentifierRequired
	}

	type probe struct {
		foundBy string
		query   string
		arg     any
	}

	var probes []probe
	if ids.ID != nil {
		probes = append(probes, probe{"id", "id = $1", *ids.ID})
	}
	if ids.SubscriberID != "" {
		probes = append(probes, probe{"subscriber_id", "subscriber_id = $1", ids.SubscriberID})
	}
	if ids.ClickID != "" {
		probes = append(probes, probe{"clickid", "clickid = $1", ids.ClickID})
	}
	if ids.TraderID != "" {
		probes = append(probes, probe{"trader_id", "trader_id = $1", ids.TraderID})
	}

	for _, p := range probes {
		q := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY created_at LIMIT 1", userColumns, p.query)
		u, err := scanUser(r.client.db.QueryRowContext(ctx, q, p.arg))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find user by %s: %w", p.foundBy, err)
		}
		return &repository.Resolution{User: u, FoundBy: p.foundBy}, nil
	}

	return nil, repository.ErrUserNotFound
}

// Ensure finds or creates the user. Creation needs the internal id; the other
// identifiers are stored as supplied.
func (r *UserRepo) Ensure(ctx context.Context, ids domain.Identifiers) (*repository.Resolution, error) {
	res, err := r.FindByAny(ctx, ids)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if ids.ID == nil {
		return nil, repository.ErrUserNotFound
	}

	var subscriberID, clickID, traderID *string
	if ids.SubscriberID != "" {
		subscriberID = &ids.SubscriberID
	}
	if ids.ClickID != "" {
		clickID = &ids.ClickID
	}
	if ids.TraderID != "" {
		traderID = &ids.TraderID
	}

	q := fmt.Sprintf(`INSERT INTO users (id, subscriber_id, clickid, trader_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING %s`, userColumns)

	u, err := scanUser(r.client.db.QueryRowContext(ctx, q, *ids.ID, subscriberID, clickID, traderID))
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the insert race; the row exists now.
		return r.FindByAny(ctx, domain.Identifiers{ID: ids.ID})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", *ids.ID, err)
	}

	r.log.Info("User created",
		zap.Int64("user_id", u.ID),
		zap.Stringp("trader_id", traderID),
		zap.Stringp("clickid", clickID))

	return &repository.Resolution{User: u, FoundBy: "id", Created: true}, nil
}

// BackfillClickID is set-once: an existing click id is never overwritten.
func (r *UserRepo) BackfillClickID(ctx context.Context, userID int64, clickID string) error {
	_, err := r.client.db.ExecContext(ctx,
		`UPDATE users SET clickid = $1 WHERE id = $2 AND clickid IS NULL`, clickID, userID)
	if err != nil {
		return fmt.Errorf("failed to backfill clickid for user %d: %w", userID, err)
	}
	return nil
}

// UpdateTraderID overwrites the trader id, keeping the old value in the audit
// table. A person may re-register on the trading platform, so last write wins.
func (r *UserRepo) UpdateTraderID(ctx context.Context, userID int64, traderID string) error {
	tx, err := r.client.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trader id update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var old *string
	err = tx.QueryRowContext(ctx,
		`SELECT trader_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read trader id for user %d: %w", userID, err)
	}

	if old != nil && *old == traderID {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trader_id_audit (user_id, old_trader_id, new_trader_id) VALUES ($1, $2, $3)`,
		userID, old, traderID); err != nil {
		return fmt.Errorf("failed to audit trader id change for user %d: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET trader_id = $1 WHERE id = $2`, traderID, userID); err != nil {
		return fmt.Errorf("failed to update trader id for user %d: %w", userID, err)
	}

	return tx.Commit()
}

// SetManager overwrites the assigned-manager label and returns the previous one.
func (r *UserRepo) SetManager(ctx context.Context, userID int64, manager string) (*string, error) {
	var previous *string
	err := r.client.db.QueryRowContext(ctx, `
		UPDATE users u SET manager = $1
		FROM (SELECT id, manager FROM users WHERE id = $2 FOR UPDATE) prev
		WHERE u.id = prev.id
		RETURNING prev.manager`, manager, userID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set manager for user %d: %w", userID, err)
	}
	return previous, nil
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (*domain.User, error) {
	q := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	u, err := scanUser(r.client.db.QueryRowContext(ctx, q, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return u, nil
}

func (r *UserRepo) UpdateCampaignData(ctx context.Context, userID int64, name string, campaignID int64) error {
	res, err := r.client.db.ExecContext(ctx,
		`UPDATE users SET campaign_name = $1, campaign_id = $2 WHERE id = $3`,
		name, campaignID, userID)
	if err != nil {
		return fmt.Errorf("failed to update campaign data for user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) UsersWithoutCampaignData(ctx context.Context, limit int) ([]repository.CampaignCandidate, error) {
	return r.campaignCandidates(ctx, `campaign_name IS NULL`, limit)
}

func (r *UserRepo) UsersWithEmptyMarkers(ctx context.Context, limit int) ([]repository.CampaignCandidate, error) {
	return r.campaignCandidates(ctx, `campaign_name = '`+repository.EmptyCampaignMarker+`'`, limit)
}

func (r *UserRepo) campaignCandidates(ctx context.Context, where string, limit int) ([]repository.CampaignCandidate, error) {
	rows, err := r.client.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, sub_id FROM users WHERE sub_id IS NOT NULL AND %s ORDER BY created_at LIMIT $1`, where), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []repository.CampaignCandidate
	for rows.Next() {
		var c repository.CampaignCandidate
		if err := rows.Scan(&c.UserID, &c.SubID); err != nil {
			return nil, fmt.Errorf("failed to scan campaign candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *UserRepo) CampaignStats(ctx context.Context) (*repository.CampaignStats, error) {
	var s repository.CampaignStats
	err := r.client.db.QueryRowContext(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE campaign_name IS NOT NULL AND campaign_name <> $1),
			count(*) FILTER (WHERE campaign_name = $1),
			count(*) FILTER (WHERE campaign_name IS NULL)
		FROM users`, repository.EmptyCampaignMarker,
	).Scan(&s.Total, &s.WithData, &s.EmptyMarked, &s.Missing)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}
	return &s, nil
}

func (r *UserRepo) SavePocketData(ctx context.Context, userID int64, d repository.PocketData) error {
	status := "active"
	if d.Verified {
		status = "verified"
	}
	var country *string
	if d.Country != "" {
		country = &d.Country
	}
	res, err := r.client.db.ExecContext(ctx, `
		UPDATE users SET
			balance = $1,
			pocket_status = $2,
			pocket_total_deposits = $3,
			pocket_ftd_amount = $4,
			pocket_country = $5,
			pocket_registered_at = $6,
			pocket_synced_at = now()
		WHERE id = $7`,
		d.Balance, status, d.TotalDeposits, d.FTDAmount, country, d.RegisteredAt, userID)
	if err != nil {
		return fmt.Errorf("failed to save pocket data for user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
