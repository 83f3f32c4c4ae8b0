package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
)

// Markers written to users whose campaign lookup came back empty, so the
// periodic re-check can tell "never tried" from "tried, nothing found".
const (
	EmptyCampaignMarker   = "None"
	EmptyCampaignIDMarker = -1
)

var (
	// ErrUserNotFound means no user matched the supplied identifiers and
	// creation was not possible.
	ErrUserNotFound = errors.New("user not found")

	// ErrIdentifierRequired means the request carried no identifier at all.
	ErrIdentifierRequired = errors.New("at least one identifier required: 'id', 'subscriber_id', 'clickid', or 'trader_id'")
)

// Resolution describes how a user was found.
type Resolution struct {
	User    *domain.User
	FoundBy string // "id", "subscriber_id", "clickid", "trader_id"
	Created bool
}

// RecordResult is the outcome of an accepted event write.
type RecordResult struct {
	EventID int64
	// DepositSeq is the ordinal of this deposit-class event for the user,
	// counted before the insert under a row lock. Zero for other kinds.
	DepositSeq int
	// TotalDepositsSum is the deposit+redeposit sum including this event.
	TotalDepositsSum float64
	// PreviousRevenue is the revenue value stored before this event.
	PreviousRevenue *float64
}

// UserRepository resolves and mutates the per-user funnel snapshot.
type UserRepository interface {
	// FindByAny looks a user up by the first matching identifier in priority
	// order: internal id, subscriber id, click id, trader id. Returns
	// ErrUserNotFound when nothing matches.
	FindByAny(ctx context.Context, ids domain.Identifiers) (*Resolution, error)

	// Ensure creates the user when absent. Requires an internal id.
	Ensure(ctx context.Context, ids domain.Identifiers) (*Resolution, error)

	// BackfillClickID sets the click id only when the user has none.
	BackfillClickID(ctx context.Context, userID int64, clickID string) error

	// UpdateTraderID overwrites the trader id; the previous value is recorded
	// in the audit log table before the write.
	UpdateTraderID(ctx context.Context, userID int64, traderID string) error

	SetManager(ctx context.Context, userID int64, manager string) (previous *string, err error)

	Get(ctx context.Context, userID int64) (*domain.User, error)

	UpdateCampaignData(ctx context.Context, userID int64, name string, campaignID int64) error
	UsersWithoutCampaignData(ctx context.Context, limit int) ([]CampaignCandidate, error)
	UsersWithEmptyMarkers(ctx context.Context, limit int) ([]CampaignCandidate, error)
	CampaignStats(ctx context.Context) (*CampaignStats, error)

	SavePocketData(ctx context.Context, userID int64, d PocketData) error
}

// EventRepository owns the append-only event log and the duplicate guard.
type EventRepository interface {
	// IsDuplicate reports whether an event of the same kind (and amount, for
	// amount-bearing kinds) was recorded for the user within the window.
	IsDuplicate(ctx context.Context, userID int64, kind domain.EventKind, amount *float64, window time.Duration) (bool, error)

	// RecordEvent appends the event and applies the kind's funnel mutation to
	// the user row in one transaction. The prior deposit-class count is read
	// under a row lock on the user so concurrent deposits for the same user
	// cannot collide on a slot.
	RecordEvent(ctx context.Context, userID int64, kind domain.EventKind, amount, commission *float64, raw map[string]any) (*RecordResult, error)

	UserEvents(ctx context.Context, userID int64, limit int) ([]domain.Event, error)
	UserEventsSummary(ctx context.Context, userID int64) (map[string]int, error)
	DepositsCount(ctx context.Context, userID int64) (int, error)
	TotalDepositsSum(ctx context.Context, userID int64) (float64, error)
	Stats(ctx context.Context) (map[string]any, error)
}

// CampaignCandidate is a user missing campaign attribution.
type CampaignCandidate struct {
	UserID int64
	SubID  string
}

type CampaignStats struct {
	Total       int64 `json:"total"`
	WithData    int64 `json:"with_data"`
	EmptyMarked int64 `json:"empty_marked"`
	Missing     int64 `json:"missing"`
}

// PocketData is the subset of the Pocket Option user-info response persisted
// on the user row.
type PocketData struct {
	Balance       *float64
	Verified      bool
	TotalDeposits *float64
	FTDAmount     *float64
	Country       string
	RegisteredAt  *time.Time
}
