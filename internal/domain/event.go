package domain

import "time"

// Event is one accepted postback, append-only. The event log is the source of
// truth for deposit counts and sums; user rows only cache aggregates.
type Event struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	Kind       string    `db:"kind"`
	Amount     *float64  `db:"amount"`
	Commission *float64  `db:"commission"`
	Raw        string    `db:"raw"`
	CreatedAt  time.Time `db:"created_at"`
}

// User is the mutable per-user funnel snapshot.
type User struct {
	ID           int64   `db:"id"`
	SubscriberID *string `db:"subscriber_id"`
	ClickID      *string `db:"clickid"`
	TraderID     *string `db:"trader_id"`
	SubID        *string `db:"sub_id"`

	FirstMessageAt *time.Time `db:"first_message_at"`
	RegisteredAt   *time.Time `db:"registered_at"`
	FirstDepositAt *time.Time `db:"first_deposit_at"`
	RedepositAt    *time.Time `db:"redeposit_at"`

	DepositsSum   float64  `db:"deposits_sum"`
	RedepositsSum float64  `db:"redeposits_sum"`
	Revenue       *float64 `db:"revenue"`

	CampaignName *string `db:"campaign_name"`
	CampaignID   *int64  `db:"campaign_id"`
	LandingName  *string `db:"landing_name"`
	LandingID    *int64  `db:"landing_id"`
	Country      *string `db:"country"`
	Manager      *string `db:"manager"`

	Balance             *float64   `db:"balance"`
	PocketStatus        *string    `db:"pocket_status"`
	PocketTotalDeposits *float64   `db:"pocket_total_deposits"`
	PocketFTDAmount     *float64   `db:"pocket_ftd_amount"`
	PocketCountry       *string    `db:"pocket_country"`
	PocketRegisteredAt  *time.Time `db:"pocket_registered_at"`
	PocketSyncedAt      *time.Time `db:"pocket_synced_at"`

	CreatedAt time.Time `db:"created_at"`
}

// Identifiers is the set of lookup keys a postback may carry. Any combination
// can be present; resolution priority is ID, SubscriberID, ClickID, TraderID.
type Identifiers struct {
	ID           *int64
	SubscriberID string
	ClickID      string
	TraderID     string
}

// Empty reports whether no identifier was supplied at all.
func (ids Identifiers) Empty() bool {
	return ids.ID == nil && ids.SubscriberID == "" && ids.ClickID == "" && ids.TraderID == ""
}
