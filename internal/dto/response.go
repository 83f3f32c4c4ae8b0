package dto

import (
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dispatch"
)

// PostbackResponse is the aggregate answer to an inbound postback. Expected
// failures come back with Status "error" and HTTP 200 so retrying senders do
// not treat them as a hard failure loop.
type PostbackResponse struct {
	Status  string `json:"status" example:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	UserID      int64  `json:"user_id,omitempty"`
	Action      string `json:"action,omitempty"`
	UserCreated bool   `json:"user_created,omitempty"`

	Sum        *float64 `json:"sum,omitempty"`
	Commission *float64 `json:"commission,omitempty"`

	// TID is the tracker goal slot for deposit-class events (6 + prior
	// deposit count); DepositSeq is the zero-based ordinal itself.
	TID        *int `json:"tid,omitempty"`
	DepositSeq *int `json:"deposit_seq,omitempty"`

	TransactionID    int64    `json:"transaction_id,omitempty"`
	TotalDepositsSum *float64 `json:"total_deposits_sum,omitempty"`

	Dispatch []dispatch.Outcome `json:"dispatch,omitempty"`
}

// ErrorResponse is the body for unexpected failures (HTTP 500).
type ErrorResponse struct {
	Error   string `json:"error" example:"internal_error"`
	Message string `json:"message,omitempty"`
}

// LookupResponse answers /postback/lookup.
type LookupResponse struct {
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
	Found            bool           `json:"found"`
	FoundBy          string         `json:"found_by,omitempty"`
	UserID           int64          `json:"user_id,omitempty"`
	Events           map[string]int `json:"events,omitempty"`
	TotalDepositsSum float64        `json:"total_deposits_sum"`
}

// HistoryResponse answers /postback/user/:user_id/history.
type HistoryResponse struct {
	Status            string         `json:"status"`
	UserID            int64          `json:"user_id"`
	EventsSummary     map[string]int `json:"events_summary"`
	Transactions      []EventView    `json:"transactions"`
	TotalTransactions int            `json:"total_transactions"`
	DepositsCount     int            `json:"deposits_count"`
	TotalDepositsSum  float64        `json:"total_deposits_sum"`
	NextDepositTID    int            `json:"next_deposit_tid"`
	Balance           *float64       `json:"balance,omitempty"`
	BalanceSynced     bool           `json:"balance_synced"`
}

// EventView is an event log row as shown to API consumers.
type EventView struct {
	ID         int64    `json:"id"`
	Kind       string   `json:"kind"`
	Amount     *float64 `json:"amount,omitempty"`
	Commission *float64 `json:"commission,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// StatsResponse answers /postback/stats.
type StatsResponse struct {
	Status string         `json:"status"`
	Stats  map[string]any `json:"stats"`
}

// ResolveResponse answers /resolve/uuid.
type ResolveResponse struct {
	Status string `json:"status"`
	UUID   string `json:"uuid,omitempty"`
	Error  string `json:"error,omitempty"`
}
