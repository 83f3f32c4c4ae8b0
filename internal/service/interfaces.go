package service

import (
	"context"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/dispatch"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dto"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// PostbackServicer is the pipeline contract the handler depends on.
type PostbackServicer interface {
	Process(ctx context.Context, kind domain.EventKind, q *dto.PostbackQuery) (*dto.PostbackResponse, error)
	Lookup(ctx context.Context, q *dto.LookupQuery) (*dto.LookupResponse, error)
	History(ctx context.Context, userID int64, limit int) (*dto.HistoryResponse, error)
	Stats(ctx context.Context) (*dto.StatsResponse, error)
	CampaignStats(ctx context.Context) (*repository.CampaignStats, error)
}

// Dispatcher abstracts the fan-out so the pipeline can be tested without HTTP.
type Dispatcher interface {
	Dispatch(ctx context.Context, n dispatch.Notification) []dispatch.Outcome
}

// BalanceSyncer refreshes a user's trading-platform balance; the history
// endpoint calls it best-effort.
type BalanceSyncer interface {
	SyncBalance(ctx context.Context, userID int64) (balance *float64, synced bool)
}
