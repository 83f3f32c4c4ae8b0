package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/alert"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dispatch"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dto"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// PostbackService runs the ingestion pipeline: resolve identity, guard
// against retransmits, record the event with its funnel mutation, then fan
// out to the configured trackers.
type PostbackService struct {
	users      repository.UserRepository
	events     repository.EventRepository
	dispatcher Dispatcher
	alerts     alert.Sink
	balances   BalanceSyncer
	dedup      config.Dedup
	defaultSum float64
	log        *zap.Logger
}

func NewPostbackService(
	users repository.UserRepository,
	events repository.EventRepository,
	dispatcher Dispatcher,
	alerts alert.Sink,
	balances BalanceSyncer,
	dedup config.Dedup,
	defaultSum float64,
	log *zap.Logger,
) *PostbackService {
	if alerts == nil {
		alerts = alert.Nop{}
	}
	return &PostbackService{
		users:      users,
		events:     events,
		dispatcher: dispatcher,
		alerts:     alerts,
		balances:   balances,
		dedup:      dedup,
		defaultSum: defaultSum,
		log:        log,
	}
}

// Process handles one inbound postback end to end. Expected failures are
// encoded in the response with Status "error"; a non-nil error means
// something genuinely unexpected.
func (s *PostbackService) Process(ctx context.Context, kind domain.EventKind, q *dto.PostbackQuery) (*dto.PostbackResponse, error) {
	ids, err := normalizeIdentifiers(q)
	if err != nil {
		return errorResponse(err.Error()), nil
	}

	var amount *float64
	if kind.HasAmount() {
		v := domain.ParseSum(q.Sum, kind, s.defaultSum)
		amount = &v
	}
	commission := domain.ParseCommission(q.Commission)

	manager := domain.NormalizeIdentifier(q.Manager)
	if kind == domain.KindManagerAssignment && manager == "" {
		return errorResponse("manager parameter required"), nil
	}

	s.log.Info("Postback received",
		zap.String("kind", kind.String()),
		zap.Any("id", ids.ID),
		zap.String("subscriber_id", ids.SubscriberID),
		zap.String("clickid", ids.ClickID),
		zap.String("trader_id", ids.TraderID))

	res, err := s.resolve(ctx, kind, ids)
	if err != nil {
		if errors.Is(err, repository.ErrIdentifierRequired) || errors.Is(err, repository.ErrUserNotFound) {
			return errorResponse(resolutionError(err, ids)), nil
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	user := res.User

	if !res.Created {
		if err := s.backfill(ctx, user, ids); err != nil {
			return nil, err
		}
	}

	// Revenue dedupes on unchanged value regardless of the time window.
	if kind == domain.KindRevenue && amount != nil &&
		user.Revenue != nil && *user.Revenue == *amount {
		s.log.Info("Revenue unchanged, skipping",
			zap.Int64("user_id", user.ID),
			zap.Float64("revenue", *amount))
		return duplicateResponse(user.ID, "revenue value unchanged"), nil
	}

	window := time.Duration(kind.DedupWindow(s.dedup.ShortWindowSec, s.dedup.LongWindowSec)) * time.Second
	dup, err := s.events.IsDuplicate(ctx, user.ID, kind, amount, window)
	if err != nil {
		return nil, fmt.Errorf("failed duplicate check: %w", err)
	}
	if dup {
		s.log.Info("Duplicate postback, skipping",
			zap.Int64("user_id", user.ID),
			zap.String("kind", kind.String()))
		return duplicateResponse(user.ID,
			fmt.Sprintf("transaction already processed within last %d seconds", int(window.Seconds()))), nil
	}

	raw := rawSnapshot(kind, q, amount, commission, res.Created)

	if kind == domain.KindManagerAssignment {
		previous, err := s.users.SetManager(ctx, user.ID, manager)
		if err != nil {
			return s.storageFailure(ctx, kind, user.ID, err)
		}
		if previous != nil {
			raw["previous_manager"] = *previous
		}
		raw["manager"] = manager
	}

	record, err := s.events.RecordEvent(ctx, user.ID, kind, amount, commission, raw)
	if err != nil {
		return s.storageFailure(ctx, kind, user.ID, err)
	}

	resp := &dto.PostbackResponse{
		Status:        "ok",
		UserID:        user.ID,
		Action:        kind.String(),
		UserCreated:   res.Created,
		Sum:           amount,
		Commission:    commission,
		TransactionID: record.EventID,
	}
	if kind.DepositClass() {
		tid := 6 + record.DepositSeq
		resp.TID = &tid
		seq := record.DepositSeq
		resp.DepositSeq = &seq
		resp.TotalDepositsSum = &record.TotalDepositsSum
	}

	if s.suppressDispatch(kind, record) {
		s.log.Info("Revenue baseline set, dispatch suppressed",
			zap.Int64("user_id", user.ID))
		return resp, nil
	}

	// The event is a committed fact now; a client disconnect must not abort
	// the downstream notification.
	resp.Dispatch = s.dispatcher.Dispatch(context.WithoutCancel(ctx), dispatch.Notification{
		UserID:           user.ID,
		Kind:             kind,
		Amount:           derefAmount(amount),
		SubID:            derefStr(user.SubID),
		ClickID:          s.currentClickID(ctx, user, ids),
		DepositSeq:       record.DepositSeq,
		TotalDepositsSum: record.TotalDepositsSum,
	})

	return resp, nil
}

// resolve finds or creates the user for the event. For revenue corrections
// the trader id outranks the internal id when they point at different users:
// the correction must follow the account active on the trading platform.
func (s *PostbackService) resolve(ctx context.Context, kind domain.EventKind, ids domain.Identifiers) (*repository.Resolution, error) {
	if ids.Empty() {
		return nil, repository.ErrIdentifierRequired
	}

	if kind == domain.KindRevenue && ids.TraderID != "" {
		byTrader, err := s.users.FindByAny(ctx, domain.Identifiers{TraderID: ids.TraderID})
		if err == nil {
			return byTrader, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
	}

	res, err := s.users.FindByAny(ctx, ids)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if ids.ID == nil {
		return nil, repository.ErrUserNotFound
	}

	return s.users.Ensure(ctx, ids)
}

// backfill applies identifier side effects on an existing user: click id is
// set-once, trader id is update-on-change with the old value audited.
func (s *PostbackService) backfill(ctx context.Context, user *domain.User, ids domain.Identifiers) error {
	if ids.ClickID != "" && user.ClickID == nil {
		if err := s.users.BackfillClickID(ctx, user.ID, ids.ClickID); err != nil {
			return fmt.Errorf("failed to backfill clickid: %w", err)
		}
	}
	if ids.TraderID != "" && (user.TraderID == nil || *user.TraderID != ids.TraderID) {
		if err := s.users.UpdateTraderID(ctx, user.ID, ids.TraderID); err != nil {
			return fmt.Errorf("failed to update trader id: %w", err)
		}
	}
	return nil
}

// currentClickID prefers the stored click id, falling back to one supplied on
// this request (it was just backfilled for an existing user, or stored at
// creation).
func (s *PostbackService) currentClickID(_ context.Context, user *domain.User, ids domain.Identifiers) string {
	if user.ClickID != nil {
		return *user.ClickID
	}
	return ids.ClickID
}

// suppressDispatch holds back revenue events that set the first baseline;
// only state-changing corrections are forwarded downstream.
func (s *PostbackService) suppressDispatch(kind domain.EventKind, record *repository.RecordResult) bool {
	return kind == domain.KindRevenue && record.PreviousRevenue == nil
}

func (s *PostbackService) storageFailure(ctx context.Context, kind domain.EventKind, userID int64, err error) (*dto.PostbackResponse, error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		return errorResponse(fmt.Sprintf("user not found: id=%d", userID)), nil
	}
	s.log.Error("Storage error recording postback",
		zap.Int64("user_id", userID),
		zap.String("kind", kind.String()),
		zap.Error(err))
	s.alerts.Error(ctx, "POSTBACK_DB_ERROR", err.Error(), userID, map[string]string{
		"action": kind.String(),
	})
	return errorResponse("storage error: " + err.Error()), nil
}

// Lookup finds a user by any identifier without side effects.
func (s *PostbackService) Lookup(ctx context.Context, q *dto.LookupQuery) (*dto.LookupResponse, error) {
	ids, err := normalizeIdentifiers(&dto.PostbackQuery{
		ID: q.ID, SubscriberID: q.SubscriberID, ClickID: q.ClickID, TraderID: q.TraderID,
	})
	if err != nil {
		return &dto.LookupResponse{Status: "error", Error: err.Error()}, nil
	}
	if ids.Empty() {
		return &dto.LookupResponse{Status: "error", Error: repository.ErrIdentifierRequired.Error()}, nil
	}

	res, err := s.users.FindByAny(ctx, ids)
	if errors.Is(err, repository.ErrUserNotFound) {
		return &dto.LookupResponse{Status: "ok", Found: false}, nil
	}
	if err != nil {
		return nil, err
	}

	summary, err := s.events.UserEventsSummary(ctx, res.User.ID)
	if err != nil {
		return nil, err
	}
	total, err := s.events.TotalDepositsSum(ctx, res.User.ID)
	if err != nil {
		return nil, err
	}

	return &dto.LookupResponse{
		Status:           "ok",
		Found:            true,
		FoundBy:          res.FoundBy,
		UserID:           res.User.ID,
		Events:           summary,
		TotalDepositsSum: total,
	}, nil
}

// History returns the user's transaction log plus funnel aggregates, with a
// best-effort balance refresh from the trading platform.
func (s *PostbackService) History(ctx context.Context, userID int64, limit int) (*dto.HistoryResponse, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	events, err := s.events.UserEvents(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	summary, err := s.events.UserEventsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.events.DepositsCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.events.TotalDepositsSum(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]dto.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, dto.EventView{
			ID:         e.ID,
			Kind:       e.Kind,
			Amount:     e.Amount,
			Commission: e.Commission,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}

	resp := &dto.HistoryResponse{
		Status:            "ok",
		UserID:            userID,
		EventsSummary:     summary,
		Transactions:      views,
		TotalTransactions: len(views),
		DepositsCount:     count,
		TotalDepositsSum:  total,
		NextDepositTID:    6 + count,
	}

	if s.balances != nil {
		resp.Balance, resp.BalanceSynced = s.balances.SyncBalance(ctx, userID)
	}

	return resp, nil
}

// Stats aggregates the whole event log.
func (s *PostbackService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	stats, err := s.events.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.StatsResponse{Status: "ok", Stats: stats}, nil
}

// CampaignStats reports how much of the user base has tracker campaign data
// attached.
func (s *PostbackService) CampaignStats(ctx context.Context) (*repository.CampaignStats, error) {
	return s.users.CampaignStats(ctx)
}

// normalizeIdentifiers filters placeholder tokens and validates formats. A
// malformed subscriber id is dropped rather than matched literally; a
// malformed internal id is a hard error since it cannot be a lookup key.
func normalizeIdentifiers(q *dto.PostbackQuery) (domain.Identifiers, error) {
	var ids domain.Identifiers

	if raw := domain.NormalizeIdentifier(q.ID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ids, fmt.Errorf("invalid id parameter: %q", q.ID)
		}
		ids.ID = &id
	}

	if sub := domain.NormalizeIdentifier(q.SubscriberID); domain.IsValidSubscriberID(sub) {
		ids.SubscriberID = sub
	}
	ids.ClickID = domain.NormalizeIdentifier(q.ClickID)
	ids.TraderID = domain.NormalizeIdentifier(q.TraderID)

	return ids, nil
}

func rawSnapshot(kind domain.EventKind, q *dto.PostbackQuery, amount, commission *float64, created bool) map[string]any {
	raw := map[string]any{
		"action":        kind.String(),
		"id":            q.ID,
		"subscriber_id": q.SubscriberID,
		"clickid":       q.ClickID,
		"trader_id":     q.TraderID,
		"user_created":  created,
	}
	if amount != nil {
		raw["sum"] = *amount
	}
	if commission != nil {
		raw["commission"] = *commission
	}
	return raw
}

func resolutionError(err error, ids domain.Identifiers) string {
	if errors.Is(err, repository.ErrIdentifierRequired) {
		return err.Error()
	}
	id := int64(0)
	if ids.ID != nil {
		id = *ids.ID
	}
	return fmt.Sprintf("user not found: id=%d, subscriber_id=%s, clickid=%s, trader_id=%s",
		id, ids.SubscriberID, ids.ClickID, ids.TraderID)
}

func errorResponse(msg string) *dto.PostbackResponse {
	return &dto.PostbackResponse{Status: "error", Error: msg}
}

func duplicateResponse(userID int64, msg string) *dto.PostbackResponse {
	return &dto.PostbackResponse{Status: "duplicate", UserID: userID, Message: msg}
}

func derefAmount(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
