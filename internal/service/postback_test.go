package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dispatch"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dto"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByAny(ctx context.Context, ids domain.Identifiers) (*repository.Resolution, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Resolution), args.Error(1)
}

func (m *MockUserRepository) Ensure(ctx context.Context, ids domain.Identifiers) (*repository.Resolution, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Resolution), args.Error(1)
}

func (m *MockUserRepository) BackfillClickID(ctx context.Context, userID int64, clickID string) error {
	args := m.Called(ctx, userID, clickID)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateTraderID(ctx context.Context, userID int64, traderID string) error {
	args := m.Called(ctx, userID, traderID)
	return args.Error(0)
}

func (m *MockUserRepository) SetManager(ctx context.Context, userID int64, manager string) (*string, error) {
	args := m.Called(ctx, userID, manager)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateCampaignData(ctx context.Context, userID int64, name string, campaignID int64) error {
	args := m.Called(ctx, userID, name, campaignID)
	return args.Error(0)
}

func (m *MockUserRepository) UsersWithoutCampaignData(ctx context.Context, limit int) ([]repository.CampaignCandidate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.CampaignCandidate), args.Error(1)
}

func (m *MockUserRepository) UsersWithEmptyMarkers(ctx context.Context, limit int) ([]repository.CampaignCandidate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.CampaignCandidate), args.Error(1)
}

func (m *MockUserRepository) CampaignStats(ctx context.Context) (*repository.CampaignStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CampaignStats), args.Error(1)
}

func (m *MockUserRepository) SavePocketData(ctx context.Context, userID int64, d repository.PocketData) error {
	args := m.Called(ctx, userID, d)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) IsDuplicate(ctx context.Context, userID int64, kind domain.EventKind, amount *float64, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, kind, amount, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) RecordEvent(ctx context.Context, userID int64, kind domain.EventKind, amount, commission *float64, raw map[string]any) (*repository.RecordResult, error) {
	args := m.Called(ctx, userID, kind, amount, commission, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RecordResult), args.Error(1)
}

func (m *MockEventRepository) UserEvents(ctx context.Context, userID int64, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventRepository) UserEventsSummary(ctx context.Context, userID int64) (map[string]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockEventRepository) DepositsCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) TotalDepositsSum(ctx context.Context, userID int64) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockEventRepository) Stats(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, n dispatch.Notification) []dispatch.Outcome {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]dispatch.Outcome)
}

func testDedup() config.Dedup {
	return config.Dedup{ShortWindowSec: 30, LongWindowSec: 60}
}

func newTestService(users *MockUserRepository, events *MockEventRepository, d *MockDispatcher) *PostbackService {
	return NewPostbackService(users, events, d, nil, nil, testDedup(), domain.DefaultSum, zap.NewNop())
}

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

func existingUser(id int64) *repository.Resolution {
	return &repository.Resolution{
		User:    &domain.User{ID: id, SubID: ptrS("sub123"), ClickID: ptrS("click123")},
		FoundBy: "id",
	}
}

func TestProcess_DepositAssignsNextSlot(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	events.On("IsDuplicate", mock.Anything, int64(42), domain.KindDeposit, mock.Anything, 60*time.Second).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindDeposit, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 7, DepositSeq: 2, TotalDepositsSum: 350}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(n dispatch.Notification) bool {
		return n.UserID == 42 && n.DepositSeq == 2 && n.Amount == 150 && n.SubID == "sub123"
	})).Return([]dispatch.Outcome{{Target: "keitaro", Sent: true}})

	resp, err := svc.Process(context.Background(), domain.KindDeposit, &dto.PostbackQuery{
		ID:  "42",
		Sum: "150",
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(42), resp.UserID)
	if assert.NotNil(t, resp.TID) {
		assert.Equal(t, 8, *resp.TID)
	}
	if assert.NotNil(t, resp.DepositSeq) {
		assert.Equal(t, 2, *resp.DepositSeq)
	}
	assert.Len(t, resp.Dispatch, 1)
	users.AssertExpectations(t)
	events.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestProcess_DuplicateWithinWindowSkips(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	events.On("IsDuplicate", mock.Anything, int64(42), domain.KindFirstMessage, (*float64)(nil), 30*time.Second).
		Return(true, nil)

	resp, err := svc.Process(context.Background(), domain.KindFirstMessage, &dto.PostbackQuery{ID: "42"})

	assert.NoError(t, err)
	assert.Equal(t, "duplicate", resp.Status)
	events.AssertNotCalled(t, "RecordEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestProcess_CreatesUserWhenInternalIDPresent(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	created := &repository.Resolution{
		User:    &domain.User{ID: 99},
		FoundBy: "id",
		Created: true,
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)
	users.On("Ensure", mock.Anything, mock.MatchedBy(func(ids domain.Identifiers) bool {
		return ids.ID != nil && *ids.ID == 99
	})).Return(created, nil)
	events.On("IsDuplicate", mock.Anything, int64(99), domain.KindRegistration, (*float64)(nil), mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(99), domain.KindRegistration, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 1}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Process(context.Background(), domain.KindRegistration, &dto.PostbackQuery{ID: "99"})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.UserCreated)
	// No identifier backfill on a freshly created user.
	users.AssertNotCalled(t, "BackfillClickID", mock.Anything, mock.Anything, mock.Anything)
	users.AssertExpectations(t)
}

func TestProcess_NoIdentifiersRejected(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	resp, err := svc.Process(context.Background(), domain.KindFirstMessage, &dto.PostbackQuery{
		SubscriberID: "{subscriber_id}",
		ClickID:      "null",
	})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "at least one identifier")
	users.AssertNotCalled(t, "FindByAny", mock.Anything, mock.Anything)
}

func TestProcess_MalformedInternalIDRejected(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	resp, err := svc.Process(context.Background(), domain.KindFirstMessage, &dto.PostbackQuery{ID: "abc"})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid id parameter")
}

func TestProcess_UnknownUserWithoutInternalID(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)

	resp, err := svc.Process(context.Background(), domain.KindDeposit, &dto.PostbackQuery{ClickID: "nope"})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "user not found")
	users.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestProcess_RevenueUnchangedIsDuplicate(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	res := &repository.Resolution{
		User:    &domain.User{ID: 42, Revenue: ptrF(100)},
		FoundBy: "trader_id",
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(res, nil)
	users.On("UpdateTraderID", mock.Anything, int64(42), "TRD_1").Return(nil)

	resp, err := svc.Process(context.Background(), domain.KindRevenue, &dto.PostbackQuery{
		TraderID: "TRD_1",
		Sum:      "100",
	})

	assert.NoError(t, err)
	assert.Equal(t, "duplicate", resp.Status)
	// Value-based dedupe fires before the time-window check.
	events.AssertNotCalled(t, "IsDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_RevenueBaselineSuppressesDispatch(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	res := &repository.Resolution{
		User:    &domain.User{ID: 42, ClickID: ptrS("click1")},
		FoundBy: "id",
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(res, nil)
	events.On("IsDuplicate", mock.Anything, int64(42), domain.KindRevenue, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindRevenue, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 5, PreviousRevenue: nil}, nil)

	resp, err := svc.Process(context.Background(), domain.KindRevenue, &dto.PostbackQuery{
		ID:  "42",
		Sum: "100",
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Dispatch)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestProcess_RevenueCorrectionDispatches(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	res := &repository.Resolution{
		User:    &domain.User{ID: 42, ClickID: ptrS("click1"), Revenue: ptrF(100)},
		FoundBy: "id",
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(res, nil)
	events.On("IsDuplicate", mock.Anything, int64(42), domain.KindRevenue, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindRevenue, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 6, PreviousRevenue: ptrF(100)}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(n dispatch.Notification) bool {
		return n.Kind == domain.KindRevenue && n.Amount == 150 && n.ClickID == "click1"
	})).Return([]dispatch.Outcome{{Target: "chatterfy", Sent: true}})

	resp, err := svc.Process(context.Background(), domain.KindRevenue, &dto.PostbackQuery{
		ID:  "42",
		Sum: "150",
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Dispatch, 1)
	dispatcher.AssertExpectations(t)
}

func TestProcess_RevenueTraderIDOutranksInternalID(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	byTrader := &repository.Resolution{
		User:    &domain.User{ID: 7, TraderID: ptrS("TRD_1")},
		FoundBy: "trader_id",
	}
	users.On("FindByAny", mock.Anything, domain.Identifiers{TraderID: "TRD_1"}).Return(byTrader, nil)
	events.On("IsDuplicate", mock.Anything, int64(7), domain.KindRevenue, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(7), domain.KindRevenue, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 9, PreviousRevenue: ptrF(50)}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Process(context.Background(), domain.KindRevenue, &dto.PostbackQuery{
		ID:       "42",
		TraderID: "TRD_1",
		Sum:      "75",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), resp.UserID)
	users.AssertExpectations(t)
}

func TestProcess_BackfillsClickIDOnce(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	res := &repository.Resolution{
		User:    &domain.User{ID: 42, SubID: ptrS("sub1")},
		FoundBy: "id",
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(res, nil)
	users.On("BackfillClickID", mock.Anything, int64(42), "newclick").Return(nil)
	events.On("IsDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindRegistration, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 2}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(n dispatch.Notification) bool {
		return n.ClickID == "newclick"
	})).Return(nil)

	_, err := svc.Process(context.Background(), domain.KindRegistration, &dto.PostbackQuery{
		ID:      "42",
		ClickID: "newclick",
	})

	assert.NoError(t, err)
	users.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestProcess_TraderIDChangeAudited(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	res := &repository.Resolution{
		User:    &domain.User{ID: 42, TraderID: ptrS("TRD_OLD"), ClickID: ptrS("c")},
		FoundBy: "id",
	}
	users.On("FindByAny", mock.Anything, mock.Anything).Return(res, nil)
	users.On("UpdateTraderID", mock.Anything, int64(42), "TRD_NEW").Return(nil)
	events.On("IsDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 3}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Process(context.Background(), domain.KindFirstMessage, &dto.PostbackQuery{
		ID:       "42",
		TraderID: "TRD_NEW",
	})

	assert.NoError(t, err)
	users.AssertExpectations(t)
}

func TestProcess_ManagerAssignmentRecordsPrevious(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	users.On("SetManager", mock.Anything, int64(42), "anna").Return(ptrS("boris"), nil)
	events.On("IsDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindManagerAssignment, mock.Anything, mock.Anything,
		mock.MatchedBy(func(raw map[string]any) bool {
			return raw["manager"] == "anna" && raw["previous_manager"] == "boris"
		})).Return(&repository.RecordResult{EventID: 4}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Process(context.Background(), domain.KindManagerAssignment, &dto.PostbackQuery{
		ID:      "42",
		Manager: "anna",
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	users.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestProcess_EmptyManagerRejected(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	resp, err := svc.Process(context.Background(), domain.KindManagerAssignment, &dto.PostbackQuery{
		ID: "42",
	})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "manager parameter required")
	users.AssertNotCalled(t, "SetManager", mock.Anything, mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "RecordEvent",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_StorageErrorReturnsErrorStatus(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	events.On("IsDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	resp, err := svc.Process(context.Background(), domain.KindDeposit, &dto.PostbackQuery{ID: "42", Sum: "100"})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "storage error")
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestProcess_MissingDepositSumUsesDefault(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	dispatcher := new(MockDispatcher)
	svc := newTestService(users, events, dispatcher)

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	events.On("IsDuplicate", mock.Anything, int64(42), domain.KindDeposit,
		mock.MatchedBy(func(a *float64) bool { return a != nil && *a == domain.DefaultSum }), mock.Anything).
		Return(false, nil)
	events.On("RecordEvent", mock.Anything, int64(42), domain.KindDeposit,
		mock.MatchedBy(func(a *float64) bool { return a != nil && *a == domain.DefaultSum }),
		mock.Anything, mock.Anything).
		Return(&repository.RecordResult{EventID: 1, DepositSeq: 0, TotalDepositsSum: domain.DefaultSum}, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Process(context.Background(), domain.KindDeposit, &dto.PostbackQuery{ID: "42"})

	assert.NoError(t, err)
	if assert.NotNil(t, resp.Sum) {
		assert.Equal(t, domain.DefaultSum, *resp.Sum)
	}
	if assert.NotNil(t, resp.TID) {
		assert.Equal(t, 6, *resp.TID)
	}
	events.AssertExpectations(t)
}

func TestLookup_NotFound(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	svc := newTestService(users, events, new(MockDispatcher))

	users.On("FindByAny", mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)

	resp, err := svc.Lookup(context.Background(), &dto.LookupQuery{ClickID: "nope"})

	assert.NoError(t, err)
	assert.False(t, resp.Found)
}

func TestLookup_Found(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	svc := newTestService(users, events, new(MockDispatcher))

	users.On("FindByAny", mock.Anything, mock.Anything).Return(existingUser(42), nil)
	events.On("UserEventsSummary", mock.Anything, int64(42)).Return(map[string]int{"dep": 2}, nil)
	events.On("TotalDepositsSum", mock.Anything, int64(42)).Return(250.0, nil)

	resp, err := svc.Lookup(context.Background(), &dto.LookupQuery{ID: "42"})

	assert.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "id", resp.FoundBy)
	assert.Equal(t, 250.0, resp.TotalDepositsSum)
}

func TestLookup_NoIdentifiersIsExpectedFailure(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	svc := newTestService(users, events, new(MockDispatcher))

	resp, err := svc.Lookup(context.Background(), &dto.LookupQuery{})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "at least one identifier required")
	users.AssertNotCalled(t, "FindByAny", mock.Anything, mock.Anything)
}

func TestLookup_MalformedIDIsExpectedFailure(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	svc := newTestService(users, events, new(MockDispatcher))

	resp, err := svc.Lookup(context.Background(), &dto.LookupQuery{ID: "abc"})

	assert.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid id parameter")
	users.AssertNotCalled(t, "FindByAny", mock.Anything, mock.Anything)
}

func TestHistory_ComputesNextTID(t *testing.T) {
	users := new(MockUserRepository)
	events := new(MockEventRepository)
	svc := newTestService(users, events, new(MockDispatcher))

	users.On("Get", mock.Anything, int64(42)).Return(&domain.User{ID: 42}, nil)
	events.On("UserEvents", mock.Anything, int64(42), 50).Return([]domain.Event{
		{ID: 1, Kind: "dep", Amount: ptrF(100), CreatedAt: time.Now()},
	}, nil)
	events.On("UserEventsSummary", mock.Anything, int64(42)).Return(map[string]int{"dep": 3}, nil)
	events.On("DepositsCount", mock.Anything, int64(42)).Return(3, nil)
	events.On("TotalDepositsSum", mock.Anything, int64(42)).Return(300.0, nil)

	resp, err := svc.History(context.Background(), 42, 50)

	assert.NoError(t, err)
	assert.Equal(t, 9, resp.NextDepositTID)
	assert.Equal(t, 1, resp.TotalTransactions)
	assert.False(t, resp.BalanceSynced)
}
