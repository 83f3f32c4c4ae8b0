package campaign

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Successful  int `json:"successful"`
	EmptyMarked int `json:"empty_marked"`
	Failed      int `json:"failed"`
}

// Service backfills campaign attribution for users that arrived without it.
// The tracker's admin API is slow and rate-sensitive, so the crawl is
// throttled and runs in the background: a full pass at startup, then an
// hourly re-check of users previously marked empty.
type Service struct {
	users   repository.UserRepository
	api     TrackerAPI
	limiter *rate.Limiter
	cfg     config.Campaign
	log     *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewService(users repository.UserRepository, api TrackerAPI, cfg config.Campaign, log *zap.Logger) *Service {
	return &Service{
		users:   users,
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(cfg.UsersPerSecond), 1),
		cfg:     cfg,
		log:     log,
	}
}

// Run executes the startup pass and then the periodic re-check loop until the
// context is cancelled. Meant to be launched in its own goroutine.
func (s *Service) Run(ctx context.Context) {
	ctx = s.register(ctx)
	defer s.unregister()

	s.log.Info("Campaign sync starting")

	if _, err := s.SyncMissing(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("Startup campaign sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(time.Duration(s.cfg.CheckIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Campaign sync shutting down")
			return
		case <-ticker.C:
			if _, err := s.ResyncEmpty(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("Hourly campaign re-check failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) register(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	return ctx
}

func (s *Service) unregister() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancel = nil
}

// Stop cancels a running sync loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether the loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SyncMissing processes users that never got campaign data.
func (s *Service) SyncMissing(ctx context.Context) (*SyncResult, error) {
	users, err := s.users.UsersWithoutCampaignData(ctx, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		s.log.Info("All users already have campaign data")
		return &SyncResult{}, nil
	}
	return s.processUsers(ctx, users)
}

// ResyncEmpty re-checks users marked with the empty marker on an earlier pass.
func (s *Service) ResyncEmpty(ctx context.Context) (*SyncResult, error) {
	users, err := s.users.UsersWithEmptyMarkers(ctx, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return &SyncResult{}, nil
	}
	s.log.Info("Re-checking users with empty campaign markers", zap.Int("count", len(users)))
	return s.processUsers(ctx, users)
}

func (s *Service) processUsers(ctx context.Context, users []repository.CampaignCandidate) (*SyncResult, error) {
	result := &SyncResult{Total: len(users)}

	s.log.Info("Processing campaign candidates",
		zap.Int("total", result.Total),
		zap.Float64("users_per_second", s.cfg.UsersPerSecond))

	for _, user := range users {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}

		data, err := s.api.CampaignForSubID(ctx, user.SubID)
		if err != nil {
			result.Failed++
			result.Processed++
			s.log.Error("Campaign lookup failed",
				zap.Int64("user_id", user.UserID),
				zap.String("sub_id", user.SubID),
				zap.Error(err))
			continue
		}

		if data.Found {
			err = s.users.UpdateCampaignData(ctx, user.UserID, data.CampaignName, data.CampaignID)
			if err != nil {
				result.Failed++
			} else {
				result.Successful++
				s.log.Info("Campaign data updated",
					zap.Int64("user_id", user.UserID),
					zap.String("campaign", data.CampaignName))
			}
		} else {
			err = s.users.UpdateCampaignData(ctx, user.UserID,
				repository.EmptyCampaignMarker, repository.EmptyCampaignIDMarker)
			if err != nil {
				result.Failed++
			} else {
				result.EmptyMarked++
			}
		}
		result.Processed++
	}

	s.log.Info("Campaign sync pass finished",
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("empty_marked", result.EmptyMarked),
		zap.Int("failed", result.Failed))

	return result, nil
}
