package pocket

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository"
)

// UserInfo is the trading platform's affiliate user-info payload, reduced to
// the fields this service persists.
type UserInfo struct {
	UID         json.Number `json:"uid"`
	RegDate     string      `json:"reg_date"`
	Country     string      `json:"country"`
	IsVerified  bool        `json:"is_verified"`
	SumFTD      *float64    `json:"sum_ftd"`
	SumDeposits *float64    `json:"sum_deposits"`
	Balance     *float64    `json:"balance"`
	Error       string      `json:"error"`
}

type cacheEntry struct {
	balance *float64
	at      time.Time
}

// Client fetches trader data from the Pocket Option affiliate API and caches
// results so repeated history reads do not hammer the API.
type Client struct {
	cfg   config.Pocket
	http  *http.Client
	users repository.UserRepository
	log   *zap.Logger

	mu    sync.Mutex
	cache map[int64]cacheEntry
}

func NewClient(cfg config.Pocket, users repository.UserRepository, log *zap.Logger) *Client {
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		users: users,
		log:   log,
		cache: make(map[int64]cacheEntry),
	}
}

// requestHash computes md5("{trader}:{partner}:{token}") as the API expects.
func requestHash(traderID, partnerID, token string) string {
	sum := md5.Sum([]byte(traderID + ":" + partnerID + ":" + token))
	return hex.EncodeToString(sum[:])
}

// cleanTraderID strips sender prefixes like TRD_; the API wants the bare
// numeric id.
func cleanTraderID(traderID string) string {
	cleaned := strings.TrimSpace(traderID)
	if strings.HasPrefix(strings.ToUpper(cleaned), "TRD_") {
		cleaned = cleaned[4:]
	}
	return cleaned
}

// FetchUserInfo queries the affiliate API for one trader.
func (c *Client) FetchUserInfo(ctx context.Context, traderID string) (*UserInfo, error) {
	if c.cfg.APIToken == "" || c.cfg.PartnerID == "" {
		return nil, fmt.Errorf("pocket option API not configured")
	}

	cid := cleanTraderID(traderID)
	h := requestHash(cid, c.cfg.PartnerID, c.cfg.APIToken)
	url := fmt.Sprintf("%s/api/user-info/%s/%s/%s", c.cfg.BaseURL, cid, c.cfg.PartnerID, h)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user-info request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info for trader %s: %w", traderID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read user-info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user-info HTTP %d for trader %s", resp.StatusCode, traderID)
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("invalid user-info JSON: %w", err)
	}
	if info.Error != "" {
		return nil, fmt.Errorf("user-info API error: %s", info.Error)
	}

	return &info, nil
}

// SyncBalance refreshes the user's platform data and returns the balance.
// Serves from cache within the TTL; on any failure it falls back to the
// balance already stored on the user row.
func (c *Client) SyncBalance(ctx context.Context, userID int64) (*float64, bool) {
	c.mu.Lock()
	if e, ok := c.cache[userID]; ok && time.Since(e.at) < time.Duration(c.cfg.CacheTTLSec)*time.Second {
		c.mu.Unlock()
		return e.balance, true
	}
	c.mu.Unlock()

	user, err := c.users.Get(ctx, userID)
	if err != nil {
		return nil, false
	}
	if user.TraderID == nil {
		return user.Balance, false
	}

	info, err := c.FetchUserInfo(ctx, *user.TraderID)
	if err != nil {
		c.log.Warn("Pocket sync failed, serving stored balance",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return user.Balance, false
	}

	data := repository.PocketData{
		Balance:       info.Balance,
		Verified:      info.IsVerified,
		TotalDeposits: info.SumDeposits,
		FTDAmount:     info.SumFTD,
		Country:       info.Country,
	}
	if t, err := time.Parse("2006-01-02", info.RegDate); err == nil {
		data.RegisteredAt = &t
	}

	if err := c.users.SavePocketData(ctx, userID, data); err != nil {
		c.log.Warn("Failed to persist pocket data",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}

	c.mu.Lock()
	c.cache[userID] = cacheEntry{balance: info.Balance, at: time.Now()}
	c.mu.Unlock()

	return info.Balance, true
}
