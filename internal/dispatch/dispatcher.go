package dispatch

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/httpclient"
)

// Notification is the downstream-relevant view of an accepted event.
type Notification struct {
	UserID     int64
	Kind       domain.EventKind
	Amount     float64
	SubID      string
	ClickID    string
	DepositSeq int
	// TotalDepositsSum is the cumulative deposit+redeposit sum including the
	// event being dispatched.
	TotalDepositsSum float64
}

// Request is a built outbound call for one target.
type Request struct {
	URL    string
	Params url.Values
}

// Target maps an accepted event onto one downstream tracker's parameter
// vocabulary. Build returns skip=true with a reason when the target has no
// mapping for the kind or the user lacks the needed identifier.
type Target interface {
	Name() string
	Build(n Notification) (req *Request, skip bool, reason string)
}

// Outcome is one target's result, reported independently to the caller.
type Outcome struct {
	Target     string               `json:"target"`
	Sent       bool                 `json:"sent"`
	Skipped    bool                 `json:"skipped,omitempty"`
	SkipReason string               `json:"skip_reason,omitempty"`
	Status     int                  `json:"status,omitempty"`
	Response   string               `json:"response,omitempty"`
	Attempts   int                  `json:"attempts,omitempty"`
	ErrorKind  httpclient.ErrorKind `json:"error_kind,omitempty"`
	URL        string               `json:"url,omitempty"`
}

// Dispatcher fans an accepted event out to every configured target
// concurrently. One target's failure never blocks or fails another; the batch
// completes when the slowest target finishes or exhausts its retries.
type Dispatcher struct {
	client        *httpclient.Client
	targets       []Target
	excerptLength int
	log           *zap.Logger
}

func NewDispatcher(client *httpclient.Client, targets []Target, excerptLength int, log *zap.Logger) *Dispatcher {
	if excerptLength <= 0 {
		excerptLength = 100
	}
	return &Dispatcher{client: client, targets: targets, excerptLength: excerptLength, log: log}
}

// Dispatch runs every buildable target in parallel and returns outcomes in
// target order.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) []Outcome {
	outcomes := make([]Outcome, len(d.targets))

	var wg sync.WaitGroup
	for i, target := range d.targets {
		req, skip, reason := target.Build(n)
		if skip {
			outcomes[i] = Outcome{Target: target.Name(), Skipped: true, SkipReason: reason}
			continue
		}

		wg.Add(1)
		go func(i int, target Target, req *Request) {
			defer wg.Done()

			result := d.client.Send(ctx, req.URL, req.Params)

			outcomes[i] = Outcome{
				Target:    target.Name(),
				Sent:      result.OK,
				Status:    result.Status,
				Response:  truncate(result.Body, d.excerptLength),
				Attempts:  result.Attempts,
				ErrorKind: result.ErrorKind,
				URL:       result.FullURL,
			}

			if result.OK {
				d.log.Info("Postback dispatched",
					zap.String("target", target.Name()),
					zap.Int64("user_id", n.UserID),
					zap.String("kind", n.Kind.String()),
					zap.Int("attempts", result.Attempts))
			} else {
				d.log.Warn("Postback dispatch failed",
					zap.String("target", target.Name()),
					zap.Int64("user_id", n.UserID),
					zap.String("kind", n.Kind.String()),
					zap.String("error_kind", string(result.ErrorKind)),
					zap.Int("status", result.Status),
					zap.Int("attempts", result.Attempts))
			}
		}(i, target, req)
	}

	wg.Wait()
	return outcomes
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
