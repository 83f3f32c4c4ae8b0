package alert

import (
	"context"
	"fmt"
	"strconv"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/httpclient"
)

// AttemptReporter forwards final failed dispatch attempts to a Sink.
// Intermediate attempts stay quiet; one tracker call produces at most one
// alert.
type AttemptReporter struct {
	sink Sink
}

func NewAttemptReporter(sink Sink) *AttemptReporter {
	if sink == nil {
		sink = Nop{}
	}
	return &AttemptReporter{sink: sink}
}

func (r *AttemptReporter) ReportAttempt(ctx context.Context, a httpclient.Attempt) {
	if !a.Final || a.Kind == "" {
		return
	}

	message := fmt.Sprintf("dispatch to %s failed after %d attempt(s)", a.URL, a.Number)
	extra := map[string]string{
		"error_kind": string(a.Kind),
		"attempts":   strconv.Itoa(a.Number),
		"duration":   a.Duration.String(),
	}
	if a.Status != 0 {
		extra["status"] = strconv.Itoa(a.Status)
	}
	if a.Err != nil {
		extra["error"] = a.Err.Error()
	}

	r.sink.Error(ctx, "DISPATCH_FAILED", message, 0, extra)
}
