package alert

import "context"

// Sink receives operational error notifications. The pipeline only reports
// final failures: storage errors and a dispatch target's last exhausted
// attempt, never intermediate retries.
type Sink interface {
	Error(ctx context.Context, kind, message string, userID int64, extra map[string]string)
}

// Nop discards notifications. Used when alerting is disabled and in tests.
type Nop struct{}

func (Nop) Error(context.Context, string, string, int64, map[string]string) {}
