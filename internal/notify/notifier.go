package notify

import "context"

// Notifier delivers human-facing messages about engine activity. Callers
// treat delivery as best effort; failures are logged, never propagated
// into the decision flow.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string, attachments []string) error
}
