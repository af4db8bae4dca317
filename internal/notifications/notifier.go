package notifications

import "context"

// Notifier delivers one formatted message to one address. Implementations
// must treat delivery failure as their own error; callers decide whether it
// is fatal.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
