package notify

import "context"

// Sender delivers an HTML message to a list of recipients
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) error
}
