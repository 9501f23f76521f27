package jobs

import (
	"context"

	"github.com/linkstash/linkstash/internal/mailer"
)

// Enqueuer is the slice of Client the notifier needs; it keeps the notifier
// testable without a running Redis.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, msg mailer.Message) error
}

// Notifier renders transactional emails and queues them for delivery. It
// satisfies the notifier interfaces of the auth and links services.
type Notifier struct {
	enqueuer  Enqueuer
	clientURL string
	replyTo   string
}

// NewNotifier constructs a Notifier.
func NewNotifier(enqueuer Enqueuer, clientURL, replyTo string) *Notifier {
	return &Notifier{enqueuer: enqueuer, clientURL: clientURL, replyTo: replyTo}
}

// SendActivation queues the registration confirmation email.
func (n *Notifier) SendActivation(ctx context.Context, email, signedToken string) error {
	return n.enqueuer.EnqueueSendEmail(ctx, mailer.ActivationEmail(n.clientURL, email, signedToken, n.replyTo))
}

// SendPasswordReset queues the reset-link email.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, signedToken string) error {
	return n.enqueuer.EnqueueSendEmail(ctx, mailer.PasswordResetEmail(n.clientURL, email, signedToken, n.replyTo))
}

// SendLinkPublished queues the subscriber digest for a freshly posted link.
func (n *Notifier) SendLinkPublished(ctx context.Context, email, linkTitle string, categories []mailer.CategorySummary) error {
	msg, err := mailer.LinkPublishedEmail(n.clientURL, email, linkTitle, n.replyTo, categories)
	if err != nil {
		return err
	}
	return n.enqueuer.EnqueueSendEmail(ctx, msg)
}
