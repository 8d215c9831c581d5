package worker

import (
	"context"
	"fmt"
	"log/slog"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
)

// UserDirectory resolves an event's user to an email address.
type UserDirectory interface {
	UserContact(ctx context.Context, userID int64) (email, firstName string, err error)
}

// MailSender sends the two notification mails the worker produces.
type MailSender interface {
	SendTransactionRecorded(to, firstName, category string, amount core.Money) error
	SendRewardGranted(to, firstName string, amount core.Money) error
}

// Notifier consumes budget events and mails the affected user.
type Notifier struct {
	users  UserDirectory
	mailer MailSender
}

func NewNotifier(users UserDirectory, mailer MailSender) *Notifier {
	return &Notifier{
		users:  users,
		mailer: mailer,
	}
}

// HandleEvent processes a single budget event from AMQP. A returned error
// requeues the delivery, so lookup and send failures must be retryable.
func (n *Notifier) HandleEvent(ctx context.Context, ev *amqp.BudgetEvent) error {
	slog.InfoContext(ctx, "Processing budget event",
		"event_kind", ev.Kind,
		"user_id", ev.UserID,
		"budget_id", ev.BudgetID)

	if n.mailer == nil {
		slog.WarnContext(ctx, "No mailer configured, skipping notification",
			"event_kind", ev.Kind,
			"user_id", ev.UserID)
		return nil
	}

	email, firstName, err := n.users.UserContact(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("lookup user contact: %w", err)
	}

	amount := core.Money{Cents: ev.AmountCents}
	switch ev.Kind {
	case amqp.KindTransactionRecorded:
		if err := n.mailer.SendTransactionRecorded(email, firstName, ev.Category, amount); err != nil {
			return fmt.Errorf("send transaction mail: %w", err)
		}
	case amqp.KindRewardGranted:
		if err := n.mailer.SendRewardGranted(email, firstName, amount); err != nil {
			return fmt.Errorf("send reward mail: %w", err)
		}
	default:
		slog.WarnContext(ctx, "Unknown budget event kind, dropping",
			"event_kind", ev.Kind)
	}
	return nil
}

// Run consumes events until the context is cancelled.
func (n *Notifier) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeBudgetEvents(ctx, n.HandleEvent)
}
