package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/dealerhub-backend/pkg/auth"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	"github.com/angelmondragon/dealerhub-backend/pkg/mailer"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"

	defaultDispatchTimeout = 5 * time.Second
)

// Notice is one message to a deal party, delivered in-app and by email.
type Notice struct {
	RecipientEmail string
	Type           enums.NotificationType
	Title          string
	Message        string
	Link           string
	TransactionID  *uuid.UUID
	EmailSubject   string
	EmailHTML      string
}

// Dispatcher delivers notices on a best-effort basis.
type Dispatcher interface {
	Dispatch(ctx context.Context, notice Notice)
}

type failureCounter interface {
	IncNotificationFailure(channel string)
}

type dispatcher struct {
	repo    Repository
	mail    mailer.Sender
	logg    *logger.Logger
	metrics failureCounter
	timeout time.Duration
}

// NewDispatcher wires the in-app store and mail sender. Either may be nil.
func NewDispatcher(repo Repository, mail mailer.Sender, logg *logger.Logger, metrics failureCounter, timeout time.Duration) Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &dispatcher{repo: repo, mail: mail, logg: logg, metrics: metrics, timeout: timeout}
}

// Dispatch creates the notification and sends the email. Failures are logged
// and counted, never returned; a notification outage must not fail a deal action.
func (d *dispatcher) Dispatch(ctx context.Context, notice Notice) {
	email := auth.NormalizeEmail(notice.RecipientEmail)
	if email == "" {
		return
	}
	// Detach from the request so a client disconnect does not drop the notice.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	var errs error
	if d.repo != nil {
		row := &models.Notification{
			RecipientEmail: email,
			Type:           notice.Type,
			Title:          notice.Title,
			Message:        notice.Message,
			TransactionID:  notice.TransactionID,
		}
		if notice.Link != "" {
			link := notice.Link
			row.Link = &link
		}
		if err := d.repo.Create(ctx, row); err != nil {
			d.countFailure(ChannelInApp)
			errs = multierr.Append(errs, fmt.Errorf("create notification: %w", err))
		}
	}

	if d.mail != nil && notice.EmailSubject != "" {
		err := d.mail.Send(ctx, mailer.Message{
			To:       email,
			Subject:  notice.EmailSubject,
			HTMLBody: notice.EmailHTML,
		})
		if err != nil {
			d.countFailure(ChannelEmail)
			errs = multierr.Append(errs, fmt.Errorf("send email: %w", err))
		}
	}

	if errs != nil && d.logg != nil {
		fields := map[string]any{
			"recipient":         email,
			"notification_type": string(notice.Type),
			"error":             errs.Error(),
			"failures":          len(multierr.Errors(errs)),
		}
		if notice.TransactionID != nil {
			fields["transaction_id"] = notice.TransactionID.String()
		}
		d.logg.Warn(d.logg.WithFields(ctx, fields), "deal notification delivery failed")
	}
}

func (d *dispatcher) countFailure(channel string) {
	if d.metrics != nil {
		d.metrics.IncNotificationFailure(channel)
	}
}
