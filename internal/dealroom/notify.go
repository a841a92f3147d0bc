package dealroom

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

var emailTemplate = template.Must(template.New("deal_email").Parse(`<p>Hi {{.Recipient}},</p>
<p>{{.Message}}</p>
<p><a href="{{.Link}}">Open the deal room</a></p>
<p>DealerHub</p>`))

type emailData struct {
	Recipient string
	Message   string
	Link      string
}

// notifyCounterparty sends exactly one notice to the party that did not act.
// Lookup failures are logged and dropped.
func (s *service) notifyCounterparty(ctx context.Context, deal *models.Transaction, action enums.DealAction, actorRole enums.DealRole, kind enums.NotificationType) {
	if s.dispatcher == nil {
		return
	}
	recipientID := deal.PartyID(actorRole.Counterparty())
	if recipientID == uuid.Nil {
		return
	}

	recipient, err := s.dealers.FindByID(ctx, recipientID)
	if err != nil {
		s.warn(ctx, "deal notification recipient unavailable", deal.ID, err)
		return
	}
	vehicle, err := s.vehicles.FindByID(ctx, deal.VehicleID)
	if err != nil {
		s.warn(ctx, "deal notification vehicle unavailable", deal.ID, err)
		return
	}

	amount := deal.OfferAmount
	if deal.FinalAmount != nil {
		amount = *deal.FinalAmount
	}
	text := transactions.NotificationCopy(action, actorRole, vehicleTitle(vehicle), amount)
	link := s.dealLink(deal.ID)

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, emailData{Recipient: recipient.BusinessName, Message: text.Message, Link: link}); err != nil {
		s.warn(ctx, "render deal email", deal.ID, err)
	}

	id := deal.ID
	s.dispatcher.Dispatch(ctx, notifications.Notice{
		RecipientEmail: recipient.Email,
		Type:           kind,
		Title:          text.Title,
		Message:        text.Message,
		Link:           link,
		TransactionID:  &id,
		EmailSubject:   "DealerHub: " + text.Title,
		EmailHTML:      body.String(),
	})
}

func (s *service) dealLink(id uuid.UUID) string {
	return fmt.Sprintf("%s/deals/%s", strings.TrimRight(s.appBaseURL, "/"), id)
}

func vehicleTitle(v *models.Vehicle) string {
	title := fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	if v.Variant != nil && *v.Variant != "" {
		title += " " + *v.Variant
	}
	return title
}

func (s *service) warn(ctx context.Context, msg string, transactionID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": transactionID.String(),
		"error":          err.Error(),
	})
	s.logg.Warn(ctx, msg)
}
