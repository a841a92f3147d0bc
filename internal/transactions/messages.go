package transactions

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
)

// Copy is the notification text sent to the counterparty of an action.
type Copy struct {
	Title   string
	Message string
}

// NotificationCopy renders the in-app and email copy for the counterparty of
// an action performed by actorRole. vehicleTitle is e.g. "2019 Honda City".
func NotificationCopy(action enums.DealAction, actorRole enums.DealRole, vehicleTitle string, amount int64) Copy {
	actor := "The " + string(actorRole)
	switch action {
	case enums.DealActionCounterOffer:
		return Copy{
			Title:   "New counter-offer",
			Message: fmt.Sprintf("%s countered at %s for %s.", actor, formatAmount(amount), vehicleTitle),
		}
	case enums.DealActionAccept:
		return Copy{
			Title:   "Offer accepted",
			Message: fmt.Sprintf("Your offer of %s for %s was accepted. Complete the payment to move funds into escrow.", formatAmount(amount), vehicleTitle),
		}
	case enums.DealActionReject:
		return Copy{
			Title:   "Offer declined",
			Message: fmt.Sprintf("The seller declined your offer for %s.", vehicleTitle),
		}
	case enums.DealActionConfirmPayment:
		return Copy{
			Title:   "Payment in escrow",
			Message: fmt.Sprintf("The buyer paid %s into escrow for %s. Arrange handover and release funds.", formatAmount(amount), vehicleTitle),
		}
	case enums.DealActionReleaseFunds:
		return Copy{
			Title:   "Deal completed",
			Message: fmt.Sprintf("Escrow for %s was released to the seller.", vehicleTitle),
		}
	case enums.DealActionMarkInTransit:
		return Copy{
			Title:   "Vehicle dispatched",
			Message: fmt.Sprintf("%s is on its way. Confirm delivery once it arrives.", vehicleTitle),
		}
	case enums.DealActionConfirmDelivery:
		return Copy{
			Title:   "Vehicle delivered",
			Message: fmt.Sprintf("The buyer confirmed delivery of %s.", vehicleTitle),
		}
	case enums.DealActionSubmitRating:
		return Copy{
			Title:   "You were rated",
			Message: fmt.Sprintf("%s rated your deal for %s.", actor, vehicleTitle),
		}
	case enums.DealActionArchive:
		return Copy{
			Title:   "Deal archived",
			Message: fmt.Sprintf("%s archived the deal for %s.", actor, vehicleTitle),
		}
	case enums.DealActionRestore:
		return Copy{
			Title:   "Deal restored",
			Message: fmt.Sprintf("%s restored the deal for %s.", actor, vehicleTitle),
		}
	case enums.DealActionSendMessage:
		return Copy{
			Title:   "New message",
			Message: fmt.Sprintf("%s sent a message about %s.", actor, vehicleTitle),
		}
	case enums.DealActionMakeOffer:
		return Copy{
			Title:   "New offer received",
			Message: fmt.Sprintf("You received an offer of %s for %s.", formatAmount(amount), vehicleTitle),
		}
	}
	return Copy{Title: "Deal updated", Message: fmt.Sprintf("Your deal for %s was updated.", vehicleTitle)}
}

func formatAmount(rupees int64) string {
	return fmt.Sprintf("%s (%s L)", money.FormatINR(rupees), money.RupeesToLakhs(rupees))
}

func offerText(amount int64) string {
	return "Offer made at " + formatAmount(amount)
}

func counterText(role enums.DealRole, amount int64, note string) string {
	return withNote(fmt.Sprintf("%s countered at %s", capitalize(string(role)), formatAmount(amount)), note)
}

func withNote(base, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return base
	}
	return base + ": " + note
}

func humanAction(action enums.DealAction) string {
	return strings.ReplaceAll(string(action), "_", " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
