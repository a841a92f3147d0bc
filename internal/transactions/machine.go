// Package transactions owns the deal lifecycle: every status, amount, escrow,
// transport, rating and archive change to a Transaction goes through Apply.
package transactions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/types"
)

const (
	MinRating = 1
	MaxRating = 5

	maxMessageLength = 2000
	maxReviewLength  = 2000
)

// Input carries the action-specific arguments. Amount is whole rupees.
type Input struct {
	Action           enums.DealAction
	Amount           int64
	Text             string
	PaymentReference string
	Rating           int
	Review           string
}

// RatingEffect describes the dealer bookkeeping a rating triggers.
type RatingEffect struct {
	RaterRole enums.DealRole
	RateeID   uuid.UUID
	Score     int
	// FirstForDeal is true when no party had rated before; completed_deals is
	// bumped for both parties exactly then.
	FirstForDeal bool
}

// Effects are the writes outside the transaction row that an action implies.
type Effects struct {
	VehicleStatus    *enums.VehicleStatus
	Rating           *RatingEffect
	NotifyRole       enums.DealRole
	NotificationType enums.NotificationType
	Event            types.DealMessage
}

// Result is the outcome of a successful Apply.
type Result struct {
	Transaction models.Transaction
	From        enums.TransactionStatus
	ActorRole   enums.DealRole
	Effects     Effects
}

// rule gates one action on role and current state. check returns a
// CodeStateConflict error when the state does not allow the action.
type rule struct {
	roles []enums.DealRole
	check func(t *models.Transaction, role enums.DealRole) error
}

var eitherParty = []enums.DealRole{enums.DealRoleSeller, enums.DealRoleBuyer}

var rules = map[enums.DealAction]rule{
	enums.DealActionCounterOffer: {
		roles: eitherParty,
		check: func(t *models.Transaction, role enums.DealRole) error {
			switch t.Status {
			case enums.TransactionStatusOfferMade:
				if role != enums.DealRoleSeller {
					return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can counter the opening offer")
				}
				return nil
			case enums.TransactionStatusNegotiating:
				return nil
			}
			return statusConflict(enums.DealActionCounterOffer, t.Status)
		},
	},
	enums.DealActionAccept: {
		roles: []enums.DealRole{enums.DealRoleSeller},
		check: requireStatus(enums.DealActionAccept, enums.TransactionStatusOfferMade, enums.TransactionStatusNegotiating),
	},
	enums.DealActionReject: {
		roles: []enums.DealRole{enums.DealRoleSeller},
		check: requireStatus(enums.DealActionReject, enums.TransactionStatusOfferMade, enums.TransactionStatusNegotiating),
	},
	enums.DealActionConfirmPayment: {
		roles: []enums.DealRole{enums.DealRoleBuyer},
		check: requireStatus(enums.DealActionConfirmPayment, enums.TransactionStatusAccepted),
	},
	enums.DealActionReleaseFunds: {
		roles: []enums.DealRole{enums.DealRoleSeller},
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if t.Status != enums.TransactionStatusInEscrow {
				return statusConflict(enums.DealActionReleaseFunds, t.Status)
			}
			if t.EscrowStatus != enums.EscrowStatusPaid {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "funds cannot be released while escrow is %s", t.EscrowStatus)
			}
			return nil
		},
	},
	enums.DealActionMarkInTransit: {
		roles: []enums.DealRole{enums.DealRoleSeller},
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if t.Status != enums.TransactionStatusInEscrow && t.Status != enums.TransactionStatusCompleted {
				return statusConflict(enums.DealActionMarkInTransit, t.Status)
			}
			if t.TransportStatus != enums.TransportStatusUnset {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "vehicle transport is already %s", t.TransportStatus)
			}
			return nil
		},
	},
	enums.DealActionConfirmDelivery: {
		roles: []enums.DealRole{enums.DealRoleBuyer},
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if t.Status != enums.TransactionStatusInEscrow && t.Status != enums.TransactionStatusCompleted {
				return statusConflict(enums.DealActionConfirmDelivery, t.Status)
			}
			if t.TransportStatus != enums.TransportStatusInTransit {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is not in transit")
			}
			return nil
		},
	},
	enums.DealActionSubmitRating: {
		roles: eitherParty,
		check: func(t *models.Transaction, role enums.DealRole) error {
			if !t.Delivered() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "ratings open once the deal is completed and delivered")
			}
			if t.RatingBy(role) != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "you have already rated this deal")
			}
			return nil
		},
	},
	enums.DealActionArchive: {
		roles: eitherParty,
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if t.DealArchived {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "deal is already archived")
			}
			if !t.Delivered() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed and delivered deals can be archived")
			}
			return nil
		},
	},
	enums.DealActionRestore: {
		roles: eitherParty,
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if !t.DealArchived {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "deal is not archived")
			}
			return nil
		},
	},
	enums.DealActionSendMessage: {
		roles: eitherParty,
		check: func(t *models.Transaction, _ enums.DealRole) error {
			if t.Status == enums.TransactionStatusCancelled {
				return statusConflict(enums.DealActionSendMessage, t.Status)
			}
			return nil
		},
	},
}

func requireStatus(action enums.DealAction, allowed ...enums.TransactionStatus) func(*models.Transaction, enums.DealRole) error {
	return func(t *models.Transaction, _ enums.DealRole) error {
		for _, s := range allowed {
			if t.Status == s {
				return nil
			}
		}
		return statusConflict(action, t.Status)
	}
}

func statusConflict(action enums.DealAction, status enums.TransactionStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s is not allowed while the deal is %s", action, status)
}

// Authorize reports whether role may perform action on t in its current state.
func Authorize(t *models.Transaction, role enums.DealRole, action enums.DealAction) error {
	r, ok := rules[action]
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", action)
	}
	if role == enums.DealRoleNone {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you are not a party to this deal")
	}
	if !containsRole(r.roles, role) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "only the %s can %s", r.roles[0], humanAction(action))
	}
	return r.check(t, role)
}

// LegalActions lists the actions role may take on t right now, in display order.
func LegalActions(t *models.Transaction, role enums.DealRole) []enums.DealAction {
	if t == nil || role == enums.DealRoleNone {
		return nil
	}
	out := []enums.DealAction{}
	for _, action := range enums.DealActions() {
		if Authorize(t, role, action) == nil {
			out = append(out, action)
		}
	}
	return out
}

// NewOffer builds the opening transaction for a buyer's offer on vehicle.
func NewOffer(vehicle models.Vehicle, buyerID uuid.UUID, amount int64, now time.Time) (*models.Transaction, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "a dealer profile is required to make offers")
	}
	if vehicle.DealerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot make an offer on your own vehicle")
	}
	if vehicle.Status != enums.VehicleStatusLive {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "vehicle is %s and not accepting offers", vehicle.Status)
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer amount must be greater than zero")
	}

	buyer := buyerID
	tx := &models.Transaction{
		ID:              uuid.New(),
		VehicleID:       vehicle.ID,
		SellerID:        vehicle.DealerID,
		BuyerID:         &buyer,
		Status:          enums.TransactionStatusOfferMade,
		OfferAmount:     amount,
		EscrowStatus:    enums.EscrowStatusUnset,
		TransportStatus: enums.TransportStatusUnset,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx.Messages = types.DealMessages{}.Append(newEvent(enums.NegotiationEventOfferMade, buyerID, &amount, offerText(amount), now))
	return tx, nil
}

// Apply validates and performs action on a copy of current. current is never mutated.
func Apply(current models.Transaction, actorID uuid.UUID, in Input, now time.Time) (*Result, error) {
	role := current.RoleOf(actorID)
	if err := Authorize(&current, role, in.Action); err != nil {
		return nil, err
	}

	next := current
	effects := Effects{NotifyRole: role.Counterparty()}

	switch in.Action {
	case enums.DealActionCounterOffer:
		if in.Amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter-offer amount must be greater than zero")
		}
		amount := in.Amount
		next.Status = enums.TransactionStatusNegotiating
		next.OfferAmount = amount
		effects.NotificationType = enums.NotificationTypeDealOffer
		effects.Event = newEvent(enums.NegotiationEventCounterOffer, actorID, &amount, counterText(role, amount, in.Text), now)

	case enums.DealActionAccept:
		final := current.OfferAmount
		next.Status = enums.TransactionStatusAccepted
		next.FinalAmount = &final
		effects.NotificationType = enums.NotificationTypeDealUpdate
		effects.Event = newEvent(enums.NegotiationEventAccepted, actorID, &final, "Offer accepted at "+formatAmount(final), now)

	case enums.DealActionReject:
		next.Status = enums.TransactionStatusCancelled
		effects.VehicleStatus = vehicleStatus(enums.VehicleStatusLive)
		effects.NotificationType = enums.NotificationTypeDealUpdate
		effects.Event = newEvent(enums.NegotiationEventRejected, actorID, nil, withNote("Offer rejected", in.Text), now)

	case enums.DealActionConfirmPayment:
		ref := strings.TrimSpace(in.PaymentReference)
		if ref == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
		}
		paidAt := now
		next.Status = enums.TransactionStatusInEscrow
		next.EscrowStatus = enums.EscrowStatusPaid
		next.PaymentReference = &ref
		next.PaymentConfirmedAt = &paidAt
		effects.NotificationType = enums.NotificationTypeDealPayment
		effects.Event = newEvent(enums.NegotiationEventPaymentConfirmed, actorID, current.FinalAmount, "Payment received in escrow", now)

	case enums.DealActionReleaseFunds:
		releasedAt := now
		next.Status = enums.TransactionStatusCompleted
		next.EscrowStatus = enums.EscrowStatusReleased
		next.FundsReleasedAt = &releasedAt
		effects.VehicleStatus = vehicleStatus(enums.VehicleStatusSold)
		effects.NotificationType = enums.NotificationTypeDealPayment
		effects.Event = newEvent(enums.NegotiationEventFundsReleased, actorID, current.FinalAmount, "Escrow funds released to seller", now)

	case enums.DealActionMarkInTransit:
		next.TransportStatus = enums.TransportStatusInTransit
		effects.NotificationType = enums.NotificationTypeDealLogistics
		effects.Event = newEvent(enums.NegotiationEventTransportUpdated, actorID, nil, withNote("Vehicle dispatched", in.Text), now)

	case enums.DealActionConfirmDelivery:
		deliveredAt := now
		next.TransportStatus = enums.TransportStatusDelivered
		next.DeliveredAt = &deliveredAt
		effects.NotificationType = enums.NotificationTypeDealLogistics
		effects.Event = newEvent(enums.NegotiationEventTransportUpdated, actorID, nil, withNote("Vehicle delivered", in.Text), now)

	case enums.DealActionSubmitRating:
		if in.Rating < MinRating || in.Rating > MaxRating {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "rating must be between %d and %d", MinRating, MaxRating)
		}
		rating := &types.DealRating{Score: in.Rating, RaterID: actorID, CreatedAt: now}
		if review := strings.TrimSpace(in.Review); review != "" {
			if len(review) > maxReviewLength {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "review must be at most %d characters", maxReviewLength)
			}
			rating.Review = &review
		}
		if role == enums.DealRoleSeller {
			next.SellerRating = rating
		} else {
			next.BuyerRating = rating
		}
		effects.Rating = &RatingEffect{
			RaterRole:    role,
			RateeID:      current.PartyID(role.Counterparty()),
			Score:        in.Rating,
			FirstForDeal: current.SellerRating == nil && current.BuyerRating == nil,
		}
		effects.VehicleStatus = vehicleStatus(enums.VehicleStatusSold)
		effects.NotificationType = enums.NotificationTypeDealRating
		effects.Event = newEvent(enums.NegotiationEventRatingSubmitted, actorID, nil, fmt.Sprintf("Rated %d/5", in.Rating), now)

	case enums.DealActionArchive:
		archivedAt := now
		next.DealArchived = true
		next.ArchivedAt = &archivedAt
		effects.NotificationType = enums.NotificationTypeDealUpdate
		effects.Event = newEvent(enums.NegotiationEventNote, actorID, nil, "Deal archived", now)

	case enums.DealActionRestore:
		next.DealArchived = false
		next.ArchivedAt = nil
		effects.NotificationType = enums.NotificationTypeDealUpdate
		effects.Event = newEvent(enums.NegotiationEventNote, actorID, nil, "Deal restored", now)

	case enums.DealActionSendMessage:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
		}
		if len(text) > maxMessageLength {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message must be at most %d characters", maxMessageLength)
		}
		effects.NotificationType = enums.NotificationTypeDealMessage
		effects.Event = newEvent(enums.NegotiationEventNote, actorID, nil, text, now)
	}

	next.Messages = current.Messages.Append(effects.Event)
	next.UpdatedAt = now

	if err := checkInvariants(&current, &next); err != nil {
		return nil, err
	}

	return &Result{
		Transaction: next,
		From:        current.Status,
		ActorRole:   role,
		Effects:     effects,
	}, nil
}

// checkInvariants guards properties every transition must preserve.
func checkInvariants(prev, next *models.Transaction) error {
	if prev.FinalAmount != nil && (next.FinalAmount == nil || *next.FinalAmount != *prev.FinalAmount) {
		return pkgerrors.New(pkgerrors.CodeInternal, "final amount is immutable once set")
	}
	if !next.Messages.HasPrefix(prev.Messages) {
		return pkgerrors.New(pkgerrors.CodeInternal, "deal history is append-only")
	}
	if next.DealArchived && !next.Delivered() {
		return pkgerrors.New(pkgerrors.CodeInternal, "only delivered deals can be archived")
	}
	if prev.SellerRating != nil && next.SellerRating != prev.SellerRating {
		return pkgerrors.New(pkgerrors.CodeInternal, "seller rating cannot be overwritten")
	}
	if prev.BuyerRating != nil && next.BuyerRating != prev.BuyerRating {
		return pkgerrors.New(pkgerrors.CodeInternal, "buyer rating cannot be overwritten")
	}
	return nil
}

// DesiredVehicleStatus is the vehicle status implied by the vehicle's latest deal.
func DesiredVehicleStatus(status enums.TransactionStatus) enums.VehicleStatus {
	switch status {
	case enums.TransactionStatusCompleted:
		return enums.VehicleStatusSold
	case enums.TransactionStatusCancelled:
		return enums.VehicleStatusLive
	default:
		return enums.VehicleStatusInTransaction
	}
}

func newEvent(kind enums.NegotiationEventType, sender uuid.UUID, amount *int64, text string, now time.Time) types.DealMessage {
	var amt *int64
	if amount != nil {
		v := *amount
		amt = &v
	}
	return types.DealMessage{
		ID:        uuid.New(),
		Type:      kind,
		SenderID:  sender,
		Amount:    amt,
		Text:      text,
		CreatedAt: now,
	}
}

func vehicleStatus(s enums.VehicleStatus) *enums.VehicleStatus {
	return &s
}

func containsRole(roles []enums.DealRole, role enums.DealRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
