package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	"github.com/angelmondragon/dealerhub-backend/pkg/types"
)

// Transaction is a deal between a selling dealer and a buying dealer over one vehicle.
// Amounts are whole rupees.
type Transaction struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID          uuid.UUID               `gorm:"column:vehicle_id;type:uuid;not null"`
	SellerID           uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	BuyerID            *uuid.UUID              `gorm:"column:buyer_id;type:uuid"`
	Status             enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'offer_made'"`
	OfferAmount        int64                   `gorm:"column:offer_amount;not null"`
	FinalAmount        *int64                  `gorm:"column:final_amount"`
	EscrowStatus       enums.EscrowStatus      `gorm:"column:escrow_status;type:escrow_status;not null;default:'unset'"`
	TransportStatus    enums.TransportStatus   `gorm:"column:transport_status;type:transport_status;not null;default:'unset'"`
	PaymentReference   *string                 `gorm:"column:payment_reference"`
	PaymentConfirmedAt *time.Time              `gorm:"column:payment_confirmed_at"`
	FundsReleasedAt    *time.Time              `gorm:"column:funds_released_at"`
	DeliveredAt        *time.Time              `gorm:"column:delivered_at"`
	Messages           types.DealMessages      `gorm:"column:messages;type:jsonb;serializer:json;not null"`
	SellerRating       *types.DealRating       `gorm:"column:seller_rating;type:jsonb;serializer:json"`
	BuyerRating        *types.DealRating       `gorm:"column:buyer_rating;type:jsonb;serializer:json"`
	DealArchived       bool                    `gorm:"column:deal_archived;not null;default:false"`
	ArchivedAt         *time.Time              `gorm:"column:archived_at"`
	Version            int64                   `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// RoleOf returns the side dealerID plays in the deal.
func (t *Transaction) RoleOf(dealerID uuid.UUID) enums.DealRole {
	if t == nil || dealerID == uuid.Nil {
		return enums.DealRoleNone
	}
	if t.SellerID == dealerID {
		return enums.DealRoleSeller
	}
	if t.BuyerID != nil && *t.BuyerID == dealerID {
		return enums.DealRoleBuyer
	}
	return enums.DealRoleNone
}

// PartyID returns the dealer id holding role, or uuid.Nil when unset.
func (t *Transaction) PartyID(role enums.DealRole) uuid.UUID {
	switch role {
	case enums.DealRoleSeller:
		return t.SellerID
	case enums.DealRoleBuyer:
		if t.BuyerID != nil {
			return *t.BuyerID
		}
	}
	return uuid.Nil
}

// RatingBy returns the rating left by role.
func (t *Transaction) RatingBy(role enums.DealRole) *types.DealRating {
	switch role {
	case enums.DealRoleSeller:
		return t.SellerRating
	case enums.DealRoleBuyer:
		return t.BuyerRating
	}
	return nil
}

// Delivered reports whether the deal is paid out and the vehicle handed over.
func (t *Transaction) Delivered() bool {
	return t.Status == enums.TransactionStatusCompleted && t.TransportStatus == enums.TransportStatusDelivered
}
