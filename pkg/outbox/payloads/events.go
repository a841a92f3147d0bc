package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

// DealOfferCreatedEvent is emitted when a buyer opens a deal on a live vehicle.
type DealOfferCreatedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	OfferAmount   int64     `json:"offer_amount"`
	ListedPrice   int64     `json:"listed_price"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DealStateChangedEvent is emitted for every committed deal room action.
type DealStateChangedEvent struct {
	TransactionID   uuid.UUID               `json:"transaction_id"`
	VehicleID       uuid.UUID               `json:"vehicle_id"`
	Action          enums.DealAction        `json:"action"`
	ActorID         uuid.UUID               `json:"actor_id"`
	FromStatus      enums.TransactionStatus `json:"from_status"`
	ToStatus        enums.TransactionStatus `json:"to_status"`
	OfferAmount     int64                   `json:"offer_amount"`
	FinalAmount     *int64                  `json:"final_amount,omitempty"`
	EscrowStatus    enums.EscrowStatus      `json:"escrow_status"`
	TransportStatus enums.TransportStatus   `json:"transport_status"`
	Archived        bool                    `json:"archived"`
	Version         int64                   `json:"version"`
	OccurredAt      time.Time               `json:"occurred_at"`
}

// DealRatedEvent is emitted when a party rates the other after delivery.
type DealRatedEvent struct {
	TransactionID uuid.UUID      `json:"transaction_id"`
	RaterID       uuid.UUID      `json:"rater_id"`
	RateeID       uuid.UUID      `json:"ratee_id"`
	RaterRole     enums.DealRole `json:"rater_role"`
	Score         int            `json:"score"`
	RateeRating   float64        `json:"ratee_rating"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// VehicleStatusReconciledEvent records a repaired vehicle status.
type VehicleStatusReconciledEvent struct {
	VehicleID     uuid.UUID           `json:"vehicle_id"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	From          enums.VehicleStatus `json:"from"`
	To            enums.VehicleStatus `json:"to"`
	OccurredAt    time.Time           `json:"occurred_at"`
}
