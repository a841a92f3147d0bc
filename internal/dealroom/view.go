package dealroom

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
	"github.com/angelmondragon/dealerhub-backend/pkg/types"
)

// UnknownDealerName labels a party whose dealer record no longer resolves.
const UnknownDealerName = "Unknown Dealer"

// View is everything the deal room page renders for one party.
type View struct {
	Transaction      TransactionView    `json:"transaction"`
	Vehicle          VehicleView        `json:"vehicle"`
	Seller           PartyView          `json:"seller"`
	Buyer            PartyView          `json:"buyer"`
	RTO              *RTOView           `json:"rto_application,omitempty"`
	Role             enums.DealRole     `json:"role"`
	IsSellerView     bool               `json:"is_seller_view"`
	IsBuyerView      bool               `json:"is_buyer_view"`
	LegalActions     []enums.DealAction `json:"legal_actions"`
	Negotiation      *NegotiationPanel  `json:"negotiation,omitempty"`
	ShowRatingPrompt bool               `json:"show_rating_prompt"`
	// ReloadRequired marks a view built from the committed deal alone because
	// the full room could not be loaded. The write itself succeeded.
	ReloadRequired bool `json:"reload_required,omitempty"`
}

type TransactionView struct {
	ID                 uuid.UUID               `json:"id"`
	Status             enums.TransactionStatus `json:"status"`
	DisplayStatus      string                  `json:"display_status"`
	OfferAmount        int64                   `json:"offer_amount"`
	OfferAmountLakhs   string                  `json:"offer_amount_lakhs"`
	FinalAmount        *int64                  `json:"final_amount,omitempty"`
	EscrowStatus       enums.EscrowStatus      `json:"escrow_status"`
	TransportStatus    enums.TransportStatus   `json:"transport_status"`
	PaymentReference   *string                 `json:"payment_reference,omitempty"`
	PaymentConfirmedAt *time.Time              `json:"payment_confirmed_at,omitempty"`
	FundsReleasedAt    *time.Time              `json:"funds_released_at,omitempty"`
	DeliveredAt        *time.Time              `json:"delivered_at,omitempty"`
	Messages           types.DealMessages      `json:"messages"`
	SellerRating       *types.DealRating       `json:"seller_rating,omitempty"`
	BuyerRating        *types.DealRating       `json:"buyer_rating,omitempty"`
	Archived           bool                    `json:"deal_archived"`
	ArchivedAt         *time.Time              `json:"archived_at,omitempty"`
	Version            int64                   `json:"version"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

type VehicleView struct {
	ID         uuid.UUID           `json:"id"`
	Make       string              `json:"make"`
	Model      string              `json:"model"`
	Variant    *string             `json:"variant,omitempty"`
	Year       int                 `json:"year"`
	MileageKM  int                 `json:"mileage_km"`
	City       *string             `json:"city,omitempty"`
	Price      int64               `json:"price"`
	PriceLakhs string              `json:"price_lakhs"`
	Status     enums.VehicleStatus `json:"status"`
}

// PartyView is a dealer as shown to the other side of the deal.
type PartyView struct {
	ID             uuid.UUID `json:"id"`
	BusinessName   string    `json:"business_name"`
	ContactName    *string   `json:"contact_name,omitempty"`
	City           *string   `json:"city,omitempty"`
	Rating         float64   `json:"rating"`
	RatingsCount   int       `json:"ratings_count"`
	CompletedDeals int       `json:"completed_deals"`
	Unknown        bool      `json:"unknown"`
}

type RTOView struct {
	ID          uuid.UUID       `json:"id"`
	Status      enums.RTOStatus `json:"status"`
	Notes       *string         `json:"notes,omitempty"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NegotiationPanel compares the live offer against the listing and the market.
type NegotiationPanel struct {
	ListedPrice      int64                  `json:"listed_price"`
	CurrentOffer     int64                  `json:"current_offer"`
	DeltaVsListedPct decimal.Decimal        `json:"delta_vs_listed_pct"`
	LastCounterBy    *uuid.UUID             `json:"last_counter_by,omitempty"`
	Market           *marketinsight.Insight `json:"market,omitempty"`
}

// DealSummary is one row of the deal list.
type DealSummary struct {
	ID              uuid.UUID               `json:"id"`
	VehicleID       uuid.UUID               `json:"vehicle_id"`
	Role            enums.DealRole          `json:"role"`
	Status          enums.TransactionStatus `json:"status"`
	DisplayStatus   string                  `json:"display_status"`
	OfferAmount     int64                   `json:"offer_amount"`
	FinalAmount     *int64                  `json:"final_amount,omitempty"`
	TransportStatus enums.TransportStatus   `json:"transport_status"`
	Archived        bool                    `json:"deal_archived"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// DisplayStatus is the user-facing label. An accepted deal awaiting payment
// shows as payment_pending.
func DisplayStatus(t *models.Transaction) string {
	if t.Status == enums.TransactionStatusAccepted && t.EscrowStatus == enums.EscrowStatusUnset {
		return enums.TransactionDisplayPaymentPending
	}
	return string(t.Status)
}

func newTransactionView(t *models.Transaction) TransactionView {
	msgs := t.Messages
	if msgs == nil {
		msgs = types.DealMessages{}
	}
	return TransactionView{
		ID:                 t.ID,
		Status:             t.Status,
		DisplayStatus:      DisplayStatus(t),
		OfferAmount:        t.OfferAmount,
		OfferAmountLakhs:   money.RupeesToLakhs(t.OfferAmount),
		FinalAmount:        t.FinalAmount,
		EscrowStatus:       t.EscrowStatus,
		TransportStatus:    t.TransportStatus,
		PaymentReference:   t.PaymentReference,
		PaymentConfirmedAt: t.PaymentConfirmedAt,
		FundsReleasedAt:    t.FundsReleasedAt,
		DeliveredAt:        t.DeliveredAt,
		Messages:           msgs,
		SellerRating:       t.SellerRating,
		BuyerRating:        t.BuyerRating,
		Archived:           t.DealArchived,
		ArchivedAt:         t.ArchivedAt,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func newVehicleView(v *models.Vehicle) VehicleView {
	return VehicleView{
		ID:         v.ID,
		Make:       v.Make,
		Model:      v.Model,
		Variant:    v.Variant,
		Year:       v.Year,
		MileageKM:  v.MileageKM,
		City:       v.City,
		Price:      v.Price,
		PriceLakhs: money.RupeesToLakhs(v.Price),
		Status:     v.Status,
	}
}

func newPartyView(id uuid.UUID, dealers map[uuid.UUID]models.Dealer) PartyView {
	d, ok := dealers[id]
	if !ok {
		return PartyView{ID: id, BusinessName: UnknownDealerName, Unknown: true}
	}
	return PartyView{
		ID:             d.ID,
		BusinessName:   d.BusinessName,
		ContactName:    d.ContactName,
		City:           d.City,
		Rating:         d.Rating,
		RatingsCount:   d.RatingsCount,
		CompletedDeals: d.CompletedDeals,
	}
}

func newRTOView(app *models.RTOApplication) *RTOView {
	if app == nil {
		return nil
	}
	return &RTOView{
		ID:          app.ID,
		Status:      app.Status,
		Notes:       app.Notes,
		SubmittedAt: app.SubmittedAt,
		CompletedAt: app.CompletedAt,
		UpdatedAt:   app.UpdatedAt,
	}
}

func newDealSummary(t *models.Transaction, dealerID uuid.UUID) DealSummary {
	return DealSummary{
		ID:              t.ID,
		VehicleID:       t.VehicleID,
		Role:            t.RoleOf(dealerID),
		Status:          t.Status,
		DisplayStatus:   DisplayStatus(t),
		OfferAmount:     t.OfferAmount,
		FinalAmount:     t.FinalAmount,
		TransportStatus: t.TransportStatus,
		Archived:        t.DealArchived,
		UpdatedAt:       t.UpdatedAt,
	}
}

// committedOnlyView is the room as far as the committed deal alone can show it.
func committedOnlyView(t *models.Transaction, role enums.DealRole) *View {
	return &View{
		Transaction:    newTransactionView(t),
		Vehicle:        VehicleView{ID: t.VehicleID},
		Seller:         PartyView{ID: t.SellerID},
		Buyer:          PartyView{ID: t.PartyID(enums.DealRoleBuyer)},
		Role:           role,
		IsSellerView:   role == enums.DealRoleSeller,
		IsBuyerView:    role == enums.DealRoleBuyer,
		LegalActions:   transactions.LegalActions(t, role),
		ReloadRequired: true,
	}
}
