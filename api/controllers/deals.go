package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/dealerhub-backend/api/middleware"
	"github.com/angelmondragon/dealerhub-backend/api/responses"
	"github.com/angelmondragon/dealerhub-backend/api/validators"
	"github.com/angelmondragon/dealerhub-backend/internal/dealroom"
	"github.com/angelmondragon/dealerhub-backend/internal/rto"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
)

type dealActionRequest struct {
	Action           string `json:"action" validate:"required,max=32"`
	AmountLakhs      string `json:"amount_lakhs,omitempty" validate:"omitempty,max=16,lakhs"`
	Amount           int64  `json:"amount,omitempty" validate:"min=0"`
	Text             string `json:"text,omitempty" validate:"max=2000"`
	PaymentReference string `json:"payment_reference,omitempty" validate:"max=128"`
	Rating           int    `json:"rating,omitempty" validate:"min=0,max=5"`
	Review           string `json:"review,omitempty" validate:"max=2000"`
}

type offerRequest struct {
	AmountLakhs string `json:"amount_lakhs,omitempty" validate:"omitempty,max=16,lakhs"`
	Amount      int64  `json:"amount,omitempty" validate:"min=0"`
	Text        string `json:"text,omitempty" validate:"max=2000"`
}

type rtoUpdateRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func actorFrom(r *http.Request) dealroom.ActorContext {
	ctx := r.Context()
	return dealroom.ActorContext{
		DealerID:  middleware.DealerIDFromContext(ctx),
		Email:     middleware.EmailFromContext(ctx),
		SessionID: middleware.SessionIDFromContext(ctx),
	}
}

// ListDeals pages through the caller's deals. archived=true lists the archive.
func ListDeals(svc dealroom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("deal room service"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := dealroom.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		archived, err := validators.ParseQueryBool(r, "archived")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Archived = archived

		result, err := svc.ListDeals(r.Context(), actorFrom(r), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LoadDealRoom(svc dealroom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("deal room service"))
			return
		}
		transactionID, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.LoadDealRoom(r.Context(), actorFrom(r), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PerformDealAction applies one action and returns the refreshed deal room.
func PerformDealAction(svc dealroom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("deal room service"))
			return
		}
		transactionID, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body dealActionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseDealAction(strings.TrimSpace(body.Action))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action"))
			return
		}

		view, err := svc.PerformAction(r.Context(), actorFrom(r), transactionID, dealroom.ActionInput{
			Action:           action,
			AmountLakhs:      strings.TrimSpace(body.AmountLakhs),
			Amount:           body.Amount,
			Text:             body.Text,
			PaymentReference: strings.TrimSpace(body.PaymentReference),
			Rating:           body.Rating,
			Review:           body.Review,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// MakeOffer opens a deal on a live vehicle.
func MakeOffer(svc dealroom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("deal room service"))
			return
		}
		vehicleID, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body offerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.MakeOffer(r.Context(), actorFrom(r), vehicleID, dealroom.OfferInput{
			AmountLakhs: strings.TrimSpace(body.AmountLakhs),
			Amount:      body.Amount,
			Text:        body.Text,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, view)
	}
}

func SkipRatingPrompt(svc dealroom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("deal room service"))
			return
		}
		transactionID, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SkipRatingPrompt(r.Context(), actorFrom(r), transactionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"skipped": true})
	}
}

// UpdateRTO advances the registration transfer for a deal in escrow or completed.
func UpdateRTO(svc rto.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rto service"))
			return
		}
		transactionID, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body rtoUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		app, err := svc.Update(r.Context(), rto.UpdateInput{
			DealerID:      middleware.DealerIDFromContext(r.Context()),
			TransactionID: transactionID,
			Status:        enums.RTOStatus(strings.TrimSpace(body.Status)),
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}
