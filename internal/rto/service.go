package rto

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

type transactionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpdateInput advances the paperwork of one deal.
type UpdateInput struct {
	DealerID      uuid.UUID
	TransactionID uuid.UUID
	Status        enums.RTOStatus
	Notes         *string
}

// Service advances RTO applications. Status only ever moves forward.
type Service interface {
	Get(ctx context.Context, transactionID uuid.UUID) (*models.RTOApplication, error)
	Update(ctx context.Context, input UpdateInput) (*models.RTOApplication, error)
}

type service struct {
	tx           txRunner
	repo         Repository
	transactions transactionReader
	now          func() time.Time
}

// NewService wires the RTO service.
func NewService(tx txRunner, repo Repository, transactions transactionReader) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rto repository required")
	}
	if transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions repository required")
	}
	return &service{tx: tx, repo: repo, transactions: transactions, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, transactionID uuid.UUID) (*models.RTOApplication, error) {
	return s.repo.FindByTransactionID(ctx, transactionID)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.RTOApplication, error) {
	if input.DealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "a dealer profile is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid rto status %q", input.Status)
	}

	deal, err := s.transactions.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if deal.RoleOf(input.DealerID) == enums.DealRoleNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not a party to this deal")
	}
	if deal.Status != enums.TransactionStatusInEscrow && deal.Status != enums.TransactionStatusCompleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "rto paperwork starts once payment is in escrow; deal is %s", deal.Status)
	}

	now := s.now().UTC()
	var saved *models.RTOApplication
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		app, err := repo.FindByTransactionID(ctx, deal.ID)
		if err != nil {
			return err
		}
		if app == nil {
			app = &models.RTOApplication{
				TransactionID: deal.ID,
				VehicleID:     deal.VehicleID,
				Status:        enums.RTOStatusNotStarted,
				CreatedAt:     now,
			}
			advance(app, input, now)
			saved = app
			return repo.Create(ctx, app)
		}

		if !app.Status.Before(input.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "rto status cannot move from %s to %s", app.Status, input.Status)
		}
		advance(app, input, now)
		saved = app
		return repo.Save(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func advance(app *models.RTOApplication, input UpdateInput, now time.Time) {
	app.Status = input.Status
	app.UpdatedAt = now
	if input.Notes != nil {
		notes := strings.TrimSpace(*input.Notes)
		app.Notes = &notes
	}
	if app.SubmittedAt == nil && !input.Status.Before(enums.RTOStatusSubmitted) {
		stamp := now
		app.SubmittedAt = &stamp
	}
	if input.Status == enums.RTOStatusCompleted {
		stamp := now
		app.CompletedAt = &stamp
	}
}
