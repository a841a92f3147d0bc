// Package rto tracks ownership-transfer paperwork attached to a deal.
package rto

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

// Repository persists one RTO application per transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RTOApplication, error)
	Create(ctx context.Context, app *models.RTOApplication) error
	Save(ctx context.Context, app *models.RTOApplication) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an RTO repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByTransactionID returns nil without error when the deal has no application yet.
func (r *repository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RTOApplication, error) {
	var app models.RTOApplication
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rto application")
	}
	return &app, nil
}

func (r *repository) Create(ctx context.Context, app *models.RTOApplication) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rto application")
	}
	return nil
}

func (r *repository) Save(ctx context.Context, app *models.RTOApplication) error {
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rto application")
	}
	return nil
}
