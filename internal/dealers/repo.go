// Package dealers persists dealer profiles and their reputation counters.
package dealers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

// Repository reads dealers and applies rating bookkeeping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dealer *models.Dealer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Dealer, error)
	FindByEmail(ctx context.Context, email string) (*models.Dealer, error)
	ApplyRating(ctx context.Context, dealerID uuid.UUID, score int) error
	IncrementCompletedDeals(ctx context.Context, dealerIDs ...uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a dealers repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dealer *models.Dealer) error {
	if dealer.ID == uuid.Nil {
		dealer.ID = uuid.New()
	}
	dealer.Email = strings.ToLower(strings.TrimSpace(dealer.Email))
	return r.db.WithContext(ctx).Create(dealer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&dealer).Error; err != nil {
		return nil, wrapLookup(err)
	}
	return &dealer, nil
}

// FindByIDs returns the dealers that exist; missing ids are simply absent from the map.
func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Dealer, error) {
	out := make(map[uuid.UUID]models.Dealer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Dealer
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealers")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Dealer, error) {
	var dealer models.Dealer
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", normalized).Take(&dealer).Error; err != nil {
		return nil, wrapLookup(err)
	}
	return &dealer, nil
}

// ApplyRating folds score into the running average in a single statement.
// The average uses the count before this rating.
func (r *repository) ApplyRating(ctx context.Context, dealerID uuid.UUID, score int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id = ?", dealerID).
		Updates(map[string]any{
			"rating":        gorm.Expr("(rating * ratings_count + ?) / (ratings_count + 1)", float64(score)),
			"ratings_count": gorm.Expr("ratings_count + 1"),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "apply dealer rating")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	return nil
}

// IncrementCompletedDeals bumps completed_deals for each existing dealer. Unknown ids are ignored.
func (r *repository) IncrementCompletedDeals(ctx context.Context, dealerIDs ...uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(dealerIDs))
	for _, id := range dealerIDs {
		if id != uuid.Nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id IN ?", ids).
		UpdateColumn("completed_deals", gorm.Expr("completed_deals + 1")).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment completed deals")
	}
	return nil
}

func wrapLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
}
