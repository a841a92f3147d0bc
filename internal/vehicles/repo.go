// Package vehicles persists listings and the status the deal lifecycle drives.
package vehicles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

// Repository reads vehicles and moves them between listing states.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vehicle *models.Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.VehicleStatus, now time.Time) error
	SetStatus(ctx context.Context, id uuid.UUID, to enums.VehicleStatus, now time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a vehicles repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	if vehicle.Status == "" {
		vehicle.Status = enums.VehicleStatusLive
	}
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return &vehicle, nil
}

// TransitionStatus moves the vehicle only if it is still in from. A vehicle that
// moved on in the meantime yields CodeStateConflict.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.VehicleStatus, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ? AND status = ?", id, from).
		Updates(statusUpdates(to, now))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update vehicle status")
	}
	if result.RowsAffected == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "vehicle is no longer %s", from)
}

// SetStatus writes to unconditionally. Setting the current status again is a no-op.
func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, to enums.VehicleStatus, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ? AND status <> ?", id, to).
		Updates(statusUpdates(to, now))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update vehicle status")
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func statusUpdates(to enums.VehicleStatus, now time.Time) map[string]any {
	updates := map[string]any{"status": to, "updated_at": now}
	if to == enums.VehicleStatusSold {
		updates["sold_at"] = now
	} else {
		updates["sold_at"] = nil
	}
	return updates
}
