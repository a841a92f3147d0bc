package transactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/dealerhub-backend/pkg/db"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/pagination"
)

const openVehicleConstraint = "transactions_open_vehicle_key"

// Repository persists deals. Update is conditional on the stored version.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Update(ctx context.Context, next *models.Transaction, expectedVersion int64) error
	ListForDealer(ctx context.Context, params ListParams) ([]models.Transaction, error)
	DriftedVehicles(ctx context.Context, after uuid.UUID, limit int) ([]VehicleDeal, error)
}

// ListParams filters the deals visible to one dealer.
type ListParams struct {
	DealerID uuid.UUID
	Archived bool
	Status   *enums.TransactionStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// VehicleDeal pairs a vehicle's stored status with the status of its latest deal.
type VehicleDeal struct {
	VehicleID         uuid.UUID               `gorm:"column:vehicle_id"`
	VehicleStatus     enums.VehicleStatus     `gorm:"column:vehicle_status"`
	TransactionID     uuid.UUID               `gorm:"column:transaction_id"`
	TransactionStatus enums.TransactionStatus `gorm:"column:transaction_status"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a transactions repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts a new deal. A second open deal on the same vehicle is a state conflict.
func (r *repository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Version == 0 {
		tx.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if db.IsUniqueViolation(err, openVehicleConstraint) || db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle already has an open deal")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the row on postgres; other dialects fall back to a plain read
// and rely on the version check in Update.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == db.DriverPostgres {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(query, id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := query.Where("id = ?", id).Take(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return &tx, nil
}

// Update writes next when the stored version still equals expectedVersion and
// bumps next.Version. Zero rows on an existing row means another writer won.
func (r *repository) Update(ctx context.Context, next *models.Transaction, expectedVersion int64) error {
	next.Version = expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(next).
		Where("version = ?", expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(next)
	if result.Error != nil {
		next.Version = expectedVersion
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update transaction")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	next.Version = expectedVersion
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", next.ID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check transaction")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "transaction was modified concurrently")
}

// ListForDealer returns deals where the dealer is buyer or seller, most recently updated first.
func (r *repository) ListForDealer(ctx context.Context, params ListParams) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("(seller_id = ? OR buyer_id = ?)", params.DealerID, params.DealerID).
		Where("deal_archived = ?", params.Archived)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		clause, args := params.Cursor.Before("updated_at")
		query = query.Where(clause, args...)
	}

	var rows []models.Transaction
	if err := query.Order("updated_at DESC, id DESC").Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return rows, nil
}

// DriftedVehicles returns vehicles whose status disagrees with the one implied
// by their latest deal, ordered by vehicle id and starting after after. Ties on
// created_at resolve to the highest deal id.
func (r *repository) DriftedVehicles(ctx context.Context, after uuid.UUID, limit int) ([]VehicleDeal, error) {
	const query = `
WITH latest AS (
  SELECT t.vehicle_id, t.id, t.status,
    ROW_NUMBER() OVER (PARTITION BY t.vehicle_id ORDER BY t.created_at DESC, t.id DESC) AS rn
  FROM transactions t
)
SELECT v.id AS vehicle_id, v.status AS vehicle_status, l.id AS transaction_id, l.status AS transaction_status
FROM vehicles v
JOIN latest l ON l.vehicle_id = v.id AND l.rn = 1
WHERE v.id > ?
  AND CAST(v.status AS TEXT) <> CASE CAST(l.status AS TEXT) WHEN ? THEN ? WHEN ? THEN ? ELSE ? END
ORDER BY v.id
LIMIT ?`

	args := []any{
		after,
		string(enums.TransactionStatusCompleted), string(DesiredVehicleStatus(enums.TransactionStatusCompleted)),
		string(enums.TransactionStatusCancelled), string(DesiredVehicleStatus(enums.TransactionStatusCancelled)),
		string(DesiredVehicleStatus(enums.TransactionStatusOfferMade)),
		limit,
	}
	var rows []VehicleDeal
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load drifted vehicles")
	}
	return rows, nil
}
