// Package marketinsight aggregates past sale prices for comparable vehicles.
package marketinsight

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

// Comparable identifies the vehicles a price is compared against.
type Comparable struct {
	Make  string
	Model string
	Year  *int
}

// SaleStats summarises completed deals for a Comparable. Prices are rupees.
type SaleStats struct {
	Count   int64   `gorm:"column:sold_count"`
	Average float64 `gorm:"column:avg_price"`
	Min     int64   `gorm:"column:min_price"`
	Max     int64   `gorm:"column:max_price"`
}

// Repository runs read-only aggregate queries.
type Repository interface {
	SaleStats(ctx context.Context, c Comparable) (SaleStats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a market insight repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaleStats(ctx context.Context, c Comparable) (SaleStats, error) {
	query := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select(`COUNT(*) AS sold_count,
COALESCE(AVG(t.final_amount), 0) AS avg_price,
COALESCE(MIN(t.final_amount), 0) AS min_price,
COALESCE(MAX(t.final_amount), 0) AS max_price`).
		Joins("JOIN vehicles AS v ON v.id = t.vehicle_id").
		Where("t.status = ? AND t.final_amount IS NOT NULL", enums.TransactionStatusCompleted).
		Where("LOWER(v.make) = ? AND LOWER(v.model) = ?", strings.ToLower(strings.TrimSpace(c.Make)), strings.ToLower(strings.TrimSpace(c.Model)))
	if c.Year != nil {
		query = query.Where("v.year = ?", *c.Year)
	}

	var stats SaleStats
	if err := query.Scan(&stats).Error; err != nil {
		return SaleStats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate sale prices")
	}
	return stats, nil
}
