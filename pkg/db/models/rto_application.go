package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

// RTOApplication tracks ownership-transfer paperwork for a deal.
type RTOApplication struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	VehicleID     uuid.UUID       `gorm:"column:vehicle_id;type:uuid;not null"`
	Status        enums.RTOStatus `gorm:"column:status;type:rto_status;not null;default:'not_started'"`
	Notes         *string         `gorm:"column:notes"`
	SubmittedAt   *time.Time      `gorm:"column:submitted_at"`
	CompletedAt   *time.Time      `gorm:"column:completed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name; gorm would otherwise derive r_t_o_applications.
func (RTOApplication) TableName() string {
	return "rto_applications"
}
