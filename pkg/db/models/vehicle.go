package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

// Vehicle is a dealer listing. Price is the asking price in whole rupees.
type Vehicle struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DealerID           uuid.UUID           `gorm:"column:dealer_id;type:uuid;not null"`
	Make               string              `gorm:"column:make;not null"`
	Model              string              `gorm:"column:model;not null"`
	Variant            *string             `gorm:"column:variant"`
	Year               int                 `gorm:"column:year;not null"`
	RegistrationNumber *string             `gorm:"column:registration_number"`
	MileageKM          int                 `gorm:"column:mileage_km;not null;default:0"`
	FuelType           *string             `gorm:"column:fuel_type"`
	City               *string             `gorm:"column:city"`
	Price              int64               `gorm:"column:price;not null"`
	Status             enums.VehicleStatus `gorm:"column:status;type:vehicle_status;not null;default:'live'"`
	SoldAt             *time.Time          `gorm:"column:sold_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
