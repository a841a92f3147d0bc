package models

import (
	"time"

	"github.com/google/uuid"
)

// Dealer is a business on the marketplace. Email links it to the identity provider.
type Dealer struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string    `gorm:"column:email;not null;uniqueIndex"`
	BusinessName      string    `gorm:"column:business_name;not null"`
	ContactName       *string   `gorm:"column:contact_name"`
	Phone             *string   `gorm:"column:phone"`
	City              *string   `gorm:"column:city"`
	Rating            float64   `gorm:"column:rating;not null;default:0"`
	RatingsCount      int       `gorm:"column:ratings_count;not null;default:0"`
	CompletedDeals    int       `gorm:"column:completed_deals;not null;default:0"`
	BankAccountName   *string   `gorm:"column:bank_account_name"`
	BankAccountNumber *string   `gorm:"column:bank_account_number"`
	BankIFSC          *string   `gorm:"column:bank_ifsc"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
