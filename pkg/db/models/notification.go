package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a recipient email.
type Notification struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientEmail string                 `gorm:"column:recipient_email;not null"`
	Type           enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title          string                 `gorm:"column:title;type:text;not null"`
	Message        string                 `gorm:"column:message;type:text;not null"`
	Link           *string                `gorm:"column:link;type:text"`
	TransactionID  *uuid.UUID             `gorm:"column:transaction_id;type:uuid"`
	ReadAt         *time.Time             `gorm:"column:read_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
