package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeSystemAnnouncement NotificationType = "system_announcement"
	NotificationTypeDealOffer          NotificationType = "deal_offer"
	NotificationTypeDealUpdate         NotificationType = "deal_update"
	NotificationTypeDealPayment        NotificationType = "deal_payment"
	NotificationTypeDealLogistics      NotificationType = "deal_logistics"
	NotificationTypeDealMessage        NotificationType = "deal_message"
	NotificationTypeDealRating         NotificationType = "deal_rating"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSystemAnnouncement,
	NotificationTypeDealOffer,
	NotificationTypeDealUpdate,
	NotificationTypeDealPayment,
	NotificationTypeDealLogistics,
	NotificationTypeDealMessage,
	NotificationTypeDealRating,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
