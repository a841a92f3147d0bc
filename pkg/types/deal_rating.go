package types

import (
	"time"

	"github.com/google/uuid"
)

// DealRating is the score one party leaves for the other after delivery.
type DealRating struct {
	Score     int       `json:"rating"`
	Review    *string   `json:"review,omitempty"`
	RaterID   uuid.UUID `json:"rater_id"`
	CreatedAt time.Time `json:"created_at"`
}
