package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

// DealMessage is one structured entry in a deal's negotiation history.
type DealMessage struct {
	ID        uuid.UUID                  `json:"id"`
	Type      enums.NegotiationEventType `json:"type"`
	SenderID  uuid.UUID                  `json:"sender_id"`
	Amount    *int64                     `json:"amount,omitempty"`
	Text      string                     `json:"text"`
	CreatedAt time.Time                  `json:"created_at"`
}

// DealMessages is persisted as a JSONB array and only ever appended to.
type DealMessages []DealMessage

// Append returns a new slice with msg appended, leaving the receiver untouched.
func (m DealMessages) Append(msg DealMessage) DealMessages {
	out := make(DealMessages, len(m), len(m)+1)
	copy(out, m)
	return append(out, msg)
}

// HasPrefix reports whether prior is an unmodified prefix of m.
func (m DealMessages) HasPrefix(prior DealMessages) bool {
	if len(prior) > len(m) {
		return false
	}
	for i := range prior {
		if !prior[i].equal(m[i]) {
			return false
		}
	}
	return true
}

// Last returns the most recent message of type t.
func (m DealMessages) Last(t enums.NegotiationEventType) (DealMessage, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Type == t {
			return m[i], true
		}
	}
	return DealMessage{}, false
}

func (d DealMessage) equal(other DealMessage) bool {
	if d.ID != other.ID || d.Type != other.Type || d.SenderID != other.SenderID || d.Text != other.Text {
		return false
	}
	if !d.CreatedAt.Equal(other.CreatedAt) {
		return false
	}
	switch {
	case d.Amount == nil && other.Amount == nil:
		return true
	case d.Amount == nil || other.Amount == nil:
		return false
	default:
		return *d.Amount == *other.Amount
	}
}
