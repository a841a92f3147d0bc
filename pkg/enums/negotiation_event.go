package enums

import "fmt"

// NegotiationEventType tags an entry in a deal's message history.
type NegotiationEventType string

const (
	NegotiationEventOfferMade        NegotiationEventType = "offer_made"
	NegotiationEventCounterOffer     NegotiationEventType = "counter_offer"
	NegotiationEventAccepted         NegotiationEventType = "accepted"
	NegotiationEventRejected         NegotiationEventType = "rejected"
	NegotiationEventPaymentConfirmed NegotiationEventType = "payment_confirmed"
	NegotiationEventFundsReleased    NegotiationEventType = "funds_released"
	NegotiationEventTransportUpdated NegotiationEventType = "transport_updated"
	NegotiationEventRatingSubmitted  NegotiationEventType = "rating_submitted"
	NegotiationEventNote             NegotiationEventType = "note"
)

var validNegotiationEventTypes = []NegotiationEventType{
	NegotiationEventOfferMade,
	NegotiationEventCounterOffer,
	NegotiationEventAccepted,
	NegotiationEventRejected,
	NegotiationEventPaymentConfirmed,
	NegotiationEventFundsReleased,
	NegotiationEventTransportUpdated,
	NegotiationEventRatingSubmitted,
	NegotiationEventNote,
}

// IsValid reports whether the value is a known NegotiationEventType.
func (n NegotiationEventType) IsValid() bool {
	for _, candidate := range validNegotiationEventTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// CarriesAmount reports whether events of this type record a price.
func (n NegotiationEventType) CarriesAmount() bool {
	switch n {
	case NegotiationEventOfferMade, NegotiationEventCounterOffer, NegotiationEventAccepted, NegotiationEventPaymentConfirmed, NegotiationEventFundsReleased:
		return true
	default:
		return false
	}
}

// ParseNegotiationEventType converts raw input into a NegotiationEventType.
func ParseNegotiationEventType(value string) (NegotiationEventType, error) {
	for _, candidate := range validNegotiationEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation event type %q", value)
}
