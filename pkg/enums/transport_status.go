package enums

import "fmt"

// TransportStatus tracks vehicle logistics after payment.
type TransportStatus string

const (
	TransportStatusUnset     TransportStatus = "unset"
	TransportStatusInTransit TransportStatus = "in_transit"
	TransportStatusDelivered TransportStatus = "delivered"
)

var validTransportStatuses = []TransportStatus{
	TransportStatusUnset,
	TransportStatusInTransit,
	TransportStatusDelivered,
}

// IsValid reports whether the value is a known TransportStatus.
func (t TransportStatus) IsValid() bool {
	for _, candidate := range validTransportStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransportStatus converts raw input into a TransportStatus.
func ParseTransportStatus(value string) (TransportStatus, error) {
	for _, candidate := range validTransportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transport status %q", value)
}
