package enums

import "fmt"

// EscrowStatus tracks held funds for a deal.
type EscrowStatus string

const (
	EscrowStatusUnset    EscrowStatus = "unset"
	EscrowStatusPaid     EscrowStatus = "paid"
	EscrowStatusReleased EscrowStatus = "released"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusUnset,
	EscrowStatusPaid,
	EscrowStatusReleased,
}

// IsValid reports whether the value is a known EscrowStatus.
func (e EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEscrowStatus converts raw input into an EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}
