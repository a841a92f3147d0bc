package enums

import "fmt"

// VehicleStatus mirrors the listing state of a vehicle. Transaction status wins on disagreement.
type VehicleStatus string

const (
	VehicleStatusLive          VehicleStatus = "live"
	VehicleStatusInTransaction VehicleStatus = "in_transaction"
	VehicleStatusSold          VehicleStatus = "sold"
)

var validVehicleStatuses = []VehicleStatus{
	VehicleStatusLive,
	VehicleStatusInTransaction,
	VehicleStatusSold,
}

// String implements fmt.Stringer.
func (v VehicleStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleStatus.
func (v VehicleStatus) IsValid() bool {
	for _, candidate := range validVehicleStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleStatus converts raw input into a VehicleStatus.
func ParseVehicleStatus(value string) (VehicleStatus, error) {
	for _, candidate := range validVehicleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle status %q", value)
}
