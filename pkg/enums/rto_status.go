package enums

import "fmt"

// RTOStatus tracks ownership-transfer paperwork. Values are ordered.
type RTOStatus string

const (
	RTOStatusNotStarted       RTOStatus = "not_started"
	RTOStatusDocumentsPending RTOStatus = "documents_pending"
	RTOStatusSubmitted        RTOStatus = "submitted"
	RTOStatusApproved         RTOStatus = "approved"
	RTOStatusCompleted        RTOStatus = "completed"
)

var orderedRTOStatuses = []RTOStatus{
	RTOStatusNotStarted,
	RTOStatusDocumentsPending,
	RTOStatusSubmitted,
	RTOStatusApproved,
	RTOStatusCompleted,
}

// IsValid reports whether the value is a known RTOStatus.
func (r RTOStatus) IsValid() bool {
	return r.rank() >= 0
}

// Before reports whether r precedes other in the paperwork sequence.
func (r RTOStatus) Before(other RTOStatus) bool {
	return r.rank() < other.rank()
}

func (r RTOStatus) rank() int {
	for i, candidate := range orderedRTOStatuses {
		if candidate == r {
			return i
		}
	}
	return -1
}

// ParseRTOStatus converts raw input into an RTOStatus.
func ParseRTOStatus(value string) (RTOStatus, error) {
	for _, candidate := range orderedRTOStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rto status %q", value)
}
