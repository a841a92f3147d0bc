package enums

import "fmt"

// TransactionStatus tracks the lifecycle of a deal between two dealers.
type TransactionStatus string

const (
	TransactionStatusOfferMade   TransactionStatus = "offer_made"
	TransactionStatusNegotiating TransactionStatus = "negotiating"
	TransactionStatusAccepted    TransactionStatus = "accepted"
	TransactionStatusInEscrow    TransactionStatus = "in_escrow"
	TransactionStatusCompleted   TransactionStatus = "completed"
	TransactionStatusCancelled   TransactionStatus = "cancelled"
)

// TransactionDisplayPaymentPending labels an accepted deal that is waiting on the buyer's payment.
// It is never persisted.
const TransactionDisplayPaymentPending = "payment_pending"

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusOfferMade,
	TransactionStatusNegotiating,
	TransactionStatusAccepted,
	TransactionStatusInEscrow,
	TransactionStatusCompleted,
	TransactionStatusCancelled,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the deal is still being negotiated.
func (s TransactionStatus) IsOpen() bool {
	return s == TransactionStatusOfferMade || s == TransactionStatusNegotiating
}

// IsTerminal reports whether no further status transitions are possible.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusCancelled
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
