package enums

import "fmt"

// DealAction is a user-triggered step inside the deal room.
type DealAction string

const (
	DealActionMakeOffer       DealAction = "make_offer"
	DealActionCounterOffer    DealAction = "counter_offer"
	DealActionAccept          DealAction = "accept"
	DealActionReject          DealAction = "reject"
	DealActionConfirmPayment  DealAction = "confirm_payment"
	DealActionReleaseFunds    DealAction = "release_funds"
	DealActionMarkInTransit   DealAction = "mark_in_transit"
	DealActionConfirmDelivery DealAction = "confirm_delivery"
	DealActionSubmitRating    DealAction = "submit_rating"
	DealActionArchive         DealAction = "archive"
	DealActionRestore         DealAction = "restore"
	DealActionSendMessage     DealAction = "send_message"
)

// validDealActions lists the actions accepted on an existing deal. Offers are created separately.
var validDealActions = []DealAction{
	DealActionCounterOffer,
	DealActionAccept,
	DealActionReject,
	DealActionConfirmPayment,
	DealActionReleaseFunds,
	DealActionMarkInTransit,
	DealActionConfirmDelivery,
	DealActionSubmitRating,
	DealActionArchive,
	DealActionRestore,
	DealActionSendMessage,
}

// String implements fmt.Stringer.
func (a DealAction) String() string {
	return string(a)
}

// IsValid reports whether the action can be performed on an existing deal.
func (a DealAction) IsValid() bool {
	for _, candidate := range validDealActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// DealActions returns the actions in display order.
func DealActions() []DealAction {
	out := make([]DealAction, len(validDealActions))
	copy(out, validDealActions)
	return out
}

// ParseDealAction converts raw input into a DealAction.
func ParseDealAction(value string) (DealAction, error) {
	for _, candidate := range validDealActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal action %q", value)
}

// DealRole is the side a dealer plays in a transaction.
type DealRole string

const (
	DealRoleNone   DealRole = ""
	DealRoleSeller DealRole = "seller"
	DealRoleBuyer  DealRole = "buyer"
)

// Counterparty returns the opposite role.
func (r DealRole) Counterparty() DealRole {
	switch r {
	case DealRoleSeller:
		return DealRoleBuyer
	case DealRoleBuyer:
		return DealRoleSeller
	default:
		return DealRoleNone
	}
}
