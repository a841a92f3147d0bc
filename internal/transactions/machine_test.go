package transactions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
)

var clock = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func liveVehicle(seller uuid.UUID) models.Vehicle {
	return models.Vehicle{
		ID:       uuid.New(),
		DealerID: seller,
		Make:     "Honda",
		Model:    "City",
		Year:     2019,
		Price:    1_000_000,
		Status:   enums.VehicleStatusLive,
	}
}

func mustApply(t *testing.T, current *models.Transaction, actor uuid.UUID, in Input) *Result {
	t.Helper()
	res, err := Apply(*current, actor, in, clock)
	require.NoError(t, err, "action %s", in.Action)
	return res
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, pkgerrors.As(err).Code(), err.Error())
}

func TestFullDealLifecycle(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	vehicle := liveVehicle(seller)

	tx, err := NewOffer(vehicle, buyer, 900_000, clock)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusOfferMade, tx.Status)
	require.Len(t, tx.Messages, 1)
	assert.Equal(t, enums.NegotiationEventOfferMade, tx.Messages[0].Type)

	counter, err := money.LakhsToRupees("9.5")
	require.NoError(t, err)
	res := mustApply(t, tx, seller, Input{Action: enums.DealActionCounterOffer, Amount: counter})
	assert.Equal(t, enums.TransactionStatusNegotiating, res.Transaction.Status)
	assert.Equal(t, int64(950_000), res.Transaction.OfferAmount)
	assert.Equal(t, enums.DealRoleBuyer, res.Effects.NotifyRole)
	assert.Equal(t, enums.NotificationTypeDealOffer, res.Effects.NotificationType)
	tx = &res.Transaction

	res = mustApply(t, tx, seller, Input{Action: enums.DealActionAccept})
	require.NotNil(t, res.Transaction.FinalAmount)
	assert.Equal(t, int64(950_000), *res.Transaction.FinalAmount)
	assert.Equal(t, enums.TransactionStatusAccepted, res.Transaction.Status)
	tx = &res.Transaction

	res = mustApply(t, tx, buyer, Input{Action: enums.DealActionConfirmPayment, PaymentReference: "pay_123"})
	assert.Equal(t, enums.TransactionStatusInEscrow, res.Transaction.Status)
	assert.Equal(t, enums.EscrowStatusPaid, res.Transaction.EscrowStatus)
	require.NotNil(t, res.Transaction.PaymentConfirmedAt)
	assert.Equal(t, enums.DealRoleSeller, res.Effects.NotifyRole)
	tx = &res.Transaction

	res = mustApply(t, tx, seller, Input{Action: enums.DealActionReleaseFunds})
	assert.Equal(t, enums.TransactionStatusCompleted, res.Transaction.Status)
	assert.Equal(t, enums.EscrowStatusReleased, res.Transaction.EscrowStatus)
	require.NotNil(t, res.Effects.VehicleStatus)
	assert.Equal(t, enums.VehicleStatusSold, *res.Effects.VehicleStatus)
	tx = &res.Transaction

	_, err = Apply(*tx, seller, Input{Action: enums.DealActionSubmitRating, Rating: 5}, clock)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	tx = &mustApply(t, tx, seller, Input{Action: enums.DealActionMarkInTransit}).Transaction
	tx = &mustApply(t, tx, buyer, Input{Action: enums.DealActionConfirmDelivery}).Transaction
	assert.True(t, tx.Delivered())

	res = mustApply(t, tx, buyer, Input{Action: enums.DealActionSubmitRating, Rating: 4, Review: "smooth deal"})
	require.NotNil(t, res.Effects.Rating)
	assert.True(t, res.Effects.Rating.FirstForDeal)
	assert.Equal(t, seller, res.Effects.Rating.RateeID)
	tx = &res.Transaction

	_, err = Apply(*tx, buyer, Input{Action: enums.DealActionSubmitRating, Rating: 3}, clock)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	res = mustApply(t, tx, seller, Input{Action: enums.DealActionSubmitRating, Rating: 5})
	assert.False(t, res.Effects.Rating.FirstForDeal)
	assert.Equal(t, buyer, res.Effects.Rating.RateeID)
	tx = &res.Transaction

	res = mustApply(t, tx, buyer, Input{Action: enums.DealActionArchive})
	assert.True(t, res.Transaction.DealArchived)
	assert.Equal(t, enums.TransactionStatusCompleted, res.Transaction.Status)
	tx = &res.Transaction

	res = mustApply(t, tx, seller, Input{Action: enums.DealActionRestore})
	assert.False(t, res.Transaction.DealArchived)
	assert.Nil(t, res.Transaction.ArchivedAt)
	assert.Equal(t, int64(950_000), *res.Transaction.FinalAmount)
	assert.Len(t, res.Transaction.Messages, 11)
}

func TestNewOfferGuards(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	vehicle := liveVehicle(seller)

	_, err := NewOffer(vehicle, seller, 900_000, clock)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = NewOffer(vehicle, buyer, 0, clock)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = NewOffer(vehicle, uuid.Nil, 900_000, clock)
	requireCode(t, err, pkgerrors.CodeForbidden)

	vehicle.Status = enums.VehicleStatusInTransaction
	_, err = NewOffer(vehicle, buyer, 900_000, clock)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRoleGating(t *testing.T) {
	seller, buyer, stranger := uuid.New(), uuid.New(), uuid.New()
	tx, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)

	_, err = Apply(*tx, buyer, Input{Action: enums.DealActionCounterOffer, Amount: 950_000}, clock)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = Apply(*tx, buyer, Input{Action: enums.DealActionAccept}, clock)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = Apply(*tx, stranger, Input{Action: enums.DealActionSendMessage, Text: "hi"}, clock)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = Apply(*tx, buyer, Input{Action: enums.DealActionConfirmPayment, PaymentReference: "ref"}, clock)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	negotiating := mustApply(t, tx, seller, Input{Action: enums.DealActionCounterOffer, Amount: 980_000}).Transaction
	res := mustApply(t, &negotiating, buyer, Input{Action: enums.DealActionCounterOffer, Amount: 960_000})
	assert.Equal(t, int64(960_000), res.Transaction.OfferAmount)
	assert.Equal(t, enums.DealRoleSeller, res.Effects.NotifyRole)
}

func TestRejectResetsVehicle(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	tx, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)

	res := mustApply(t, tx, seller, Input{Action: enums.DealActionReject, Text: "too low"})
	assert.Equal(t, enums.TransactionStatusCancelled, res.Transaction.Status)
	require.NotNil(t, res.Effects.VehicleStatus)
	assert.Equal(t, enums.VehicleStatusLive, *res.Effects.VehicleStatus)
	assert.Contains(t, res.Transaction.Messages[1].Text, "too low")

	_, err = Apply(res.Transaction, buyer, Input{Action: enums.DealActionSendMessage, Text: "why?"}, clock)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, LegalActions(&res.Transaction, enums.DealRoleBuyer))
}

func TestInputValidation(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	tx, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)

	_, err = Apply(*tx, seller, Input{Action: enums.DealActionCounterOffer, Amount: 0}, clock)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = Apply(*tx, seller, Input{Action: enums.DealActionSendMessage, Text: "   "}, clock)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = Apply(*tx, seller, Input{Action: enums.DealAction("teleport")}, clock)
	requireCode(t, err, pkgerrors.CodeValidation)

	accepted := mustApply(t, tx, seller, Input{Action: enums.DealActionAccept}).Transaction
	_, err = Apply(accepted, buyer, Input{Action: enums.DealActionConfirmPayment}, clock)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	tx, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)
	before := *tx

	_ = mustApply(t, tx, seller, Input{Action: enums.DealActionCounterOffer, Amount: 950_000})
	assert.Equal(t, before.Status, tx.Status)
	assert.Equal(t, before.OfferAmount, tx.OfferAmount)
	assert.Len(t, tx.Messages, 1)
}

func TestLegalActions(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	tx, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)

	assert.Equal(t, []enums.DealAction{
		enums.DealActionCounterOffer,
		enums.DealActionAccept,
		enums.DealActionReject,
		enums.DealActionSendMessage,
	}, LegalActions(tx, enums.DealRoleSeller))
	assert.Equal(t, []enums.DealAction{enums.DealActionSendMessage}, LegalActions(tx, enums.DealRoleBuyer))
	assert.Nil(t, LegalActions(tx, enums.DealRoleNone))
}

func TestCheckInvariantsRejectsHistoryRewrite(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	prev, err := NewOffer(liveVehicle(seller), buyer, 900_000, clock)
	require.NoError(t, err)

	next := *prev
	next.Messages = nil
	requireCode(t, checkInvariants(prev, &next), pkgerrors.CodeInternal)

	final := int64(900_000)
	prev.FinalAmount = &final
	next = *prev
	other := int64(1)
	next.FinalAmount = &other
	requireCode(t, checkInvariants(prev, &next), pkgerrors.CodeInternal)
}

func TestDesiredVehicleStatus(t *testing.T) {
	assert.Equal(t, enums.VehicleStatusInTransaction, DesiredVehicleStatus(enums.TransactionStatusInEscrow))
	assert.Equal(t, enums.VehicleStatusSold, DesiredVehicleStatus(enums.TransactionStatusCompleted))
	assert.Equal(t, enums.VehicleStatusLive, DesiredVehicleStatus(enums.TransactionStatusCancelled))
}
