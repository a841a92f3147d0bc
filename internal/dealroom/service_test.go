package dealroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/internal/dealers"
	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	"github.com/angelmondragon/dealerhub-backend/internal/rto"
	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/internal/vehicles"
	"github.com/angelmondragon/dealerhub-backend/pkg/db"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, notice notifications.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recordingDispatcher) last() notifications.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

type memoryPromptStore struct {
	values map[string]any
	err    error
}

func (m *memoryPromptStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *memoryPromptStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memoryPromptStore) RatingPromptKey(sessionID, transactionID, role string) string {
	return sessionID + ":" + transactionID + ":" + role
}

type failingInsights struct{}

func (failingInsights) Insight(ctx context.Context, q marketinsight.Query) (*marketinsight.Insight, error) {
	return nil, errors.New("warehouse down")
}

// conflictingTransactions fails the first n versioned updates as if another writer won.
type conflictingTransactions struct {
	transactions.Repository
	remaining *int
}

func (c conflictingTransactions) WithTx(tx *gorm.DB) transactions.Repository {
	return conflictingTransactions{Repository: c.Repository.WithTx(tx), remaining: c.remaining}
}

func (c conflictingTransactions) Update(ctx context.Context, next *models.Transaction, expected int64) error {
	if *c.remaining > 0 {
		*c.remaining--
		return pkgerrors.New(pkgerrors.CodeConflict, "transaction was modified concurrently")
	}
	return c.Repository.Update(ctx, next, expected)
}

// unreadableVehicles fails reads outside a database transaction, as when the
// replica serving the room goes away right after a commit.
type unreadableVehicles struct {
	vehicles.Repository
	broken *bool
}

func (u unreadableVehicles) WithTx(tx *gorm.DB) vehicles.Repository {
	return u.Repository.WithTx(tx)
}

func (u unreadableVehicles) FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	if *u.broken {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "load vehicle")
	}
	return u.Repository.FindByID(ctx, id)
}

type fixture struct {
	conn       *gorm.DB
	svc        *service
	dispatcher *recordingDispatcher
	prompts    *memoryPromptStore
	seller     *models.Dealer
	buyer      *models.Dealer
	vehicle    *models.Vehicle
}

func (f *fixture) sellerActor() ActorContext {
	return ActorContext{DealerID: f.seller.ID, Email: f.seller.Email, SessionID: "sess-seller"}
}

func (f *fixture) buyerActor() ActorContext {
	return ActorContext{DealerID: f.buyer.ID, Email: f.buyer.Email, SessionID: "sess-buyer"}
}

func newFixture(t *testing.T, mutate func(*ServiceParams)) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	ctx := context.Background()

	dealerRepo := dealers.NewRepository(conn)
	vehicleRepo := vehicles.NewRepository(conn)
	seller := &models.Dealer{Email: "seller@apexmotors.in", BusinessName: "Apex Motors"}
	buyer := &models.Dealer{Email: "buyer@citycars.in", BusinessName: "City Cars"}
	require.NoError(t, dealerRepo.Create(ctx, seller))
	require.NoError(t, dealerRepo.Create(ctx, buyer))
	vehicle := &models.Vehicle{DealerID: seller.ID, Make: "Honda", Model: "City", Year: 2019, Price: 1_000_000}
	require.NoError(t, vehicleRepo.Create(ctx, vehicle))

	dispatcher := &recordingDispatcher{}
	prompts := &memoryPromptStore{values: map[string]any{}}
	insightSvc, err := marketinsight.NewService(marketinsight.NewRepository(conn))
	require.NoError(t, err)

	params := ServiceParams{
		Tx:           db.NewFromConn(conn),
		Transactions: transactions.NewRepository(conn),
		Vehicles:     vehicleRepo,
		Dealers:      dealerRepo,
		RTO:          rto.NewRepository(conn),
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Dispatcher:   dispatcher,
		Insights:     insightSvc,
		Prompts:      NewRatingPrompts(prompts, time.Hour),
		AppBaseURL:   "https://app.test/",
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	return &fixture{
		conn:       conn,
		svc:        impl,
		dispatcher: dispatcher,
		prompts:    prompts,
		seller:     seller,
		buyer:      buyer,
		vehicle:    vehicle,
	}
}

func (f *fixture) vehicleStatus(t *testing.T) enums.VehicleStatus {
	t.Helper()
	var v models.Vehicle
	require.NoError(t, f.conn.Where("id = ?", f.vehicle.ID).Take(&v).Error)
	return v.Status
}

func (f *fixture) dealer(t *testing.T, id uuid.UUID) models.Dealer {
	t.Helper()
	var d models.Dealer
	require.NoError(t, f.conn.Where("id = ?", id).Take(&d).Error)
	return d
}

func (f *fixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestDealRoomEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{AmountLakhs: "9"})
	require.NoError(t, err)
	dealID := view.Transaction.ID
	assert.Equal(t, enums.TransactionStatusOfferMade, view.Transaction.Status)
	assert.Equal(t, int64(900_000), view.Transaction.OfferAmount)
	assert.True(t, view.IsBuyerView)
	assert.Equal(t, enums.VehicleStatusInTransaction, f.vehicleStatus(t))
	assert.Equal(t, f.seller.Email, f.dispatcher.last().RecipientEmail)
	assert.Equal(t, "https://app.test/deals/"+dealID.String(), f.dispatcher.last().Link)
	require.NotNil(t, view.Negotiation)
	assert.Equal(t, "-10", view.Negotiation.DeltaVsListedPct.String())

	view, err = f.svc.PerformAction(ctx, f.sellerActor(), dealID, ActionInput{Action: enums.DealActionCounterOffer, AmountLakhs: "9.5"})
	require.NoError(t, err)
	assert.Equal(t, int64(950_000), view.Transaction.OfferAmount)
	assert.Equal(t, enums.NotificationTypeDealOffer, f.dispatcher.last().Type)
	assert.Equal(t, f.buyer.Email, f.dispatcher.last().RecipientEmail)

	view, err = f.svc.PerformAction(ctx, f.sellerActor(), dealID, ActionInput{Action: enums.DealActionAccept})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionDisplayPaymentPending, view.Transaction.DisplayStatus)
	assert.Equal(t, int64(950_000), *view.Transaction.FinalAmount)

	buyerView, err := f.svc.LoadDealRoom(ctx, f.buyerActor(), dealID)
	require.NoError(t, err)
	assert.Equal(t, []enums.DealAction{enums.DealActionConfirmPayment, enums.DealActionSendMessage}, buyerView.LegalActions)

	_, err = f.svc.PerformAction(ctx, f.buyerActor(), dealID, ActionInput{Action: enums.DealActionConfirmPayment, PaymentReference: "pay_42"})
	require.NoError(t, err)
	view, err = f.svc.PerformAction(ctx, f.sellerActor(), dealID, ActionInput{Action: enums.DealActionReleaseFunds})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, view.Transaction.Status)
	assert.Equal(t, enums.VehicleStatusSold, f.vehicleStatus(t))

	_, err = f.svc.PerformAction(ctx, f.sellerActor(), dealID, ActionInput{Action: enums.DealActionMarkInTransit})
	require.NoError(t, err)
	view, err = f.svc.PerformAction(ctx, f.buyerActor(), dealID, ActionInput{Action: enums.DealActionConfirmDelivery})
	require.NoError(t, err)
	assert.True(t, view.ShowRatingPrompt)

	again, err := f.svc.LoadDealRoom(ctx, f.buyerActor(), dealID)
	require.NoError(t, err)
	assert.False(t, again.ShowRatingPrompt, "prompt shows once per session")

	_, err = f.svc.PerformAction(ctx, f.buyerActor(), dealID, ActionInput{Action: enums.DealActionSubmitRating, Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.PerformAction(ctx, f.buyerActor(), dealID, ActionInput{Action: enums.DealActionSubmitRating, Rating: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.PerformAction(ctx, f.sellerActor(), dealID, ActionInput{Action: enums.DealActionSubmitRating, Rating: 5})
	require.NoError(t, err)

	seller := f.dealer(t, f.seller.ID)
	buyer := f.dealer(t, f.buyer.ID)
	assert.InDelta(t, 4.0, seller.Rating, 0.001)
	assert.Equal(t, 1, seller.RatingsCount)
	assert.Equal(t, 1, seller.CompletedDeals)
	assert.InDelta(t, 5.0, buyer.Rating, 0.001)
	assert.Equal(t, 1, buyer.CompletedDeals)

	view, err = f.svc.PerformAction(ctx, f.buyerActor(), dealID, ActionInput{Action: enums.DealActionArchive})
	require.NoError(t, err)
	assert.True(t, view.Transaction.Archived)
	assert.Equal(t, enums.TransactionStatusCompleted, view.Transaction.Status)

	list, err := f.svc.ListDeals(ctx, f.buyerActor(), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	list, err = f.svc.ListDeals(ctx, f.buyerActor(), ListParams{Archived: true})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, enums.DealRoleBuyer, list.Items[0].Role)

	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventDealOfferCreated))
	assert.Equal(t, int64(9), f.outboxCount(t, enums.EventDealStateChanged))
	assert.Equal(t, int64(2), f.outboxCount(t, enums.EventDealRated))
	assert.Len(t, f.dispatcher.notices, 10)
}

func TestPerformActionRetriesOnConflict(t *testing.T) {
	remaining := 2
	f := newFixture(t, func(p *ServiceParams) {
		p.Transactions = conflictingTransactions{Repository: p.Transactions, remaining: &remaining}
		p.MaxRetries = 3
	})
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)

	view, err = f.svc.PerformAction(ctx, f.sellerActor(), view.Transaction.ID, ActionInput{Action: enums.DealActionAccept})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusAccepted, view.Transaction.Status)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventDealStateChanged))
}

func TestPerformActionGivesUpAfterRetries(t *testing.T) {
	remaining := 10
	f := newFixture(t, func(p *ServiceParams) {
		p.Transactions = conflictingTransactions{Repository: p.Transactions, remaining: &remaining}
		p.MaxRetries = 2
	})
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	sent := len(f.dispatcher.notices)

	_, err = f.svc.PerformAction(ctx, f.sellerActor(), view.Transaction.ID, ActionInput{Action: enums.DealActionAccept})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, 7, remaining)
	assert.Len(t, f.dispatcher.notices, sent, "no notification for a failed action")
	assert.Equal(t, int64(0), f.outboxCount(t, enums.EventDealStateChanged))
}

func TestRejectReturnsVehicleToLive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 700_000})
	require.NoError(t, err)

	_, err = f.svc.MakeOffer(ctx, ActorContext{DealerID: uuid.New()}, f.vehicle.ID, OfferInput{Amount: 800_000})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	view, err = f.svc.PerformAction(ctx, f.sellerActor(), view.Transaction.ID, ActionInput{Action: enums.DealActionReject, Text: "below floor"})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCancelled, view.Transaction.Status)
	assert.Equal(t, enums.VehicleStatusLive, f.vehicleStatus(t))
	assert.Empty(t, view.LegalActions)
	assert.Nil(t, view.Negotiation)
}

func TestLoadDealRoomGuards(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) { p.Insights = failingInsights{} })
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	require.NotNil(t, view.Negotiation)
	assert.Nil(t, view.Negotiation.Market, "insight failure leaves the panel without market data")

	_, err = f.svc.LoadDealRoom(ctx, ActorContext{}, view.Transaction.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.LoadDealRoom(ctx, ActorContext{DealerID: uuid.New()}, view.Transaction.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.LoadDealRoom(ctx, f.sellerActor(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.LoadDealRoom(ctx, f.sellerActor(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.PerformAction(ctx, f.sellerActor(), view.Transaction.ID, ActionInput{Action: enums.DealActionCounterOffer, AmountLakhs: "abc"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLoadDealRoomUnknownDealer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	require.NoError(t, f.conn.Where("id = ?", f.buyer.ID).Delete(&models.Dealer{}).Error)

	view, err = f.svc.LoadDealRoom(ctx, f.sellerActor(), view.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, view.Buyer.Unknown)
	assert.Equal(t, UnknownDealerName, view.Buyer.BusinessName)
	assert.Equal(t, "Apex Motors", view.Seller.BusinessName)
}

func TestLoadDealRoomMissingVehicleIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	require.NoError(t, f.conn.Where("id = ?", f.vehicle.ID).Delete(&models.Vehicle{}).Error)

	_, err = f.svc.LoadDealRoom(ctx, f.sellerActor(), view.Transaction.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestPerformActionReportsCommitWhenReloadFails(t *testing.T) {
	broken := false
	f := newFixture(t, func(p *ServiceParams) {
		p.Vehicles = unreadableVehicles{Repository: p.Vehicles, broken: &broken}
	})
	ctx := context.Background()

	offer, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	assert.False(t, offer.ReloadRequired)

	broken = true
	view, err := f.svc.PerformAction(ctx, f.sellerActor(), offer.Transaction.ID, ActionInput{Action: enums.DealActionCounterOffer, Amount: 950_000})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.True(t, view.ReloadRequired)
	assert.Equal(t, enums.TransactionStatusNegotiating, view.Transaction.Status)
	assert.Equal(t, int64(950_000), view.Transaction.OfferAmount)
	assert.True(t, view.IsSellerView)
	assert.Equal(t, f.vehicle.ID, view.Vehicle.ID)

	var stored models.Transaction
	require.NoError(t, f.conn.Where("id = ?", offer.Transaction.ID).Take(&stored).Error)
	assert.Equal(t, enums.TransactionStatusNegotiating, stored.Status)
	assert.Len(t, stored.Messages, 2)
}

func TestMakeOfferReportsCommitWhenReloadFails(t *testing.T) {
	broken := true
	f := newFixture(t, func(p *ServiceParams) {
		p.Vehicles = unreadableVehicles{Repository: p.Vehicles, broken: &broken}
	})

	view, err := f.svc.MakeOffer(context.Background(), f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	assert.True(t, view.ReloadRequired)
	assert.True(t, view.IsBuyerView)
	assert.Equal(t, enums.TransactionStatusOfferMade, view.Transaction.Status)
	assert.Equal(t, enums.VehicleStatusInTransaction, f.vehicleStatus(t))
}

func TestSkipRatingPrompt(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.MakeOffer(ctx, f.buyerActor(), f.vehicle.ID, OfferInput{Amount: 900_000})
	require.NoError(t, err)
	id := view.Transaction.ID
	require.NoError(t, f.conn.Model(&models.Transaction{}).Where("id = ?", id).Updates(map[string]any{
		"status":           enums.TransactionStatusCompleted,
		"transport_status": enums.TransportStatusDelivered,
	}).Error)

	require.NoError(t, f.svc.SkipRatingPrompt(ctx, f.sellerActor(), id))
	view, err = f.svc.LoadDealRoom(ctx, f.sellerActor(), id)
	require.NoError(t, err)
	assert.False(t, view.ShowRatingPrompt)

	view, err = f.svc.LoadDealRoom(ctx, f.buyerActor(), id)
	require.NoError(t, err)
	assert.True(t, view.ShowRatingPrompt)

	err = f.svc.SkipRatingPrompt(ctx, ActorContext{DealerID: uuid.New()}, id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
