// Package dealroom orchestrates the deal room: it loads the workspace view,
// runs actions through the transaction state machine and commits every
// resulting write in one database transaction.
package dealroom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/internal/dealers"
	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/internal/vehicles"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	"github.com/angelmondragon/dealerhub-backend/pkg/metrics"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/dealerhub-backend/pkg/pagination"
)

const (
	defaultMaxRetries     = 3
	defaultInsightTimeout = 2 * time.Second
)

// ActorContext identifies who is acting. DealerID is uuid.Nil for a signed-in
// user without a dealer profile.
type ActorContext struct {
	DealerID  uuid.UUID
	Email     string
	SessionID string
}

func (a ActorContext) requireDealer() error {
	if a.DealerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "a dealer profile is required to use the deal room")
	}
	return nil
}

// ActionInput is the body of a deal room action. A counter-offer may carry
// AmountLakhs, which wins over Amount.
type ActionInput struct {
	Action           enums.DealAction
	AmountLakhs      string
	Amount           int64
	Text             string
	PaymentReference string
	Rating           int
	Review           string
}

// OfferInput opens a deal. AmountLakhs wins over Amount.
type OfferInput struct {
	AmountLakhs string
	Amount      int64
	Text        string
}

// ListParams pages through the actor's deals.
type ListParams struct {
	Archived bool
	Limit    int
	Cursor   string
}

// ListResult is one page of deals.
type ListResult struct {
	Items  []DealSummary `json:"items"`
	Cursor string        `json:"next_cursor,omitempty"`
}

// Service is the deal room surface used by the HTTP layer.
type Service interface {
	LoadDealRoom(ctx context.Context, actor ActorContext, transactionID uuid.UUID) (*View, error)
	PerformAction(ctx context.Context, actor ActorContext, transactionID uuid.UUID, input ActionInput) (*View, error)
	MakeOffer(ctx context.Context, actor ActorContext, vehicleID uuid.UUID, input OfferInput) (*View, error)
	ListDeals(ctx context.Context, actor ActorContext, params ListParams) (*ListResult, error)
	SkipRatingPrompt(ctx context.Context, actor ActorContext, transactionID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type insightProvider interface {
	Insight(ctx context.Context, q marketinsight.Query) (*marketinsight.Insight, error)
}

type rtoReader interface {
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.RTOApplication, error)
}

type actionMetrics interface {
	ObserveAction(action, result string, elapsed time.Duration)
	IncConflictRetry(action string)
}

// ServiceParams wires the orchestrator. Insights, Prompts, Dispatcher, Metrics and Logger are optional.
type ServiceParams struct {
	Tx             txRunner
	Transactions   transactions.Repository
	Vehicles       vehicles.Repository
	Dealers        dealers.Repository
	RTO            rtoReader
	Outbox         outbox.Emitter
	Dispatcher     notifications.Dispatcher
	Insights       insightProvider
	Prompts        *RatingPrompts
	Metrics        actionMetrics
	Logger         *logger.Logger
	MaxRetries     int
	InsightTimeout time.Duration
	AppBaseURL     string
}

type service struct {
	tx             txRunner
	transactions   transactions.Repository
	vehicles       vehicles.Repository
	dealers        dealers.Repository
	rto            rtoReader
	outbox         outbox.Emitter
	dispatcher     notifications.Dispatcher
	insights       insightProvider
	prompts        *RatingPrompts
	metrics        actionMetrics
	logg           *logger.Logger
	maxRetries     int
	insightTimeout time.Duration
	appBaseURL     string
	now            func() time.Time
}

// NewService validates params and returns the orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Vehicles == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if params.RTO == nil {
		return nil, fmt.Errorf("rto repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	insightTimeout := params.InsightTimeout
	if insightTimeout <= 0 {
		insightTimeout = defaultInsightTimeout
	}
	return &service{
		tx:             params.Tx,
		transactions:   params.Transactions,
		vehicles:       params.Vehicles,
		dealers:        params.Dealers,
		rto:            params.RTO,
		outbox:         params.Outbox,
		dispatcher:     params.Dispatcher,
		insights:       params.Insights,
		prompts:        params.Prompts,
		metrics:        params.Metrics,
		logg:           params.Logger,
		maxRetries:     maxRetries,
		insightTimeout: insightTimeout,
		appBaseURL:     params.AppBaseURL,
		now:            time.Now,
	}, nil
}

func (s *service) LoadDealRoom(ctx context.Context, actor ActorContext, transactionID uuid.UUID) (*View, error) {
	if err := actor.requireDealer(); err != nil {
		return nil, err
	}
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	deal, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	role := deal.RoleOf(actor.DealerID)
	if role == enums.DealRoleNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not a party to this deal")
	}

	vehicle, err := s.vehicles.FindByID(ctx, deal.VehicleID)
	if err != nil {
		return nil, err
	}

	partyIDs := []uuid.UUID{deal.SellerID}
	if deal.BuyerID != nil {
		partyIDs = append(partyIDs, *deal.BuyerID)
	}
	parties, err := s.dealers.FindByIDs(ctx, partyIDs)
	if err != nil {
		return nil, err
	}

	app, err := s.rto.FindByTransactionID(ctx, deal.ID)
	if err != nil {
		return nil, err
	}

	view := &View{
		Transaction:  newTransactionView(deal),
		Vehicle:      newVehicleView(vehicle),
		Seller:       newPartyView(deal.SellerID, parties),
		Buyer:        newPartyView(deal.PartyID(enums.DealRoleBuyer), parties),
		RTO:          newRTOView(app),
		Role:         role,
		IsSellerView: role == enums.DealRoleSeller,
		IsBuyerView:  role == enums.DealRoleBuyer,
		LegalActions: transactions.LegalActions(deal, role),
		Negotiation:  s.negotiationPanel(ctx, deal, vehicle),
	}
	view.ShowRatingPrompt = s.showRatingPrompt(ctx, actor, deal, role)
	return view, nil
}

func (s *service) negotiationPanel(ctx context.Context, deal *models.Transaction, vehicle *models.Vehicle) *NegotiationPanel {
	if !deal.Status.IsOpen() && deal.Status != enums.TransactionStatusAccepted {
		return nil
	}
	current := deal.OfferAmount
	if deal.FinalAmount != nil {
		current = *deal.FinalAmount
	}
	panel := &NegotiationPanel{
		ListedPrice:      vehicle.Price,
		CurrentOffer:     current,
		DeltaVsListedPct: money.PercentDelta(current, vehicle.Price),
	}
	if last, ok := deal.Messages.Last(enums.NegotiationEventCounterOffer); ok {
		sender := last.SenderID
		panel.LastCounterBy = &sender
	}

	if s.insights != nil {
		insightCtx, cancel := context.WithTimeout(ctx, s.insightTimeout)
		defer cancel()
		year := vehicle.Year
		listed := vehicle.Price
		insight, err := s.insights.Insight(insightCtx, marketinsight.Query{
			Comparable:  marketinsight.Comparable{Make: vehicle.Make, Model: vehicle.Model, Year: &year},
			Price:       current,
			ListedPrice: &listed,
		})
		if err != nil {
			s.warn(ctx, "market insight unavailable", deal.ID, err)
		} else {
			panel.Market = insight
		}
	}
	return panel
}

func (s *service) showRatingPrompt(ctx context.Context, actor ActorContext, deal *models.Transaction, role enums.DealRole) bool {
	if !deal.Delivered() || deal.RatingBy(role) != nil {
		return false
	}
	show, err := s.prompts.ShouldShow(ctx, actor.SessionID, deal.ID, role)
	if err != nil {
		s.warn(ctx, "rating prompt state unavailable", deal.ID, err)
		return false
	}
	return show
}

func (s *service) PerformAction(ctx context.Context, actor ActorContext, transactionID uuid.UUID, input ActionInput) (*View, error) {
	started := s.now()
	if err := actor.requireDealer(); err != nil {
		return nil, err
	}
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", input.Action)
	}

	in, err := toMachineInput(input)
	if err != nil {
		s.observe(input.Action, metrics.ResultRejected, started)
		return nil, err
	}

	ctx = s.withActionFields(ctx, actor, transactionID, input.Action)

	var result *transactions.Result
	for attempt := 0; ; attempt++ {
		result, err = s.applyOnce(ctx, actor, transactionID, in)
		if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) || attempt >= s.maxRetries {
			break
		}
		if s.metrics != nil {
			s.metrics.IncConflictRetry(string(input.Action))
		}
		if s.logg != nil {
			s.logg.Debug(s.logg.WithField(ctx, "attempt", attempt+1), "deal version conflict, retrying")
		}
	}
	if err != nil {
		s.observe(input.Action, outcome(err), started)
		return nil, err
	}

	s.notifyCounterparty(ctx, &result.Transaction, input.Action, result.ActorRole, result.Effects.NotificationType)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"from_status": string(result.From),
			"to_status":   string(result.Transaction.Status),
			"version":     result.Transaction.Version,
		}), "deal action committed")
	}

	view := s.committedView(ctx, actor, &result.Transaction)
	s.observe(input.Action, metrics.ResultSuccess, started)
	return view, nil
}

// committedView reloads the room after a committed write. A reload failure is
// logged and degrades to the committed deal so the caller never mistakes a
// landed action for a failed one.
func (s *service) committedView(ctx context.Context, actor ActorContext, deal *models.Transaction) *View {
	view, err := s.LoadDealRoom(ctx, actor, deal.ID)
	if err == nil {
		return view
	}
	s.warn(ctx, "deal room reload after commit failed", deal.ID, err)
	return committedOnlyView(deal, deal.RoleOf(actor.DealerID))
}

// applyOnce re-reads the deal and commits one action with all its effects.
func (s *service) applyOnce(ctx context.Context, actor ActorContext, transactionID uuid.UUID, in transactions.Input) (*transactions.Result, error) {
	var committed *transactions.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.transactions.WithTx(tx)
		current, err := txRepo.FindByIDForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		res, err := transactions.Apply(*current, actor.DealerID, in, now)
		if err != nil {
			return err
		}
		if err := txRepo.Update(ctx, &res.Transaction, current.Version); err != nil {
			return err
		}

		if res.Effects.VehicleStatus != nil {
			if err := s.vehicles.WithTx(tx).SetStatus(ctx, current.VehicleID, *res.Effects.VehicleStatus, now); err != nil {
				return err
			}
		}
		if res.Effects.Rating != nil {
			if err := s.applyRating(ctx, tx, res, actor, now); err != nil {
				return err
			}
		}

		next := res.Transaction
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDealStateChanged,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   next.ID,
			Actor:         actorRef(actor, res.ActorRole),
			OccurredAt:    now,
			Data: payloads.DealStateChangedEvent{
				TransactionID:   next.ID,
				VehicleID:       next.VehicleID,
				Action:          in.Action,
				ActorID:         actor.DealerID,
				FromStatus:      res.From,
				ToStatus:        next.Status,
				OfferAmount:     next.OfferAmount,
				FinalAmount:     next.FinalAmount,
				EscrowStatus:    next.EscrowStatus,
				TransportStatus: next.TransportStatus,
				Archived:        next.DealArchived,
				Version:         next.Version,
				OccurredAt:      now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue deal event")
		}

		committed = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *service) applyRating(ctx context.Context, tx *gorm.DB, res *transactions.Result, actor ActorContext, now time.Time) error {
	effect := res.Effects.Rating
	dealerRepo := s.dealers.WithTx(tx)

	ratee, err := dealerRepo.FindByID(ctx, effect.RateeID)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		// The ratee's profile is gone; the rating still lands on the deal.
		ratee = nil
	case err != nil:
		return err
	default:
		if err := dealerRepo.ApplyRating(ctx, effect.RateeID, effect.Score); err != nil {
			return err
		}
		if ratee, err = dealerRepo.FindByID(ctx, effect.RateeID); err != nil {
			return err
		}
	}

	if effect.FirstForDeal {
		deal := res.Transaction
		if err := dealerRepo.IncrementCompletedDeals(ctx, deal.SellerID, deal.PartyID(enums.DealRoleBuyer)); err != nil {
			return err
		}
	}

	event := payloads.DealRatedEvent{
		TransactionID: res.Transaction.ID,
		RaterID:       actor.DealerID,
		RateeID:       effect.RateeID,
		RaterRole:     effect.RaterRole,
		Score:         effect.Score,
		OccurredAt:    now,
	}
	if ratee != nil {
		event.RateeRating = ratee.Rating
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDealRated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   res.Transaction.ID,
		Actor:         actorRef(actor, effect.RaterRole),
		OccurredAt:    now,
		Data:          event,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue rating event")
	}
	return nil
}

func (s *service) MakeOffer(ctx context.Context, actor ActorContext, vehicleID uuid.UUID, input OfferInput) (*View, error) {
	started := s.now()
	if err := actor.requireDealer(); err != nil {
		return nil, err
	}
	if vehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	amount, err := resolveAmount(input.AmountLakhs, input.Amount)
	if err != nil {
		s.observe(enums.DealActionMakeOffer, metrics.ResultRejected, started)
		return nil, err
	}

	var created *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		vehicleRepo := s.vehicles.WithTx(tx)
		vehicle, err := vehicleRepo.FindByID(ctx, vehicleID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		deal, err := transactions.NewOffer(*vehicle, actor.DealerID, amount, now)
		if err != nil {
			return err
		}
		if note := strings.TrimSpace(input.Text); note != "" {
			deal.Messages[0].Text += ": " + note
		}
		if err := vehicleRepo.TransitionStatus(ctx, vehicle.ID, enums.VehicleStatusLive, enums.VehicleStatusInTransaction, now); err != nil {
			return err
		}
		if err := s.transactions.WithTx(tx).Create(ctx, deal); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDealOfferCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   deal.ID,
			Actor:         actorRef(actor, enums.DealRoleBuyer),
			OccurredAt:    now,
			Data: payloads.DealOfferCreatedEvent{
				TransactionID: deal.ID,
				VehicleID:     vehicle.ID,
				SellerID:      deal.SellerID,
				BuyerID:       actor.DealerID,
				OfferAmount:   deal.OfferAmount,
				ListedPrice:   vehicle.Price,
				OccurredAt:    now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue offer event")
		}
		created = deal
		return nil
	})
	if err != nil {
		s.observe(enums.DealActionMakeOffer, outcome(err), started)
		return nil, err
	}

	ctx = s.withActionFields(ctx, actor, created.ID, enums.DealActionMakeOffer)
	s.notifyCounterparty(ctx, created, enums.DealActionMakeOffer, enums.DealRoleBuyer, enums.NotificationTypeDealOffer)

	view := s.committedView(ctx, actor, created)
	s.observe(enums.DealActionMakeOffer, metrics.ResultSuccess, started)
	return view, nil
}

func (s *service) ListDeals(ctx context.Context, actor ActorContext, params ListParams) (*ListResult, error) {
	if err := actor.requireDealer(); err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)
	query := transactions.ListParams{
		DealerID: actor.DealerID,
		Archived: params.Archived,
		Limit:    pagination.LimitWithBuffer(limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.transactions.ListForDealer(ctx, query)
	if err != nil {
		return nil, err
	}
	page := pagination.BuildPage(rows, limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{At: t.UpdatedAt, ID: t.ID}
	})

	items := make([]DealSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newDealSummary(&page.Items[i], actor.DealerID))
	}
	return &ListResult{Items: items, Cursor: page.NextCursor}, nil
}

func (s *service) SkipRatingPrompt(ctx context.Context, actor ActorContext, transactionID uuid.UUID) error {
	if err := actor.requireDealer(); err != nil {
		return err
	}
	if transactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	deal, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}
	role := deal.RoleOf(actor.DealerID)
	if role == enums.DealRoleNone {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you are not a party to this deal")
	}
	if err := s.prompts.Skip(ctx, actor.SessionID, deal.ID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rating prompt skip")
	}
	return nil
}

func toMachineInput(input ActionInput) (transactions.Input, error) {
	in := transactions.Input{
		Action:           input.Action,
		Amount:           input.Amount,
		Text:             input.Text,
		PaymentReference: input.PaymentReference,
		Rating:           input.Rating,
		Review:           input.Review,
	}
	if input.Action == enums.DealActionCounterOffer {
		amount, err := resolveAmount(input.AmountLakhs, input.Amount)
		if err != nil {
			return transactions.Input{}, err
		}
		in.Amount = amount
	}
	return in, nil
}

// resolveAmount prefers a lakh figure and falls back to rupees.
func resolveAmount(lakhs string, rupees int64) (int64, error) {
	if strings.TrimSpace(lakhs) != "" {
		amount, err := money.LakhsToRupees(lakhs)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		return amount, nil
	}
	if rupees <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return rupees, nil
}

func actorRef(actor ActorContext, role enums.DealRole) *outbox.ActorRef {
	return &outbox.ActorRef{DealerID: actor.DealerID, Email: actor.Email, Role: string(role)}
}

func (s *service) withActionFields(ctx context.Context, actor ActorContext, transactionID uuid.UUID, action enums.DealAction) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithDeal(ctx, logger.DealFields{
		TransactionID: transactionID.String(),
		DealerID:      actor.DealerID.String(),
		Action:        string(action),
	})
}

func (s *service) observe(action enums.DealAction, result string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAction(string(action), result, s.now().Sub(started))
	}
}

func outcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return metrics.ResultConflict
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation),
		pkgerrors.IsCode(err, pkgerrors.CodeForbidden),
		pkgerrors.IsCode(err, pkgerrors.CodeStateConflict),
		pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
