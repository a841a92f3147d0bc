package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/internal/vehicles"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox/payloads"
)

const defaultReconcileBatch = 500

type VehicleStatusReconcileJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Transactions driftedVehicleLister
	Vehicles     vehicles.Repository
	Outbox       outbox.Emitter
	BatchSize    int
}

type driftedVehicleLister interface {
	DriftedVehicles(ctx context.Context, after uuid.UUID, limit int) ([]transactions.VehicleDeal, error)
}

// NewVehicleStatusReconcileJob repairs vehicles whose status disagrees with
// their latest deal. The deal status wins.
func NewVehicleStatusReconcileJob(params VehicleStatusReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Vehicles == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &vehicleStatusReconcileJob{
		logg:         params.Logger,
		db:           params.DB,
		transactions: params.Transactions,
		vehicles:     params.Vehicles,
		outbox:       params.Outbox,
		batch:        batch,
		now:          time.Now,
	}, nil
}

type vehicleStatusReconcileJob struct {
	logg         *logger.Logger
	db           txRunner
	transactions driftedVehicleLister
	vehicles     vehicles.Repository
	outbox       outbox.Emitter
	batch        int
	now          func() time.Time
}

func (j *vehicleStatusReconcileJob) Name() string { return "vehicle-status-reconcile" }

// Run walks every drifted vehicle in id order, a page at a time. Rows that
// fail to repair are skipped so later pages are still reached.
func (j *vehicleStatusReconcileJob) Run(ctx context.Context) error {
	var (
		errs     error
		scanned  int
		repaired int
		after    uuid.UUID
	)
	for {
		rows, err := j.transactions.DriftedVehicles(ctx, after, j.batch)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("load drifted vehicles: %w", err))
			break
		}
		scanned += len(rows)
		for _, row := range rows {
			desired := transactions.DesiredVehicleStatus(row.TransactionStatus)
			if row.VehicleStatus == desired {
				continue
			}
			if err := j.repair(ctx, row, desired); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("vehicle %s: %w", row.VehicleID, err))
				continue
			}
			repaired++
		}
		if len(rows) < j.batch || ctx.Err() != nil {
			break
		}
		after = rows[len(rows)-1].VehicleID
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  scanned,
		"repaired": repaired,
		"failures": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "vehicle status reconcile complete")
	return errs
}

func (j *vehicleStatusReconcileJob) repair(ctx context.Context, row transactions.VehicleDeal, desired enums.VehicleStatus) error {
	now := j.now().UTC()
	txID := row.TransactionID
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.vehicles.WithTx(tx).SetStatus(ctx, row.VehicleID, desired, now); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVehicleStatusReconciled,
			AggregateType: enums.AggregateVehicle,
			AggregateID:   row.VehicleID,
			OccurredAt:    now,
			Data: payloads.VehicleStatusReconciledEvent{
				VehicleID:     row.VehicleID,
				TransactionID: &txID,
				From:          row.VehicleStatus,
				To:            desired,
				OccurredAt:    now,
			},
		})
	})
}
