package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
)

const (
	defaultOutboxPublishedRetention = 7 * 24 * time.Hour
	defaultOutboxDLQRetention       = 30 * 24 * time.Hour
)

type OutboxRetentionJobParams struct {
	Logger             *logger.Logger
	Outbox             publishedOutboxRepo
	DLQ                dlqRetentionRepo
	PublishedRetention time.Duration
	DLQRetention       time.Duration
}

type publishedOutboxRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob trims published outbox rows and aged dead letters.
// Unpublished rows are left for the publisher.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	published := params.PublishedRetention
	if published <= 0 {
		published = defaultOutboxPublishedRetention
	}
	dlq := params.DLQRetention
	if dlq <= 0 {
		dlq = defaultOutboxDLQRetention
	}
	return &outboxRetentionJob{
		logg:               params.Logger,
		outbox:             params.Outbox,
		dlq:                params.DLQ,
		publishedRetention: published,
		dlqRetention:       dlq,
		now:                time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg               *logger.Logger
	outbox             publishedOutboxRepo
	dlq                dlqRetentionRepo
	publishedRetention time.Duration
	dlqRetention       time.Duration
	now                func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error

	published, err := j.outbox.DeletePublishedBefore(ctx, now.Add(-j.publishedRetention))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete published outbox rows: %w", err))
	}

	var deadLetters int64
	if j.dlq != nil {
		deadLetters, err = j.dlq.DeleteBefore(ctx, now.Add(-j.dlqRetention))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete dead letters: %w", err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"published_deleted":   published,
		"dead_letter_deleted": deadLetters,
		"published_retention": j.publishedRetention.String(),
		"dlq_retention":       j.dlqRetention.String(),
	})
	if errs != nil {
		return errs
	}
	j.logg.Info(logCtx, "outbox retention complete")
	return nil
}
