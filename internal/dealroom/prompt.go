package dealroom

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

const (
	promptShown   = "shown"
	promptSkipped = "skipped"
)

type promptStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RatingPromptKey(sessionID, transactionID, role string) string
}

// RatingPrompts remembers, per session, which deals already showed the rating prompt.
type RatingPrompts struct {
	store promptStore
	ttl   time.Duration
}

// NewRatingPrompts keys prompt state in store for ttl, normally the session lifetime.
func NewRatingPrompts(store promptStore, ttl time.Duration) *RatingPrompts {
	return &RatingPrompts{store: store, ttl: ttl}
}

// ShouldShow claims the prompt for this session. Only the first caller sees true.
func (p *RatingPrompts) ShouldShow(ctx context.Context, sessionID string, transactionID uuid.UUID, role enums.DealRole) (bool, error) {
	if p == nil || p.store == nil || sessionID == "" {
		return false, nil
	}
	return p.store.SetNX(ctx, p.store.RatingPromptKey(sessionID, transactionID.String(), string(role)), promptShown, p.ttl)
}

// Skip suppresses the prompt for the rest of the session.
func (p *RatingPrompts) Skip(ctx context.Context, sessionID string, transactionID uuid.UUID, role enums.DealRole) error {
	if p == nil || p.store == nil || sessionID == "" {
		return nil
	}
	return p.store.Set(ctx, p.store.RatingPromptKey(sessionID, transactionID.String(), string(role)), promptSkipped, p.ttl)
}
