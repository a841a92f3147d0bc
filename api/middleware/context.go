package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxEmail       contextKey = "email"
	ctxDisplayName contextKey = "display_name"
	ctxSessionID   contextKey = "session_id"
	ctxDealerID    contextKey = "dealer_id"
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	Email       string
	DisplayName string
	SessionID   string
}

func EmailFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxEmail)
}

func DisplayNameFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxDisplayName)
}

func SessionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxSessionID)
}

// DealerIDFromContext returns uuid.Nil when the user has no dealer profile.
func DealerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxDealerID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithIdentity injects the authenticated principal.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxEmail, id.Email)
	ctx = context.WithValue(ctx, ctxDisplayName, id.DisplayName)
	return context.WithValue(ctx, ctxSessionID, id.SessionID)
}

// WithDealerID injects the dealer resolved for the authenticated email.
func WithDealerID(ctx context.Context, dealerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDealerID, dealerID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
