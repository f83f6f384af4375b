package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxSessionID    contextKey = "session_id"
	ctxStoreID      contextKey = "store_id"
	ctxDeviceNumber contextKey = "device_number"
)

func SessionIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxSessionID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func StoreIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxStoreID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func DeviceNumberFromContext(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxDeviceNumber).(int); ok {
		return v
	}
	return 0
}

// WithSession seeds the context the way TerminalAuth does; exported for tests
// and for handlers mounted outside the authenticated group.
func WithSession(ctx context.Context, sessionID, storeID uuid.UUID, deviceNumber int) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	ctx = context.WithValue(ctx, ctxStoreID, storeID)
	return context.WithValue(ctx, ctxDeviceNumber, deviceNumber)
}
