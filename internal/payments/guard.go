package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// webhookStore is the slice of the Redis client the replay guard needs.
type webhookStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookGuardKey(provider, eventID string) string
}

// ReplayGuard suppresses duplicate gateway deliveries by event id. The guard
// window only needs to outlast the gateway's retry schedule.
type ReplayGuard struct {
	store    webhookStore
	ttl      time.Duration
	provider string
}

func NewReplayGuard(store webhookStore, ttl time.Duration, provider string) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("webhook store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &ReplayGuard{
		store:    store,
		ttl:      ttl,
		provider: provider,
	}, nil
}

// CheckAndMark returns true when the event was already seen.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.WebhookGuardKey(g.provider, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook guard key: %w", err)
	}
	return !set, nil
}

// Delete releases the guard so the gateway's next retry is processed.
func (g *ReplayGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.WebhookGuardKey(g.provider, eventID)
	return g.store.Del(ctx, key)
}
