package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookStore struct {
	keys map[string]bool
}

func newFakeWebhookStore() *fakeWebhookStore {
	return &fakeWebhookStore{keys: make(map[string]bool)}
}

func (f *fakeWebhookStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeWebhookStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeWebhookStore) WebhookGuardKey(provider, eventID string) string {
	return "kiosk:webhook:" + provider + ":" + eventID
}

func TestReplayGuardSuppressesSecondDelivery(t *testing.T) {
	guard, err := NewReplayGuard(newFakeWebhookStore(), time.Hour, "square")
	require.NoError(t, err)

	already, err := guard.CheckAndMark(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = guard.CheckAndMark(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestReplayGuardDeleteReleasesEvent(t *testing.T) {
	guard, err := NewReplayGuard(newFakeWebhookStore(), time.Hour, "square")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt-1")
	require.NoError(t, err)
	require.NoError(t, guard.Delete(context.Background(), "evt-1"))

	already, err := guard.CheckAndMark(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, already)
}

func TestReplayGuardValidation(t *testing.T) {
	_, err := NewReplayGuard(nil, time.Hour, "square")
	require.Error(t, err)

	_, err = NewReplayGuard(newFakeWebhookStore(), 0, "square")
	require.Error(t, err)

	_, err = NewReplayGuard(newFakeWebhookStore(), time.Hour, "")
	require.Error(t, err)

	guard, err := NewReplayGuard(newFakeWebhookStore(), time.Hour, "square")
	require.NoError(t, err)
	_, err = guard.CheckAndMark(context.Background(), "")
	require.Error(t, err)
}
