package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/stores"
)

type fakeBeaconForwarder struct {
	configured bool
	err        error
	rows       []map[string]any
	at         []time.Time
}

func (f *fakeBeaconForwarder) Configured() bool { return f.configured }

func (f *fakeBeaconForwarder) ForwardBeacon(_ context.Context, fields map[string]any, receivedAt time.Time) error {
	f.rows = append(f.rows, fields)
	f.at = append(f.at, receivedAt)
	return f.err
}

func newBeaconService(fwd BeaconForwarder, max int) *BeaconService {
	logger, perf := testDeps()
	return NewBeaconService(stores.NewRateLimiter(max, time.Minute, fixedNow, nil), fwd, fixedNow, logger, perf)
}

func TestParseBeacon(t *testing.T) {
	p, err := ParseBeacon([]byte(`{"email":"jo@example.com","gclid":null,"url":"https://example.com/quote"}`))
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", p.Email)
	assert.Nil(t, p.Gclid)

	_, err = ParseBeacon([]byte(`nope`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ParseBeacon([]byte(`{"email":"not-an-email"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseBeacon([]byte(`{"url":"/relative"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestReceiveForwardsValidBeacon(t *testing.T) {
	fwd := &fakeBeaconForwarder{configured: true}
	svc := newBeaconService(fwd, 10)

	out := svc.Receive(context.Background(), []byte(`{"transactionId":"LD-1","gclid":"abc","utm_source":"google"}`), "ip")
	assert.Equal(t, BeaconOutcome{Valid: true, Forwarded: true}, out)
	require.Len(t, fwd.rows, 1)
	assert.Equal(t, map[string]any{"transactionId": "LD-1", "gclid": "abc", "utm_source": "google"}, fwd.rows[0])
	assert.Equal(t, testNow, fwd.at[0])
}

func TestReceiveInvalidIsNotForwarded(t *testing.T) {
	fwd := &fakeBeaconForwarder{configured: true}
	svc := newBeaconService(fwd, 10)

	out := svc.Receive(context.Background(), []byte(`{"email":"bad"}`), "ip")
	assert.False(t, out.Valid)
	assert.Empty(t, fwd.rows)

	out = svc.Receive(context.Background(), []byte(`]`), "ip")
	assert.False(t, out.Valid)
	assert.Empty(t, fwd.rows)
}

func TestReceiveRateLimited(t *testing.T) {
	fwd := &fakeBeaconForwarder{configured: true}
	svc := newBeaconService(fwd, 2)

	for i := 0; i < 2; i++ {
		assert.True(t, svc.Receive(context.Background(), []byte(`{}`), "ip").Forwarded)
	}
	out := svc.Receive(context.Background(), []byte(`{}`), "ip")
	assert.True(t, out.RateLimited)
	assert.False(t, out.Forwarded)
	assert.Len(t, fwd.rows, 2)
}

func TestReceiveUnconfiguredOrFailingForwarder(t *testing.T) {
	unconfigured := &fakeBeaconForwarder{}
	out := newBeaconService(unconfigured, 10).Receive(context.Background(), []byte(`{}`), "ip")
	assert.True(t, out.Valid)
	assert.False(t, out.Forwarded)
	assert.Empty(t, unconfigured.rows)

	failing := &fakeBeaconForwarder{configured: true, err: errors.New("timeout")}
	out = newBeaconService(failing, 10).Receive(context.Background(), []byte(`{}`), "ip")
	assert.True(t, out.Valid)
	assert.False(t, out.Forwarded)

	logger, perf := testDeps()
	out = NewBeaconService(nil, nil, nil, logger, perf).Receive(context.Background(), []byte(`{}`), "ip")
	assert.True(t, out.Valid)
}
