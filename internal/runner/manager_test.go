package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	started atomic.Int32
	stopped atomic.Int32
	ctxDone atomic.Bool
}

func (f *fakePrices) StartPriceUpdates(ctx context.Context) func() {
	f.started.Add(1)
	return func() {
		f.ctxDone.Store(ctx.Err() != nil)
		f.stopped.Add(1)
	}
}

type fakeUsers struct {
	mu           sync.Mutex
	loads        int
	err          error
	subscribed   int
	unsubscribed int
}

func (f *fakeUsers) LoadUsers(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.err
}

func (f *fakeUsers) SubscribeToRealtimeUpdates() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed++
	}
}

func (f *fakeUsers) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads, f.subscribed, f.unsubscribed
}

func TestStartAndStopReleaseEveryHandle(t *testing.T) {
	prices := &fakePrices{}
	users := &fakeUsers{}
	m := NewManager(prices, users, "@every 1h", zerolog.Nop())

	require.NoError(t, m.Start())
	loads, subscribed, _ := users.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, subscribed)
	assert.Equal(t, int32(1), prices.started.Load())

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	_, _, unsubscribed := users.counts()
	assert.Equal(t, 1, unsubscribed)
	assert.Equal(t, int32(1), prices.stopped.Load())
	assert.True(t, prices.ctxDone.Load())
}

func TestStartTwiceFails(t *testing.T) {
	m := NewManager(&fakePrices{}, &fakeUsers{}, "", zerolog.Nop())
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Error(t, m.Start())
}

func TestInvalidSchedule(t *testing.T) {
	prices := &fakePrices{}
	m := NewManager(prices, &fakeUsers{}, "every now and then", zerolog.Nop())

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reconcile schedule")
	assert.Zero(t, prices.started.Load())
	require.NoError(t, m.Stop())
}

func TestInitialLoadFailureIsNotFatal(t *testing.T) {
	users := &fakeUsers{err: errors.New("directory down")}
	m := NewManager(&fakePrices{}, users, "", zerolog.Nop())

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())

	_, subscribed, unsubscribed := users.counts()
	assert.Equal(t, 1, subscribed)
	assert.Equal(t, 1, unsubscribed)
}

func TestScheduledReconciliation(t *testing.T) {
	users := &fakeUsers{}
	m := NewManager(&fakePrices{}, users, "@every 1s", zerolog.Nop())
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		loads, _, _ := users.counts()
		return loads >= 2
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, m.Stop())
	loads, _, _ := users.counts()

	time.Sleep(1200 * time.Millisecond)
	after, _, _ := users.counts()
	assert.Equal(t, loads, after)
}
