package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/flightbot/internal/models"
	"github.com/xaenox/flightbot/internal/storage"
	"go.uber.org/zap"
)

type fakeSearcher struct {
	prices map[string]float64 // keyed by origin
}

func (f *fakeSearcher) Search(ctx context.Context, origin, destination, date string) ([]models.Flight, error) {
	price, ok := f.prices[origin]
	if !ok {
		return nil, fmt.Errorf("provider unavailable for %s", origin)
	}
	return []models.Flight{
		{FlightNumber: "AA101", Airline: "American Airlines", Origin: origin, Destination: destination, Price: price + 25, Currency: "USD"},
		{FlightNumber: "UA202", Airline: "United", Origin: origin, Destination: destination, Price: price, Currency: "USD"},
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
	chats  []int64
}

func (f *fakeNotifier) SendAlert(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, text)
	f.chats = append(f.chats, chatID)
	return nil
}

func seedRoute(t *testing.T, store storage.Storage, id, origin string, bestPrice float64) {
	t.Helper()
	err := store.AddTrackedRoute(context.Background(), &models.TrackedRoute{
		ID:             id,
		UserID:         42,
		Origin:         origin,
		Destination:    "JFK",
		CheckFrequency: 30,
		Active:         true,
		BestPrice:      bestPrice,
	})
	require.NoError(t, err)
}

func newTestMonitor(store storage.Storage, searcher *fakeSearcher, notifier *fakeNotifier) *Monitor {
	return New(store, searcher, notifier, nil, zap.NewNop(), time.Minute, 5)
}

func TestRunCycle_AlertsOnLargeDrop(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRoute(t, store, "route-1", "LAX", 100)
	notifier := &fakeNotifier{}
	// 94 is a 6% drop below the stored best of 100.
	m := newTestMonitor(store, &fakeSearcher{prices: map[string]float64{"LAX": 94}}, notifier)

	m.RunCycle(context.Background())

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, int64(42), notifier.chats[0])
	assert.Contains(t, notifier.alerts[0], "PRICE DROP ALERT")
	assert.Contains(t, notifier.alerts[0], "$100.00")
	assert.Contains(t, notifier.alerts[0], "$94.00")

	route, err := store.GetRouteByPair(context.Background(), 42, "LAX", "JFK")
	require.NoError(t, err)
	assert.Equal(t, 94.0, route.BestPrice)
	assert.Len(t, route.PriceHistory, 1)
	assert.False(t, route.LastCheck.IsZero())
}

func TestRunCycle_NoAlertOnSmallDrop(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRoute(t, store, "route-1", "LAX", 100)
	notifier := &fakeNotifier{}
	// 96 is only a 4% drop, below the 5% threshold.
	m := newTestMonitor(store, &fakeSearcher{prices: map[string]float64{"LAX": 96}}, notifier)

	m.RunCycle(context.Background())

	assert.Empty(t, notifier.alerts)

	// History is still appended and best_price stays at the minimum.
	route, err := store.GetRouteByPair(context.Background(), 42, "LAX", "JFK")
	require.NoError(t, err)
	assert.Equal(t, 100.0, route.BestPrice)
	assert.Len(t, route.PriceHistory, 1)
}

func TestRunCycle_NoAlertWithoutPriorBest(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRoute(t, store, "route-1", "LAX", 0)
	notifier := &fakeNotifier{}
	m := newTestMonitor(store, &fakeSearcher{prices: map[string]float64{"LAX": 94}}, notifier)

	m.RunCycle(context.Background())

	assert.Empty(t, notifier.alerts)

	route, err := store.GetRouteByPair(context.Background(), 42, "LAX", "JFK")
	require.NoError(t, err)
	assert.Equal(t, 94.0, route.BestPrice, "first observation becomes the best price")
}

func TestRunCycle_RouteFailureIsIsolated(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRoute(t, store, "route-bad", "SFO", 500) // no provider entry: search fails
	seedRoute(t, store, "route-good", "LAX", 100)
	notifier := &fakeNotifier{}
	m := newTestMonitor(store, &fakeSearcher{prices: map[string]float64{"LAX": 90}}, notifier)

	m.RunCycle(context.Background())

	// The failing route does not abort the cycle; the healthy one still
	// gets checked and alerted.
	require.Len(t, notifier.alerts, 1)

	good, err := store.GetRouteByPair(context.Background(), 42, "LAX", "JFK")
	require.NoError(t, err)
	assert.Len(t, good.PriceHistory, 1)

	bad, err := store.GetRouteByPair(context.Background(), 42, "SFO", "JFK")
	require.NoError(t, err)
	assert.Empty(t, bad.PriceHistory)
	assert.Equal(t, 500.0, bad.BestPrice)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := storage.NewMemoryStorage()
	notifier := &fakeNotifier{}
	m := newTestMonitor(store, &fakeSearcher{prices: map[string]float64{}}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}
