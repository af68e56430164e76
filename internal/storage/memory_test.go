package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/flightbot/internal/models"
)

func newTestRoute(userID int64) *models.TrackedRoute {
	return &models.TrackedRoute{
		ID:             "route-1",
		UserID:         userID,
		Origin:         "LAX",
		Destination:    "JFK",
		CheckFrequency: 30,
		Active:         true,
	}
}

func TestRecordRoutePrice_CapsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.AddTrackedRoute(ctx, newTestRoute(1)))

	for i := 0; i < models.MaxPriceHistory+50; i++ {
		err := s.RecordRoutePrice(ctx, "route-1", 400+float64(i), time.Now())
		require.NoError(t, err)
	}

	route, err := s.GetRouteByPair(ctx, 1, "LAX", "JFK")
	require.NoError(t, err)

	assert.Len(t, route.PriceHistory, models.MaxPriceHistory)
	// Oldest entries were dropped; the window ends at the last write.
	assert.Equal(t, 400+float64(models.MaxPriceHistory+49), route.PriceHistory[models.MaxPriceHistory-1].Price)
}

func TestRecordRoutePrice_BestPriceIsMonotone(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.AddTrackedRoute(ctx, newTestRoute(1)))

	require.NoError(t, s.RecordRoutePrice(ctx, "route-1", 100, time.Now()))
	require.NoError(t, s.RecordRoutePrice(ctx, "route-1", 120, time.Now()))

	route, err := s.GetRouteByPair(ctx, 1, "LAX", "JFK")
	require.NoError(t, err)
	assert.Equal(t, 100.0, route.BestPrice, "a price rise must not raise best_price")

	require.NoError(t, s.RecordRoutePrice(ctx, "route-1", 90, time.Now()))

	route, err = s.GetRouteByPair(ctx, 1, "LAX", "JFK")
	require.NoError(t, err)
	assert.Equal(t, 90.0, route.BestPrice)
	assert.False(t, route.LastCheck.IsZero())
}

func TestRecordRoutePrice_NoLostUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.AddTrackedRoute(ctx, newTestRoute(1)))

	const writers = 2
	const writesEach = 30

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writesEach; i++ {
				_ = s.RecordRoutePrice(ctx, "route-1", 425, time.Now())
			}
		}()
	}
	wg.Wait()

	route, err := s.GetRouteByPair(ctx, 1, "LAX", "JFK")
	require.NoError(t, err)
	assert.Len(t, route.PriceHistory, writers*writesEach)
}

func TestRecordRoutePrice_UnknownRoute(t *testing.T) {
	s := NewMemoryStorage()
	err := s.RecordRoutePrice(context.Background(), "missing", 100, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateRoute(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.AddTrackedRoute(ctx, newTestRoute(1)))

	// Wrong owner can't deactivate.
	assert.ErrorIs(t, s.DeactivateRoute(ctx, "route-1", 2), ErrNotFound)

	require.NoError(t, s.DeactivateRoute(ctx, "route-1", 1))

	routes, err := s.GetActiveRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, routes)

	// Soft delete: the pair lookup no longer finds it either.
	_, err = s.GetRouteByPair(ctx, 1, "LAX", "JFK")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	user, err := s.GetOrCreateUser(ctx, 42, "traveler", "Ana")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Ana", user.FirstName)

	require.NoError(t, s.IncrementSearches(ctx, 42))
	require.NoError(t, s.IncrementSearches(ctx, 42))

	user, err = s.GetOrCreateUser(ctx, 42, "traveler", "Ana")
	require.NoError(t, err)
	assert.Equal(t, 2, user.TotalSearches)
}

func TestSearchPrices_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	for _, price := range []float64{500, 480, 460} {
		require.NoError(t, s.SaveSearch(ctx, &models.FlightSearchRecord{
			UserID:      42,
			Origin:      "LAX",
			Destination: "JFK",
			LowestPrice: price,
		}))
	}
	require.NoError(t, s.SaveSearch(ctx, &models.FlightSearchRecord{
		UserID:      42,
		Origin:      "SFO",
		Destination: "SEA",
		LowestPrice: 99,
	}))

	prices, err := s.SearchPrices(ctx, "LAX", "JFK", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{480, 460}, prices, "oldest entries beyond the limit are dropped")
}
