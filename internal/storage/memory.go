package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/flightbot/internal/models"
)

// MemoryStorage is an in-process Storage used for development and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	routes   map[string]*models.TrackedRoute
	actions  []*models.ActionLog
	searches []*models.FlightSearchRecord
	expenses []*models.ExpenseRecord
	nextID   int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[int64]*models.User),
		routes: make(map[string]*models.TrackedRoute),
	}
}

func (s *MemoryStorage) GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		user = &models.User{
			ID:          id,
			Preferences: make(map[string]string),
			CreatedAt:   time.Now(),
		}
		s.users[id] = user
	}

	user.Username = username
	user.FirstName = firstName
	user.LastActiveAt = time.Now()

	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) IncrementSearches(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[userID]; exists {
		user.TotalSearches++
	}
	return nil
}

func (s *MemoryStorage) IncrementBookings(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[userID]; exists {
		user.TotalBookings++
	}
	return nil
}

func (s *MemoryStorage) SetPreference(ctx context.Context, userID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return ErrNotFound
	}
	if user.Preferences == nil {
		user.Preferences = make(map[string]string)
	}
	user.Preferences[key] = value
	return nil
}

func (s *MemoryStorage) AddTrackedRoute(ctx context.Context, route *models.TrackedRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route.CreatedAt = time.Now()
	copied := copyRoute(route)
	s.routes[route.ID] = copied
	return nil
}

func (s *MemoryStorage) GetActiveRoutes(ctx context.Context) ([]*models.TrackedRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var routes []*models.TrackedRoute
	for _, route := range s.routes {
		if route.Active {
			routes = append(routes, copyRoute(route))
		}
	}
	return routes, nil
}

func (s *MemoryStorage) GetUserRoutes(ctx context.Context, userID int64) ([]*models.TrackedRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var routes []*models.TrackedRoute
	for _, route := range s.routes {
		if route.Active && route.UserID == userID {
			routes = append(routes, copyRoute(route))
		}
	}
	return routes, nil
}

func (s *MemoryStorage) GetRouteByPair(ctx context.Context, userID int64, origin, destination string) (*models.TrackedRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, route := range s.routes {
		if route.Active && route.UserID == userID &&
			route.Origin == origin && route.Destination == destination {
			return copyRoute(route), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) DeactivateRoute(ctx context.Context, routeID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, exists := s.routes[routeID]
	if !exists || route.UserID != userID {
		return ErrNotFound
	}
	route.Active = false
	return nil
}

func (s *MemoryStorage) RecordRoutePrice(ctx context.Context, routeID string, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, exists := s.routes[routeID]
	if !exists {
		return ErrNotFound
	}

	route.PriceHistory = append(route.PriceHistory, models.PricePoint{Price: price, Timestamp: at})
	if len(route.PriceHistory) > models.MaxPriceHistory {
		route.PriceHistory = route.PriceHistory[len(route.PriceHistory)-models.MaxPriceHistory:]
	}

	if route.BestPrice == 0 || price < route.BestPrice {
		route.BestPrice = price
	}
	route.LastCheck = at
	return nil
}

func (s *MemoryStorage) LogAction(ctx context.Context, entry *models.ActionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	entry.Timestamp = time.Now()
	copied := *entry
	s.actions = append(s.actions, &copied)
	return nil
}

func (s *MemoryStorage) SaveSearch(ctx context.Context, rec *models.FlightSearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	rec.SearchedAt = time.Now()
	copied := *rec
	s.searches = append(s.searches, &copied)
	return nil
}

func (s *MemoryStorage) SearchPrices(ctx context.Context, origin, destination string, limit int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prices []float64
	for _, rec := range s.searches {
		if rec.Origin == origin && rec.Destination == destination && rec.LowestPrice > 0 {
			prices = append(prices, rec.LowestPrice)
		}
	}
	if len(prices) > limit {
		prices = prices[len(prices)-limit:]
	}
	return prices, nil
}

func (s *MemoryStorage) AddExpense(ctx context.Context, exp *models.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	exp.ID = s.nextID
	copied := *exp
	s.expenses = append(s.expenses, &copied)
	return nil
}

func (s *MemoryStorage) GetUserExpenses(ctx context.Context, userID int64) ([]*models.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expenses []*models.ExpenseRecord
	for i := len(s.expenses) - 1; i >= 0; i-- {
		if s.expenses[i].UserID == userID {
			copied := *s.expenses[i]
			expenses = append(expenses, &copied)
		}
	}
	return expenses, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func copyRoute(route *models.TrackedRoute) *models.TrackedRoute {
	copied := *route
	copied.PriceHistory = append([]models.PricePoint(nil), route.PriceHistory...)
	return &copied
}
