package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/flightbot/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Storage interface {
	UserStorage
	RouteStorage
	AuditStorage
	Close() error
}

type UserStorage interface {
	GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error)
	IncrementSearches(ctx context.Context, userID int64) error
	IncrementBookings(ctx context.Context, userID int64) error
	SetPreference(ctx context.Context, userID int64, key, value string) error
}

type RouteStorage interface {
	AddTrackedRoute(ctx context.Context, route *models.TrackedRoute) error
	GetActiveRoutes(ctx context.Context) ([]*models.TrackedRoute, error)
	GetUserRoutes(ctx context.Context, userID int64) ([]*models.TrackedRoute, error)
	GetRouteByPair(ctx context.Context, userID int64, origin, destination string) (*models.TrackedRoute, error)
	DeactivateRoute(ctx context.Context, routeID string, userID int64) error

	// RecordRoutePrice appends an observation to the route's history,
	// truncates the history to the most recent MaxPriceHistory entries,
	// lowers best_price if the observation beats it, and stamps
	// last_check. The whole update is a single atomic unit per route.
	RecordRoutePrice(ctx context.Context, routeID string, price float64, at time.Time) error
}

type AuditStorage interface {
	LogAction(ctx context.Context, entry *models.ActionLog) error
	SaveSearch(ctx context.Context, rec *models.FlightSearchRecord) error

	// SearchPrices returns the lowest prices of the most recent searches
	// for a route pair, oldest first, for use as a forecast series.
	SearchPrices(ctx context.Context, origin, destination string, limit int) ([]float64, error)

	AddExpense(ctx context.Context, exp *models.ExpenseRecord) error
	GetUserExpenses(ctx context.Context, userID int64) ([]*models.ExpenseRecord, error)
}
