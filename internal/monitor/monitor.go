// Package monitor runs the background loop that re-checks tracked
// routes and raises price-drop alerts.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/xaenox/flightbot/internal/format"
	"github.com/xaenox/flightbot/internal/models"
	"github.com/xaenox/flightbot/internal/search"
	"github.com/xaenox/flightbot/internal/storage"
	"github.com/xaenox/flightbot/pkg/metrics"
	"go.uber.org/zap"
)

// Notifier delivers an alert message to a chat. The bot layer
// implements it.
type Notifier interface {
	SendAlert(chatID int64, text string) error
}

type Monitor struct {
	storage     storage.Storage
	searcher    search.Searcher
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      *zap.Logger
	interval    time.Duration
	dropPercent float64
	now         func() time.Time
}

func New(store storage.Storage, searcher search.Searcher, notifier Notifier,
	m *metrics.Metrics, logger *zap.Logger, interval time.Duration, dropPercent float64) *Monitor {
	return &Monitor{
		storage:     store,
		searcher:    searcher,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
		interval:    interval,
		dropPercent: dropPercent,
		now:         time.Now,
	}
}

// Run executes one cycle immediately, then one per tick until the
// context is cancelled. Cycles run on a single goroutine, so they never
// overlap and ticks missed while a cycle is running are coalesced.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Starting flight monitoring",
		zap.Duration("interval", m.interval),
		zap.Float64("drop_percent", m.dropPercent))

	m.RunCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Flight monitoring stopped")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle checks every active tracked route once. A failing route is
// logged and skipped; it never aborts the cycle.
func (m *Monitor) RunCycle(ctx context.Context) {
	start := m.now()

	routes, err := m.storage.GetActiveRoutes(ctx)
	if err != nil {
		m.logger.Error("Failed to list active routes", zap.Error(err))
		m.countError("list_routes")
		return
	}

	for _, route := range routes {
		if err := m.checkRoute(ctx, route); err != nil {
			m.logger.Error("Failed to check route",
				zap.Error(err),
				zap.String("route_id", route.ID),
				zap.String("origin", route.Origin),
				zap.String("destination", route.Destination))
			m.countError("check_route")
		}
	}

	if m.metrics != nil {
		m.metrics.CyclesTotal.Inc()
		m.metrics.CycleDuration.Observe(m.now().Sub(start).Seconds())
	}
	m.logger.Info("Monitoring cycle finished",
		zap.Int("routes", len(routes)),
		zap.Duration("took", m.now().Sub(start)))
}

func (m *Monitor) checkRoute(ctx context.Context, route *models.TrackedRoute) error {
	if m.metrics != nil {
		m.metrics.RoutesChecked.Inc()
	}

	flights, err := m.searcher.Search(ctx, route.Origin, route.Destination, "")
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	newBest := search.BestPrice(flights)
	if newBest == 0 {
		return fmt.Errorf("search returned no offers")
	}

	if m.shouldAlert(route.BestPrice, newBest) {
		text := format.Alert(route, route.BestPrice, newBest)
		if err := m.notifier.SendAlert(route.UserID, text); err != nil {
			m.logger.Error("Failed to send price alert",
				zap.Error(err),
				zap.String("route_id", route.ID),
				zap.Int64("user_id", route.UserID))
			m.countError("send_alert")
		} else if m.metrics != nil {
			m.metrics.AlertsSent.Inc()
		}
	}

	if err := m.storage.RecordRoutePrice(ctx, route.ID, newBest, m.now()); err != nil {
		return fmt.Errorf("failed to persist price: %w", err)
	}

	return nil
}

// shouldAlert reports whether the new observation is a large enough
// relative drop below the prior best price.
func (m *Monitor) shouldAlert(previousBest, newBest float64) bool {
	if previousBest <= 0 {
		return false
	}
	return newBest <= previousBest*(1-m.dropPercent/100)
}

func (m *Monitor) countError(operation string) {
	if m.metrics != nil {
		m.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	}
}
