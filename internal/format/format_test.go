package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/flightbot/internal/models"
)

func TestAlert(t *testing.T) {
	route := &models.TrackedRoute{Origin: "LAX", Destination: "JFK"}

	text := Alert(route, 450, 399.5)

	assert.Contains(t, text, "PRICE DROP ALERT")
	assert.Contains(t, text, "LAX → JFK")
	assert.Contains(t, text, "$450.00")
	assert.Contains(t, text, "$399.50")
	assert.Contains(t, text, "Savings: $50.50")
}

func TestAlert_EscapesUserContent(t *testing.T) {
	route := &models.TrackedRoute{Origin: "<b>LAX", Destination: "JFK"}

	text := Alert(route, 450, 400)

	assert.NotContains(t, text, "<b>LAX")
	assert.Contains(t, text, "&lt;b&gt;LAX")
}

func TestSearchResults(t *testing.T) {
	dep := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	flights := []models.Flight{
		{
			FlightNumber:    "UA202",
			Airline:         "United",
			DepartureTime:   dep,
			ArrivalTime:     dep.Add(8*time.Hour + 45*time.Minute),
			Price:           425,
			DurationMinutes: 525,
			Stops:           1,
		},
	}

	text := SearchResults("LAX", "JFK", "2024-03-15", flights)

	assert.Contains(t, text, "LAX → JFK")
	assert.Contains(t, text, "United UA202")
	assert.Contains(t, text, "$425.00")
	assert.Contains(t, text, "8h 45m")
	assert.Contains(t, text, "1 stop")
}

func TestSearchResults_Empty(t *testing.T) {
	text := SearchResults("LAX", "JFK", "2024-03-15", nil)
	assert.Contains(t, text, "No flights found")
}

func TestPrediction(t *testing.T) {
	p := &models.PricePrediction{
		Route:        "NYC-LON",
		CurrentPrice: 440,
		Predictions: map[string]float64{
			"7d":  450,
			"14d": 425,
			"30d": 480,
		},
		Confidence:        0.75,
		Trend:             models.TrendRising,
		Recommendation:    "Book now before prices climb further",
		BestBookingWindow: "Next 7 days",
	}

	text := Prediction(p)

	assert.Contains(t, text, "NYC-LON")
	// Horizons render in a fixed order.
	i7 := strings.Index(text, "7d: $450.00")
	i14 := strings.Index(text, "14d: $425.00")
	i30 := strings.Index(text, "30d: $480.00")
	assert.True(t, i7 >= 0 && i14 > i7 && i30 > i14, "horizons out of order: %s", text)
	assert.Contains(t, text, "Confidence:</b> 75%")
	assert.Contains(t, text, "rising")
}

func TestTrackedRoutes(t *testing.T) {
	assert.Contains(t, TrackedRoutes(nil), "/track")

	routes := []*models.TrackedRoute{
		{Origin: "LAX", Destination: "JFK", BestPrice: 425, MaxPrice: 500},
	}
	text := TrackedRoutes(routes)
	assert.Contains(t, text, "LAX-JFK")
	assert.Contains(t, text, "$425.00")
	assert.Contains(t, text, "$500.00")
}

func TestExpenses(t *testing.T) {
	assert.Contains(t, Expenses(nil), "No expenses")

	expenses := []*models.ExpenseRecord{
		{Amount: 425, Currency: "USD", Category: "flights"},
		{Amount: 80, Currency: "USD", Category: "transport", Description: "airport taxi"},
	}
	text := Expenses(expenses)
	assert.Contains(t, text, "425.00 USD")
	assert.Contains(t, text, "airport taxi")
	assert.Contains(t, text, "505.00 USD")
}
