package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/flightbot/internal/models"
)

func TestStaticSearcher_Deterministic(t *testing.T) {
	s := NewStaticSearcher()
	ctx := context.Background()

	first, err := s.Search(ctx, "LAX", "JFK", "2024-03-15")
	require.NoError(t, err)
	second, err := s.Search(ctx, "LAX", "JFK", "2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	for _, f := range first {
		assert.Equal(t, "LAX", f.Origin)
		assert.Equal(t, "JFK", f.Destination)
		assert.Greater(t, f.Price, 0.0)
		assert.True(t, f.ArrivalTime.After(f.DepartureTime))
	}

	// Different routes produce different offers.
	other, err := s.Search(ctx, "SFO", "SEA", "2024-03-15")
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Price, other[0].Price)
}

func TestStaticSearcher_BadDateStillSearches(t *testing.T) {
	s := NewStaticSearcher()

	flights, err := s.Search(context.Background(), "LAX", "JFK", "next week")
	require.NoError(t, err)
	assert.NotEmpty(t, flights)
}

func TestBestPrice(t *testing.T) {
	assert.Equal(t, 0.0, BestPrice(nil))

	flights := []models.Flight{
		{Price: 450},
		{Price: 425},
		{Price: 520},
	}
	assert.Equal(t, 425.0, BestPrice(flights))
}

func TestParseFlights(t *testing.T) {
	raw := `[{"flight_number":"AA101","airline":"American Airlines","price":425.5,"currency":"USD"}]`

	flights, err := parseFlights(raw)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "AA101", flights[0].FlightNumber)
	assert.Equal(t, 425.5, flights[0].Price)
}

func TestParseFlights_CodeFence(t *testing.T) {
	raw := "```json\n[{\"flight_number\":\"UA202\",\"price\":399}]\n```"

	flights, err := parseFlights(raw)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "UA202", flights[0].FlightNumber)
}

func TestParseFlights_Invalid(t *testing.T) {
	_, err := parseFlights("I could not find any flights, sorry!")
	assert.Error(t, err)

	_, err = parseFlights("[]")
	assert.Error(t, err)
}
