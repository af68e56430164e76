package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/flightbot/internal/agent"
	"go.uber.org/zap"
)

type stubRunner struct {
	response string
	err      error
}

func (s *stubRunner) RunTask(ctx context.Context, role agent.Role, instructions, contextData string) (string, error) {
	return s.response, s.err
}

func TestAgentSearcher_ParsesAndSortsByPrice(t *testing.T) {
	runner := &stubRunner{response: `[
		{"flight_number":"DL205","airline":"Delta","price":520},
		{"flight_number":"AA101","airline":"American Airlines","price":425}
	]`}
	s := NewAgentSearcher(runner, zap.NewNop())

	flights, err := s.Search(context.Background(), "LAX", "JFK", "2024-03-15")
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, "AA101", flights[0].FlightNumber, "cheapest first")
	assert.Equal(t, "DL205", flights[1].FlightNumber)
}

func TestAgentSearcher_FallsBackOnRunnerError(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("model unavailable")}
	s := NewAgentSearcher(runner, zap.NewNop())

	flights, err := s.Search(context.Background(), "LAX", "JFK", "2024-03-15")
	require.NoError(t, err)
	assert.NotEmpty(t, flights, "static provider covers runner failures")
}

func TestAgentSearcher_FallsBackOnGarbageResponse(t *testing.T) {
	runner := &stubRunner{response: "sorry, no flights today"}
	s := NewAgentSearcher(runner, zap.NewNop())

	flights, err := s.Search(context.Background(), "LAX", "JFK", "2024-03-15")
	require.NoError(t, err)
	assert.NotEmpty(t, flights)
}
