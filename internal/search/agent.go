package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xaenox/flightbot/internal/agent"
	"github.com/xaenox/flightbot/internal/models"
	"go.uber.org/zap"
)

const searchInstructions = `Search for flights from %s to %s on %s.
Find at least 3 options and rank them by price, duration and departure
time convenience.

Return ONLY a JSON array with this structure:
[
    {
        "flight_number": "AA101",
        "airline": "American Airlines",
        "origin": "%s",
        "destination": "%s",
        "departure_time": "2024-03-15T08:00:00Z",
        "arrival_time": "2024-03-15T16:30:00Z",
        "price": 425.00,
        "currency": "USD",
        "stops": 0,
        "duration_minutes": 510
    }
]`

// AgentSearcher asks the search-specialist role for offers and parses
// its JSON output. Malformed responses fall back to the static provider
// so a flaky model never breaks a monitoring cycle.
type AgentSearcher struct {
	runner   agent.Runner
	fallback *StaticSearcher
	logger   *zap.Logger
}

func NewAgentSearcher(runner agent.Runner, logger *zap.Logger) *AgentSearcher {
	return &AgentSearcher{
		runner:   runner,
		fallback: NewStaticSearcher(),
		logger:   logger,
	}
}

func (s *AgentSearcher) Search(ctx context.Context, origin, destination, date string) ([]models.Flight, error) {
	instructions := fmt.Sprintf(searchInstructions, origin, destination, date, origin, destination)

	response, err := s.runner.RunTask(ctx, agent.RoleSearchSpecialist, instructions, "")
	if err != nil {
		s.logger.Warn("Agent search failed, using static provider",
			zap.Error(err),
			zap.String("origin", origin),
			zap.String("destination", destination))
		return s.fallback.Search(ctx, origin, destination, date)
	}

	flights, err := parseFlights(response)
	if err != nil {
		s.logger.Warn("Failed to parse agent search response, using static provider",
			zap.Error(err),
			zap.String("response", response))
		return s.fallback.Search(ctx, origin, destination, date)
	}

	sort.Slice(flights, func(i, j int) bool { return flights[i].Price < flights[j].Price })
	return flights, nil
}

func parseFlights(response string) ([]models.Flight, error) {
	// Models often wrap JSON in a code fence.
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var flights []models.Flight
	if err := json.Unmarshal([]byte(response), &flights); err != nil {
		return nil, fmt.Errorf("failed to parse flight list: %w", err)
	}
	if len(flights) == 0 {
		return nil, fmt.Errorf("agent returned an empty flight list")
	}
	return flights, nil
}
