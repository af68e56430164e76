package search

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/xaenox/flightbot/internal/models"
)

var carriers = []struct {
	code string
	name string
}{
	{"AA", "American Airlines"},
	{"UA", "United"},
	{"DL", "Delta"},
}

// StaticSearcher produces deterministic offers seeded by the route, for
// offline development and as a provider of last resort.
type StaticSearcher struct{}

func NewStaticSearcher() *StaticSearcher {
	return &StaticSearcher{}
}

func (s *StaticSearcher) Search(ctx context.Context, origin, destination, date string) ([]models.Flight, error) {
	seed := routeSeed(origin, destination)
	base := 300.0 + float64(seed%300)

	departure, err := time.Parse("2006-01-02", date)
	if err != nil {
		departure = time.Now().AddDate(0, 0, 7)
	}
	departure = departure.Add(8 * time.Hour)

	flights := make([]models.Flight, 0, len(carriers))
	for i, c := range carriers {
		duration := 420 + int(seed%120) + i*15
		dep := departure.Add(time.Duration(i) * 75 * time.Minute)
		flights = append(flights, models.Flight{
			FlightNumber:    fmt.Sprintf("%s%d", c.code, 100+seed%800+uint32(i*101)),
			Airline:         c.name,
			Origin:          origin,
			Destination:     destination,
			DepartureTime:   dep,
			ArrivalTime:     dep.Add(time.Duration(duration) * time.Minute),
			Price:           round2(base + float64(i)*27.5),
			Currency:        "USD",
			Stops:           i % 2,
			DurationMinutes: duration,
		})
	}

	return flights, nil
}

func routeSeed(origin, destination string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(origin))
	h.Write([]byte("-"))
	h.Write([]byte(destination))
	return h.Sum32() % 1000
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
