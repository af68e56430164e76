// Package forecast fits a linear trend to a route's observed prices and
// extrapolates it over fixed booking horizons.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/xaenox/flightbot/internal/models"
)

// ErrInsufficientData means there is not enough history to fit a trend.
var ErrInsufficientData = errors.New("insufficient price history for prediction")

// MinObservations is the minimum series length a fit requires.
const MinObservations = 3

// Horizons are the forward offsets, in days, at which prices are forecast.
var Horizons = []int{7, 14, 30}

// slopeThreshold separates a rising/falling trend from a stable one.
const slopeThreshold = 1.0

// Confidence reported with every prediction. A fixed placeholder rather
// than a goodness-of-fit measure, kept for parity with the established
// prediction output.
const Confidence = 0.75

type recommendation struct {
	advice        string
	bookingWindow string
}

var recommendations = map[models.Trend]recommendation{
	models.TrendRising:  {advice: "Book now before prices climb further", bookingWindow: "Next 7 days"},
	models.TrendFalling: {advice: "Wait, prices are heading down", bookingWindow: "In 2 weeks"},
	models.TrendStable:  {advice: "Prices are steady, book when convenient", bookingWindow: "Next 2-3 weeks"},
}

// Predict fits an ordinary least-squares line over the price series
// (index as the independent variable) and evaluates it at each horizon.
// The series must be chronologically ordered, oldest first.
func Predict(route string, prices []float64) (*models.PricePrediction, error) {
	n := len(prices)
	if n < MinObservations {
		return nil, fmt.Errorf("%w: have %d observations, need %d", ErrInsufficientData, n, MinObservations)
	}

	slope, intercept := fitLine(prices)

	predictions := make(map[string]float64, len(Horizons))
	for _, h := range Horizons {
		x := float64(n - 1 + h)
		predictions[fmt.Sprintf("%dd", h)] = round2(slope*x + intercept)
	}

	trend := classify(slope)
	rec := recommendations[trend]

	return &models.PricePrediction{
		Route:             route,
		CurrentPrice:      prices[n-1],
		Predictions:       predictions,
		Confidence:        Confidence,
		Trend:             trend,
		Recommendation:    rec.advice,
		BestBookingWindow: rec.bookingWindow,
	}, nil
}

func fitLine(prices []float64) (slope, intercept float64) {
	n := float64(len(prices))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range prices {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func classify(slope float64) models.Trend {
	switch {
	case slope > slopeThreshold:
		return models.TrendRising
	case slope < -slopeThreshold:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
