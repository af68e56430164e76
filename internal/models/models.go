package models

import "time"

// Trend classifies the direction of a fitted price curve.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// ActionType identifies a logged user action.
type ActionType string

const (
	ActionSearchFlights ActionType = "search_flights"
	ActionTrackRoute    ActionType = "track_route"
	ActionPredictPrices ActionType = "predict_prices"
	ActionBookFlight    ActionType = "book_flight"
	ActionTrackExpense  ActionType = "track_expense"
	ActionReport        ActionType = "generate_report"
)

// Flight is a single search offer returned by a flight provider.
type Flight struct {
	FlightNumber    string    `json:"flight_number"`
	Airline         string    `json:"airline"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	Stops           int       `json:"stops"`
	DurationMinutes int       `json:"duration_minutes"`
	BookingURL      string    `json:"booking_url,omitempty"`
}

// User represents a bot user with their preferences and counters.
type User struct {
	ID            int64             `json:"id"`
	Username      string            `json:"username,omitempty"`
	FirstName     string            `json:"first_name,omitempty"`
	Preferences   map[string]string `json:"preferences"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActiveAt  time.Time         `json:"last_active_at"`
	TotalSearches int               `json:"total_searches"`
	TotalBookings int               `json:"total_bookings"`
}

// PricePoint is one observed price on a tracked route.
// Entries are immutable once appended and ordered chronologically.
type PricePoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxPriceHistory bounds a tracked route's rolling history window.
const MaxPriceHistory = 100

// TrackedRoute is a route under periodic price surveillance.
// BestPrice is the lowest price ever observed for the route and is
// monotonically non-increasing until explicitly reset.
type TrackedRoute struct {
	ID             string       `json:"id"`
	UserID         int64        `json:"user_id"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	MaxPrice       float64      `json:"max_price,omitempty"`
	CheckFrequency int          `json:"check_frequency"`
	Active         bool         `json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	LastCheck      time.Time    `json:"last_check,omitempty"`
	BestPrice      float64      `json:"best_price,omitempty"`
	PriceHistory   []PricePoint `json:"price_history"`
}

// PricePrediction is a derived forecast for a route, produced fresh per
// request and never persisted.
type PricePrediction struct {
	Route             string             `json:"route"`
	CurrentPrice      float64            `json:"current_price"`
	Predictions       map[string]float64 `json:"predictions"`
	Confidence        float64            `json:"confidence"`
	Trend             Trend              `json:"trend"`
	Recommendation    string             `json:"recommendation"`
	BestBookingWindow string             `json:"best_booking_window"`
}

// ActionLog is an append-only audit record of a user action.
type ActionLog struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Action     ActionType `json:"action"`
	Parameters string     `json:"parameters,omitempty"`
	Result     string     `json:"result,omitempty"`
	Success    bool       `json:"success"`
	Timestamp  time.Time  `json:"timestamp"`
}

// FlightSearchRecord is a historical snapshot of one search.
type FlightSearchRecord struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date"`
	LowestPrice   float64   `json:"lowest_price"`
	Results       []Flight  `json:"results"`
	SearchedAt    time.Time `json:"searched_at"`
}

// ExpenseRecord is a travel expense tracked by a user.
type ExpenseRecord struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Category        string    `json:"category"`
	Description     string    `json:"description,omitempty"`
	FlightReference string    `json:"flight_reference,omitempty"`
	Date            time.Time `json:"date"`
}
