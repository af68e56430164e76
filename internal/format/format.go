// Package format renders outbound Telegram messages. Every function is
// a pure function of its inputs producing Telegram-HTML markup.
package format

import (
	"fmt"
	"html"
	"strings"

	"github.com/xaenox/flightbot/internal/models"
)

// Escape sanitizes user-controlled text for Telegram HTML parse mode.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Alert renders a price-drop notification for a tracked route.
func Alert(route *models.TrackedRoute, previousBest, newBest float64) string {
	var b strings.Builder
	b.WriteString("🚨 <b>PRICE DROP ALERT!</b>\n\n")
	fmt.Fprintf(&b, "Route: %s → %s\n", Escape(route.Origin), Escape(route.Destination))
	fmt.Fprintf(&b, "Previous best: $%.2f\n", previousBest)
	fmt.Fprintf(&b, "Current best: $%.2f\n", newBest)
	fmt.Fprintf(&b, "Savings: $%.2f\n\n", previousBest-newBest)
	b.WriteString("<i>Book now before prices go back up!</i>")
	return b.String()
}

// SearchResults renders a ranked offer list, cheapest first.
func SearchResults(origin, destination, date string, flights []models.Flight) string {
	var b strings.Builder
	b.WriteString("✈️ <b>Flight Search Results</b>\n")
	fmt.Fprintf(&b, "%s → %s on %s\n\n", Escape(origin), Escape(destination), Escape(date))

	if len(flights) == 0 {
		b.WriteString("No flights found for this route and date.")
		return b.String()
	}

	for i, f := range flights {
		fmt.Fprintf(&b, "%d. <b>%s %s</b> | $%.2f\n",
			i+1, Escape(f.Airline), Escape(f.FlightNumber), f.Price)
		fmt.Fprintf(&b, "   %s → %s (%s",
			f.DepartureTime.Format("15:04"),
			f.ArrivalTime.Format("15:04"),
			formatDuration(f.DurationMinutes))
		if f.Stops > 0 {
			fmt.Fprintf(&b, ", %d stop(s)", f.Stops)
		}
		b.WriteString(")\n")
	}

	b.WriteString("\n<i>Prices may change. Book soon for best rates!</i>")
	return b.String()
}

// Prediction renders a price forecast.
func Prediction(p *models.PricePrediction) string {
	var b strings.Builder
	b.WriteString("📊 <b>Price Prediction Analysis</b>\n")
	fmt.Fprintf(&b, "Route: <code>%s</code>\n\n", Escape(p.Route))
	fmt.Fprintf(&b, "Current price: $%.2f\n\n", p.CurrentPrice)

	b.WriteString("📈 <b>Price Forecast:</b>\n")
	for _, horizon := range []string{"7d", "14d", "30d"} {
		if price, ok := p.Predictions[horizon]; ok {
			fmt.Fprintf(&b, "• %s: $%.2f\n", horizon, price)
		}
	}

	fmt.Fprintf(&b, "\n%s <b>Trend:</b> %s\n", trendIcon(p.Trend), p.Trend)
	fmt.Fprintf(&b, "⚡ <b>Confidence:</b> %.0f%%\n\n", p.Confidence*100)
	fmt.Fprintf(&b, "💡 <b>Recommendation:</b> %s\n", Escape(p.Recommendation))
	fmt.Fprintf(&b, "🎯 <b>Best Booking Window:</b> %s", Escape(p.BestBookingWindow))
	return b.String()
}

// TrackedRoutes renders the user's active routes.
func TrackedRoutes(routes []*models.TrackedRoute) string {
	if len(routes) == 0 {
		return "You aren't tracking any routes yet. Use /track to add one."
	}

	var b strings.Builder
	b.WriteString("🔔 <b>Your tracked routes:</b>\n\n")
	for _, r := range routes {
		fmt.Fprintf(&b, "• <code>%s-%s</code>", Escape(r.Origin), Escape(r.Destination))
		if r.BestPrice > 0 {
			fmt.Fprintf(&b, " — best seen $%.2f", r.BestPrice)
		}
		if r.MaxPrice > 0 {
			fmt.Fprintf(&b, " (alert under $%.2f)", r.MaxPrice)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n<i>I'll alert you when a tracked price drops.</i>")
	return b.String()
}

// Expenses renders a user's expense history with a total per currency.
func Expenses(expenses []*models.ExpenseRecord) string {
	if len(expenses) == 0 {
		return "No expenses recorded yet."
	}

	totals := make(map[string]float64)
	var b strings.Builder
	b.WriteString("💰 <b>Your travel expenses:</b>\n\n")
	for _, e := range expenses {
		fmt.Fprintf(&b, "• %.2f %s — %s", e.Amount, Escape(e.Currency), Escape(e.Category))
		if e.Description != "" {
			fmt.Fprintf(&b, " (%s)", Escape(e.Description))
		}
		b.WriteString("\n")
		totals[e.Currency] += e.Amount
	}

	b.WriteString("\n<b>Total:</b>")
	for currency, total := range totals {
		fmt.Fprintf(&b, " %.2f %s", total, Escape(currency))
	}
	return b.String()
}

// Report renders a short usage summary.
func Report(user *models.User, routes []*models.TrackedRoute) string {
	var b strings.Builder
	b.WriteString("📋 <b>Your activity report</b>\n\n")
	fmt.Fprintf(&b, "Searches: %d\n", user.TotalSearches)
	fmt.Fprintf(&b, "Bookings: %d\n", user.TotalBookings)
	fmt.Fprintf(&b, "Tracked routes: %d\n", len(routes))
	fmt.Fprintf(&b, "Member since: %s", user.CreatedAt.Format("2006-01-02"))
	return b.String()
}

func trendIcon(trend models.Trend) string {
	switch trend {
	case models.TrendRising:
		return "📈"
	case models.TrendFalling:
		return "📉"
	default:
		return "➡️"
	}
}

func formatDuration(minutes int) string {
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
