package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/flightbot/internal/forecast"
	"github.com/xaenox/flightbot/internal/format"
	"github.com/xaenox/flightbot/internal/models"
	"github.com/xaenox/flightbot/internal/search"
	"github.com/xaenox/flightbot/internal/session"
	"github.com/xaenox/flightbot/internal/storage"
	"go.uber.org/zap"
)

// Features are the runtime toggles the command surface honors.
type Features struct {
	AutoBooking     bool
	Predictions     bool
	ExpenseTracking bool
	WeatherAlerts   bool
}

type Bot struct {
	api              *tgbotapi.BotAPI
	storage          storage.Storage
	searcher         search.Searcher
	sessions         *session.Manager
	features         Features
	maxBookingAmount float64
	checkInterval    int
	logger           *zap.Logger
}

func New(token string, store storage.Storage, searcher search.Searcher, sessions *session.Manager,
	features Features, maxBookingAmount float64, checkIntervalMinutes int, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:              api,
		storage:          store,
		searcher:         searcher,
		sessions:         sessions,
		features:         features,
		maxBookingAmount: maxBookingAmount,
		checkInterval:    checkIntervalMinutes,
		logger:           logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				go b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// SendAlert delivers a monitoring alert to the user's chat. It
// implements monitor.Notifier.
func (b *Bot) SendAlert(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if _, err := b.storage.GetOrCreateUser(ctx, message.From.ID, message.From.UserName, message.From.FirstName); err != nil {
		b.logger.Error("Failed to upsert user",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	b.handleText(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "search":
		b.startFlow(message, session.ActionSearch)
	case "track":
		b.startFlow(message, session.ActionTrack)
	case "predict":
		if !b.features.Predictions {
			b.sendMessage(message.Chat.ID, "Price predictions are disabled.")
			return
		}
		b.startFlow(message, session.ActionPredict)
	case "alerts":
		b.handleAlerts(ctx, message)
	case "book":
		b.handleBook(ctx, message)
	case "expenses":
		b.handleExpenses(ctx, message)
	case "settings":
		b.handleSettings(ctx, message)
	case "report":
		b.handleReport(ctx, message)
	case "cancel":
		b.handleCancel(message)
	case "help":
		b.handleHelp(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge the button press so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Error("Failed to answer callback query", zap.Error(err))
	}

	if query.Message == nil {
		return
	}

	message := &tgbotapi.Message{
		From: query.From,
		Chat: query.Message.Chat,
	}

	switch query.Data {
	case "search":
		b.startFlow(message, session.ActionSearch)
	case "track":
		b.startFlow(message, session.ActionTrack)
	case "predict":
		if !b.features.Predictions {
			b.sendMessage(message.Chat.ID, "Price predictions are disabled.")
			return
		}
		b.startFlow(message, session.ActionPredict)
	case "alerts":
		b.handleAlerts(ctx, message)
	case "expenses":
		b.handleExpenses(ctx, message)
	case "report":
		b.handleReport(ctx, message)
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	effect := b.sessions.OnText(message.From.ID, message.Text)

	switch effect.Kind {
	case session.NoSessionActive:
		b.sendMessage(message.Chat.ID, "Please use /start to begin or choose an action from the menu.")
	case session.PromptNext:
		b.sendMessage(message.Chat.ID, effect.Prompt)
	case session.Complete:
		b.dispatchFlow(ctx, message, effect)
	}
}

func (b *Bot) dispatchFlow(ctx context.Context, message *tgbotapi.Message, effect session.Effect) {
	switch effect.Action {
	case session.ActionSearch:
		b.runSearch(ctx, message, effect.Params)
	case session.ActionTrack:
		b.createTrackedRoute(ctx, message, effect.Params)
	case session.ActionPredict:
		b.runPrediction(ctx, message, effect.Params)
	}
}

func (b *Bot) startFlow(message *tgbotapi.Message, action session.Action) {
	prompt := b.sessions.Start(message.From.ID, action)
	b.sendMessage(message.Chat.ID, prompt)
}

func (b *Bot) runSearch(ctx context.Context, message *tgbotapi.Message, params map[string]string) {
	origin := params["origin"]
	destination := params["destination"]
	date := params["date"]

	b.sendMessage(message.Chat.ID, "🔍 Searching flights, one moment...")

	flights, err := b.searcher.Search(ctx, origin, destination, date)
	if err != nil {
		b.logger.Error("Flight search failed",
			zap.Error(err),
			zap.String("origin", origin),
			zap.String("destination", destination))
		b.logAction(ctx, message.From.ID, models.ActionSearchFlights, params, "", false)
		b.sendErrorMessage(message.Chat.ID, "The flight search failed. Please try /search again.")
		return
	}

	rec := &models.FlightSearchRecord{
		UserID:        message.From.ID,
		Origin:        origin,
		Destination:   destination,
		DepartureDate: date,
		LowestPrice:   search.BestPrice(flights),
		Results:       flights,
	}
	if err := b.storage.SaveSearch(ctx, rec); err != nil {
		b.logger.Error("Failed to save search record",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
	}
	if err := b.storage.IncrementSearches(ctx, message.From.ID); err != nil {
		b.logger.Error("Failed to bump search counter",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
	}
	b.logAction(ctx, message.From.ID, models.ActionSearchFlights, params,
		fmt.Sprintf("%d offers", len(flights)), true)

	text := format.SearchResults(origin, destination, date, flights)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Track This Route", "track"),
			tgbotapi.NewInlineKeyboardButtonData("📊 View Predictions", "predict"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 New Search", "search"),
		),
	)
	b.sendHTMLWithKeyboard(message.Chat.ID, text, &keyboard)
}

func (b *Bot) createTrackedRoute(ctx context.Context, message *tgbotapi.Message, params map[string]string) {
	parts := strings.SplitN(params["route"], "-", 2)
	origin, destination := parts[0], parts[1]

	var maxPrice float64
	if raw := params["max_price"]; raw != "" {
		maxPrice, _ = strconv.ParseFloat(raw, 64)
	}

	route := &models.TrackedRoute{
		ID:             uuid.New().String(),
		UserID:         message.From.ID,
		Origin:         origin,
		Destination:    destination,
		MaxPrice:       maxPrice,
		CheckFrequency: b.checkInterval,
		Active:         true,
	}

	if err := b.storage.AddTrackedRoute(ctx, route); err != nil {
		b.logger.Error("Failed to create tracked route",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.logAction(ctx, message.From.ID, models.ActionTrackRoute, params, "", false)
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save this route. Please try /track again.")
		return
	}
	b.logAction(ctx, message.From.ID, models.ActionTrackRoute, params, route.ID, true)

	text := fmt.Sprintf("📍 Now tracking <code>%s-%s</code>.\nI'll check prices every %d minutes and alert you on drops.",
		format.Escape(origin), format.Escape(destination), route.CheckFrequency)
	b.sendHTML(message.Chat.ID, text)
}

func (b *Bot) runPrediction(ctx context.Context, message *tgbotapi.Message, params map[string]string) {
	routeName := params["route"]
	parts := strings.SplitN(routeName, "-", 2)
	origin, destination := parts[0], parts[1]

	b.sendMessage(message.Chat.ID, "📊 Running price prediction analysis...")

	prices, err := b.priceSeries(ctx, message.From.ID, origin, destination)
	if err != nil {
		b.logger.Error("Failed to load price series",
			zap.Error(err),
			zap.String("route", routeName))
		b.logAction(ctx, message.From.ID, models.ActionPredictPrices, params, "", false)
		b.sendErrorMessage(message.Chat.ID, "I couldn't load price history for this route. Please try again later.")
		return
	}

	prediction, err := forecast.Predict(routeName, prices)
	if errors.Is(err, forecast.ErrInsufficientData) {
		b.logAction(ctx, message.From.ID, models.ActionPredictPrices, params, "insufficient data", false)
		b.sendMessage(message.Chat.ID,
			"There isn't enough price history for this route yet. Track it with /track and check back in a few days.")
		return
	}
	if err != nil {
		b.logger.Error("Prediction failed",
			zap.Error(err),
			zap.String("route", routeName))
		b.logAction(ctx, message.From.ID, models.ActionPredictPrices, params, "", false)
		b.sendErrorMessage(message.Chat.ID, "The prediction failed. Please try /predict again.")
		return
	}
	b.logAction(ctx, message.From.ID, models.ActionPredictPrices, params, string(prediction.Trend), true)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Track This Route", "track"),
			tgbotapi.NewInlineKeyboardButtonData("🔍 Search Flights Now", "search"),
		),
	)
	b.sendHTMLWithKeyboard(message.Chat.ID, format.Prediction(prediction), &keyboard)
}

// priceSeries loads the forecast input: the user's tracked-route history
// when one exists, otherwise recent search snapshots for the pair.
func (b *Bot) priceSeries(ctx context.Context, userID int64, origin, destination string) ([]float64, error) {
	route, err := b.storage.GetRouteByPair(ctx, userID, origin, destination)
	if err == nil && len(route.PriceHistory) >= forecast.MinObservations {
		prices := make([]float64, len(route.PriceHistory))
		for i, point := range route.PriceHistory {
			prices[i] = point.Price
		}
		return prices, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return b.storage.SearchPrices(ctx, origin, destination, models.MaxPriceHistory)
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✈️ Search Flights", "search"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Track Route", "track"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Price Predictions", "predict"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 My Alerts", "alerts"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Expense Tracking", "expenses"),
		),
	)

	welcome := fmt.Sprintf(`🤖 <b>Welcome to the Flight Assistant!</b>

Hello %s! I can help you find and track flight deals.

<b>What I can do:</b>
• Search flights with smart recommendations
• Track routes and alert you on price drops
• Predict future prices from history
• Track travel expenses

Choose an action below or use /help for commands.`, format.Escape(message.From.FirstName))

	b.sendHTMLWithKeyboard(message.Chat.ID, welcome, &keyboard)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Show the main menu
/search - Search flights
/track - Track a route for price drops
/alerts - List your tracked routes
/predict - Predict prices for a route
/book - Booking options
/expenses - Track travel expenses
/settings - Your settings
/report - Your activity report
/cancel - Cancel the current flow
/help - Show this help message`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleAlerts(ctx context.Context, message *tgbotapi.Message) {
	routes, err := b.storage.GetUserRoutes(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to get user routes",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your tracked routes.")
		return
	}

	b.sendHTML(message.Chat.ID, format.TrackedRoutes(routes))
}

func (b *Bot) handleBook(ctx context.Context, message *tgbotapi.Message) {
	if !b.features.AutoBooking {
		b.sendMessage(message.Chat.ID,
			"Auto-booking is disabled. Search with /search and book through the airline's link.")
		return
	}

	b.logAction(ctx, message.From.ID, models.ActionBookFlight, nil, "", true)
	if err := b.storage.IncrementBookings(ctx, message.From.ID); err != nil {
		b.logger.Error("Failed to bump booking counter",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
	}
	b.sendMessage(message.Chat.ID,
		fmt.Sprintf("Auto-booking is enabled up to $%.2f. Run a /search and I'll book the best offer under your limit.",
			b.maxBookingAmount))
}

func (b *Bot) handleExpenses(ctx context.Context, message *tgbotapi.Message) {
	if !b.features.ExpenseTracking {
		b.sendMessage(message.Chat.ID, "Expense tracking is disabled.")
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 {
		expenses, err := b.storage.GetUserExpenses(ctx, message.From.ID)
		if err != nil {
			b.logger.Error("Failed to get expenses",
				zap.Error(err),
				zap.Int64("user_id", message.From.ID))
			b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your expenses.")
			return
		}
		b.sendHTML(message.Chat.ID, format.Expenses(expenses))
		return
	}

	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		b.sendMessage(message.Chat.ID, "Usage: /expenses <amount> [category] [description], e.g. /expenses 425 flights LAX trip")
		return
	}

	exp := &models.ExpenseRecord{
		UserID:   message.From.ID,
		Amount:   amount,
		Currency: "USD",
		Category: "travel",
		Date:     time.Now(),
	}
	if len(args) > 1 {
		exp.Category = args[1]
	}
	if len(args) > 2 {
		exp.Description = strings.Join(args[2:], " ")
	}

	if err := b.storage.AddExpense(ctx, exp); err != nil {
		b.logger.Error("Failed to add expense",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.logAction(ctx, message.From.ID, models.ActionTrackExpense, nil, "", false)
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save this expense.")
		return
	}
	b.logAction(ctx, message.From.ID, models.ActionTrackExpense,
		map[string]string{"amount": args[0], "category": exp.Category}, "", true)

	b.sendMessage(message.Chat.ID, fmt.Sprintf("Recorded %.2f %s for %s.", exp.Amount, exp.Currency, exp.Category))
}

func (b *Bot) handleSettings(ctx context.Context, message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	if len(args) == 2 {
		if err := b.storage.SetPreference(ctx, message.From.ID, args[0], args[1]); err != nil {
			b.logger.Error("Failed to set preference",
				zap.Error(err),
				zap.Int64("user_id", message.From.ID))
			b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save that setting.")
			return
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Saved %s = %s.", args[0], args[1]))
		return
	}

	text := fmt.Sprintf(`<b>Settings</b>

Auto-booking: %s
Predictions: %s
Expense tracking: %s
Weather alerts: %s

Set a preference with /settings &lt;key&gt; &lt;value&gt;.`,
		onOff(b.features.AutoBooking),
		onOff(b.features.Predictions),
		onOff(b.features.ExpenseTracking),
		onOff(b.features.WeatherAlerts))
	b.sendHTML(message.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, message *tgbotapi.Message) {
	user, err := b.storage.GetOrCreateUser(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		b.logger.Error("Failed to get user",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build your report.")
		return
	}

	routes, err := b.storage.GetUserRoutes(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to get user routes",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		routes = nil
	}

	b.logAction(ctx, message.From.ID, models.ActionReport, nil, "", true)
	b.sendHTML(message.Chat.ID, format.Report(user, routes))
}

func (b *Bot) handleCancel(message *tgbotapi.Message) {
	if b.sessions.Cancel(message.From.ID) {
		b.sendMessage(message.Chat.ID, "Cancelled. Use /start to begin again.")
		return
	}
	b.sendMessage(message.Chat.ID, "Nothing to cancel.")
}

func (b *Bot) logAction(ctx context.Context, userID int64, action models.ActionType,
	params map[string]string, result string, success bool) {
	entry := &models.ActionLog{
		UserID:  userID,
		Action:  action,
		Success: success,
		Result:  result,
	}
	if params != nil {
		if encoded, err := json.Marshal(params); err == nil {
			entry.Parameters = string(encoded)
		}
	}

	if err := b.storage.LogAction(ctx, entry); err != nil {
		b.logger.Error("Failed to log action",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("action", string(action)))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendHTMLWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
