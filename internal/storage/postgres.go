package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/flightbot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetOrCreateUser(ctx context.Context, id int64, username, firstName string) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_active_at = NOW()
		RETURNING id, username, first_name, preferences, created_at, last_active_at,
		          total_searches, total_bookings`

	user := &models.User{}
	var prefs []byte
	err := s.db.QueryRowContext(ctx, query, id, username, firstName).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&prefs,
		&user.CreatedAt,
		&user.LastActiveAt,
		&user.TotalSearches,
		&user.TotalBookings,
	)
	if err != nil {
		return nil, fmt.Errorf("error upserting user: %v", err)
	}

	if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
		return nil, fmt.Errorf("error decoding user preferences: %v", err)
	}

	return user, nil
}

func (s *PostgresStorage) IncrementSearches(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET total_searches = total_searches + 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error incrementing search counter: %v", err)
	}
	return nil
}

func (s *PostgresStorage) IncrementBookings(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET total_bookings = total_bookings + 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error incrementing booking counter: %v", err)
	}
	return nil
}

func (s *PostgresStorage) SetPreference(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET preferences = preferences || jsonb_build_object($2::text, $3::text) WHERE id = $1`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("error setting preference: %v", err)
	}
	return nil
}

func (s *PostgresStorage) AddTrackedRoute(ctx context.Context, route *models.TrackedRoute) error {
	history, err := json.Marshal(route.PriceHistory)
	if err != nil {
		return fmt.Errorf("error encoding price history: %v", err)
	}

	query := `
		INSERT INTO tracked_routes (id, user_id, origin, destination, max_price,
		                            check_frequency, active, price_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err = s.db.QueryRowContext(ctx, query,
		route.ID,
		route.UserID,
		route.Origin,
		route.Destination,
		nullFloat(route.MaxPrice),
		route.CheckFrequency,
		route.Active,
		history,
	).Scan(&route.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating tracked route: %v", err)
	}

	return nil
}

const routeColumns = `id, user_id, origin, destination, max_price, check_frequency,
	active, created_at, last_check, best_price, price_history`

func (s *PostgresStorage) GetActiveRoutes(ctx context.Context) ([]*models.TrackedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM tracked_routes WHERE active ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active routes: %v", err)
	}
	defer rows.Close()

	return scanRoutes(rows)
}

func (s *PostgresStorage) GetUserRoutes(ctx context.Context, userID int64) ([]*models.TrackedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM tracked_routes
		WHERE user_id = $1 AND active ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying user routes: %v", err)
	}
	defer rows.Close()

	return scanRoutes(rows)
}

func (s *PostgresStorage) GetRouteByPair(ctx context.Context, userID int64, origin, destination string) (*models.TrackedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM tracked_routes
		WHERE user_id = $1 AND origin = $2 AND destination = $3 AND active
		ORDER BY created_at DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, userID, origin, destination)
	route, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying route by pair: %v", err)
	}
	return route, nil
}

func (s *PostgresStorage) DeactivateRoute(ctx context.Context, routeID string, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tracked_routes SET active = FALSE WHERE id = $1 AND user_id = $2`,
		routeID, userID)
	if err != nil {
		return fmt.Errorf("error deactivating route: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) RecordRoutePrice(ctx context.Context, routeID string, price float64, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	// Row lock keeps concurrent cycles from clobbering each other's
	// history append.
	var historyRaw []byte
	var bestPrice sql.NullFloat64
	err = tx.QueryRowContext(ctx,
		`SELECT price_history, best_price FROM tracked_routes WHERE id = $1 FOR UPDATE`,
		routeID).Scan(&historyRaw, &bestPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error locking route: %v", err)
	}

	var history []models.PricePoint
	if err := json.Unmarshal(historyRaw, &history); err != nil {
		return fmt.Errorf("error decoding price history: %v", err)
	}

	history = append(history, models.PricePoint{Price: price, Timestamp: at})
	if len(history) > models.MaxPriceHistory {
		history = history[len(history)-models.MaxPriceHistory:]
	}

	best := price
	if bestPrice.Valid && bestPrice.Float64 < best {
		best = bestPrice.Float64
	}

	updated, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("error encoding price history: %v", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tracked_routes SET price_history = $2, best_price = $3, last_check = $4 WHERE id = $1`,
		routeID, updated, best, at)
	if err != nil {
		return fmt.Errorf("error updating route price: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing route update: %v", err)
	}

	return nil
}

func (s *PostgresStorage) LogAction(ctx context.Context, entry *models.ActionLog) error {
	// Parameters arrive pre-encoded; the result is plain text and gets
	// wrapped as a JSON string for the jsonb column.
	params := nullJSON(entry.Parameters)
	var result any
	if entry.Result != "" {
		encoded, err := json.Marshal(entry.Result)
		if err != nil {
			return fmt.Errorf("error encoding action result: %v", err)
		}
		result = encoded
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO action_logs (user_id, action, parameters, result, success)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		entry.UserID, entry.Action, params, result, entry.Success,
	).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return fmt.Errorf("error logging action: %v", err)
	}
	return nil
}

func (s *PostgresStorage) SaveSearch(ctx context.Context, rec *models.FlightSearchRecord) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("error encoding search results: %v", err)
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO flight_searches (user_id, origin, destination, departure_date, lowest_price, results)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, searched_at`,
		rec.UserID, rec.Origin, rec.Destination, rec.DepartureDate, rec.LowestPrice, results,
	).Scan(&rec.ID, &rec.SearchedAt)
	if err != nil {
		return fmt.Errorf("error saving search record: %v", err)
	}
	return nil
}

func (s *PostgresStorage) SearchPrices(ctx context.Context, origin, destination string, limit int) ([]float64, error) {
	query := `
		SELECT lowest_price FROM (
			SELECT lowest_price, searched_at FROM flight_searches
			WHERE origin = $1 AND destination = $2 AND lowest_price IS NOT NULL
			ORDER BY searched_at DESC
			LIMIT $3
		) recent ORDER BY searched_at ASC`

	rows, err := s.db.QueryContext(ctx, query, origin, destination, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying search prices: %v", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("error scanning search price: %v", err)
		}
		prices = append(prices, p)
	}

	return prices, rows.Err()
}

func (s *PostgresStorage) AddExpense(ctx context.Context, exp *models.ExpenseRecord) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO expense_records (user_id, amount, currency, category, description, flight_reference, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		exp.UserID, exp.Amount, exp.Currency, exp.Category, exp.Description, exp.FlightReference, exp.Date,
	).Scan(&exp.ID)
	if err != nil {
		return fmt.Errorf("error adding expense: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetUserExpenses(ctx context.Context, userID int64) ([]*models.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, amount, currency, category, description, flight_reference, date
		 FROM expense_records WHERE user_id = $1 ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying expenses: %v", err)
	}
	defer rows.Close()

	var expenses []*models.ExpenseRecord
	for rows.Next() {
		exp := &models.ExpenseRecord{}
		var description, flightRef sql.NullString
		err := rows.Scan(
			&exp.ID,
			&exp.UserID,
			&exp.Amount,
			&exp.Currency,
			&exp.Category,
			&description,
			&flightRef,
			&exp.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning expense: %v", err)
		}
		exp.Description = description.String
		exp.FlightReference = flightRef.String
		expenses = append(expenses, exp)
	}

	return expenses, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*models.TrackedRoute, error) {
	route := &models.TrackedRoute{}
	var maxPrice, bestPrice sql.NullFloat64
	var lastCheck sql.NullTime
	var historyRaw []byte

	err := row.Scan(
		&route.ID,
		&route.UserID,
		&route.Origin,
		&route.Destination,
		&maxPrice,
		&route.CheckFrequency,
		&route.Active,
		&route.CreatedAt,
		&lastCheck,
		&bestPrice,
		&historyRaw,
	)
	if err != nil {
		return nil, err
	}

	route.MaxPrice = maxPrice.Float64
	route.BestPrice = bestPrice.Float64
	route.LastCheck = lastCheck.Time
	if err := json.Unmarshal(historyRaw, &route.PriceHistory); err != nil {
		return nil, fmt.Errorf("error decoding price history: %v", err)
	}

	return route, nil
}

func scanRoutes(rows *sql.Rows) ([]*models.TrackedRoute, error) {
	var routes []*models.TrackedRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning route: %v", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func nullJSON(v string) any {
	if v == "" {
		return nil
	}
	return []byte(v)
}
