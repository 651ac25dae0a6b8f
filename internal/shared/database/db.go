package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/lawquery/lexgate/internal/shared/models"
)

type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// LogAsk records a handled question
func (db *DB) LogAsk(ctx context.Context, entry *models.AskLog) error {
	query := `
		INSERT INTO ask_logs (
			id, client_id, endpoint, model, tier_label, degraded, cache_hit,
			latency_ms, status_code, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := db.conn.ExecContext(ctx,
		query,
		entry.ID,
		entry.ClientID,
		entry.Endpoint,
		entry.Model,
		entry.TierLabel,
		entry.Degraded,
		entry.CacheHit,
		entry.LatencyMs,
		entry.StatusCode,
		entry.ErrorMessage,
	)

	return err
}

// LogBan records a temporary ban for later review
func (db *DB) LogBan(ctx context.Context, event *models.BanEvent) error {
	query := `
		INSERT INTO ban_events (id, client_id, endpoint, duration_seconds)
		VALUES ($1, $2, $3, $4)
	`

	_, err := db.conn.ExecContext(ctx,
		query,
		event.ID,
		event.ClientID,
		event.Endpoint,
		event.DurationSeconds,
	)

	return err
}

// RecentBans returns bans issued in the given lookback window
func (db *DB) RecentBans(ctx context.Context, since time.Duration) ([]models.BanEvent, error) {
	query := `
		SELECT id, client_id, endpoint, duration_seconds, created_at
		FROM ban_events
		WHERE created_at > NOW() - $1::interval
		ORDER BY created_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, fmt.Sprintf("%d seconds", int(since.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var events []models.BanEvent
	for rows.Next() {
		var event models.BanEvent
		if err := rows.Scan(
			&event.ID,
			&event.ClientID,
			&event.Endpoint,
			&event.DurationSeconds,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
