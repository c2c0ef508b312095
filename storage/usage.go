package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Request outcomes recorded in the ledger.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusAborted = "aborted"
)

// UsageRecord describes one completed gateway request. It never holds
// message content.
type UsageRecord struct {
	ID               string
	Route            string
	Provider         string
	Model            string
	Status           string
	FinishReason     string
	DurationMS       int64
	PromptTokens     int64
	CompletionTokens int64
	StartedAt        time.Time
}

// RouteSummary aggregates the ledger for one route.
type RouteSummary struct {
	Route            string  `json:"route"`
	Requests         int64   `json:"requests"`
	Errors           int64   `json:"errors"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	AvgDurationMS    float64 `json:"avgDurationMs"`
}

type UsageStore struct {
	db *sql.DB
}

func NewUsageStore(dataDir string) (*UsageStore, error) {
	return openUsageStore(filepath.Join(dataDir, "usage.db"))
}

func openUsageStore(dsn string) (*UsageStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Requests finish concurrently; serialize writers on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &UsageStore{db: db}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (us *UsageStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		route TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_route ON requests(route);
	CREATE INDEX IF NOT EXISTS idx_requests_started ON requests(started_at);
	`

	if _, err := us.db.Exec(schema); err != nil {
		return err
	}

	if err := us.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds columns introduced after the first release.
func (us *UsageStore) migrateSchema() error {
	hasFinishReason, err := us.columnExists("requests", "finish_reason")
	if err != nil {
		return fmt.Errorf("failed to check for finish_reason column: %w", err)
	}

	if !hasFinishReason {
		if _, err := us.db.Exec(`ALTER TABLE requests ADD COLUMN finish_reason TEXT DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add finish_reason column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (us *UsageStore) columnExists(tableName, columnName string) (bool, error) {
	rows, err := us.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue any
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}

	return false, rows.Err()
}

func (us *UsageStore) Record(rec UsageRecord) error {
	query := `
	INSERT INTO requests (id, route, provider, model, status, finish_reason, duration_ms, prompt_tokens, completion_tokens, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := us.db.Exec(query,
		rec.ID,
		rec.Route,
		rec.Provider,
		rec.Model,
		rec.Status,
		rec.FinishReason,
		rec.DurationMS,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record request %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the newest records first.
func (us *UsageStore) Recent(limit int) ([]UsageRecord, error) {
	query := `
	SELECT id, route, provider, model, status, finish_reason, duration_ms, prompt_tokens, completion_tokens, started_at
	FROM requests
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := us.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		var finishReason sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.Route,
			&rec.Provider,
			&rec.Model,
			&rec.Status,
			&finishReason,
			&rec.DurationMS,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.StartedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.FinishReason = finishReason.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Summary aggregates all records per route, ordered by route.
func (us *UsageStore) Summary() ([]RouteSummary, error) {
	query := `
	SELECT route,
		COUNT(*),
		SUM(CASE WHEN status = 'ok' THEN 0 ELSE 1 END),
		SUM(prompt_tokens),
		SUM(completion_tokens),
		AVG(duration_ms)
	FROM requests
	GROUP BY route
	ORDER BY route
	`

	rows, err := us.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RouteSummary
	for rows.Next() {
		var s RouteSummary
		if err := rows.Scan(&s.Route, &s.Requests, &s.Errors, &s.PromptTokens, &s.CompletionTokens, &s.AvgDurationMS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (us *UsageStore) Close() error {
	return us.db.Close()
}
