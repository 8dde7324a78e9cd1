// Package db exports the request history to SQLite for ad-hoc analysis.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/history"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// QueryResult represents the result of a database query
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// Client represents a database client
type Client struct {
	db           *sql.DB
	driverName   string
	dataSource   string
	queryTimeout time.Duration
}

const historySchema = `
CREATE TABLE IF NOT EXISTS history (
	timestamp   INTEGER PRIMARY KEY,
	id          TEXT NOT NULL,
	handle      TEXT NOT NULL,
	time        TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER NOT NULL,
	status_text TEXT NOT NULL,
	size        INTEGER NOT NULL,
	hops        INTEGER NOT NULL,
	request_body  BLOB,
	response_body BLOB
)`

const upsertHistory = `
INSERT INTO history (timestamp, id, handle, time, duration_ms, method, url, status, status_text, size, hops, request_body, response_body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(timestamp) DO UPDATE SET
	id = excluded.id,
	handle = excluded.handle,
	time = excluded.time,
	duration_ms = excluded.duration_ms,
	method = excluded.method,
	url = excluded.url,
	status = excluded.status,
	status_text = excluded.status_text,
	size = excluded.size,
	hops = excluded.hops,
	request_body = excluded.request_body,
	response_body = excluded.response_body`

// NewClient creates a new database client from a connection string
func NewClient(connectionString string) (*Client, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errdef.Persist(err, "failed to open database")
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errdef.Persist(err, "failed to connect to database")
	}

	return &Client{
		db:           db,
		driverName:   driver,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ExportHistory upserts entries into the history table, creating it when
// needed, and returns the number of rows written. All rows are written in one
// transaction.
func (c *Client) ExportHistory(ctx context.Context, entries iter.Seq2[*history.Entry, error]) (int, error) {
	if _, err := c.db.ExecContext(ctx, historySchema); err != nil {
		return 0, errdef.Persist(err, "creating history table")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errdef.Persist(err, "starting export")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertHistory)
	if err != nil {
		return 0, errdef.Persist(err, "preparing export")
	}
	defer stmt.Close()

	n := 0
	for e, err := range entries {
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx,
			e.Timestamp,
			e.ID,
			e.HandleString(),
			e.Time().UTC().Format(time.RFC3339Nano),
			e.Duration.Milliseconds(),
			e.Request.Method,
			e.Request.URL,
			e.Response.Status,
			e.Response.StatusText,
			e.Response.Size,
			len(e.Hops),
			e.Request.Body,
			e.Response.Body,
		)
		if err != nil {
			return 0, errdef.Persist(err, "exporting entry %d", e.Timestamp)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, errdef.Persist(err, "committing export")
	}
	return n, nil
}

// Query executes a SQL query and returns the result
func (c *Client) Query(query string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any)
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string for better handling
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// parseConnectionString parses a connection string into driver and DSN
// Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - a bare file path
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	// Handle sqlite:// and sqlite: prefixes
	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}
	if connStr == "" {
		return "", "", errdef.New(errdef.ErrMalformedInput, "empty database path")
	}
	if scheme, _, ok := strings.Cut(connStr, "://"); ok {
		return "", "", errdef.New(errdef.ErrMalformedInput, "unsupported database scheme: %s", scheme)
	}
	return "sqlite3", connStr, nil
}
