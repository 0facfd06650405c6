package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// SQL dialects, named after their database/sql driver.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStore keeps results in the RUN_RESULT table.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// OpenSQL opens a database, verifies the connection and creates the schema.
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s store requires a dsn", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// single writer avoids SQLITE_BUSY under concurrent runs
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", dialect, err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database without touching the schema.
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the RUN_RESULT table and index if absent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, q := range []query{queryCreateTable, queryCreateIndex} {
		if _, err := s.db.ExecContext(ctx, q.Query); err != nil {
			return fmt.Errorf("%s: creating schema: %w", q.ID, err)
		}
	}
	return nil
}

// Save inserts a result. Existing IDs are rejected with ErrExists.
func (s *SQLStore) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, queryExistsResult.Query, rec.ID).Scan(&count); err != nil {
		return fmt.Errorf("%s: %w", queryExistsResult.ID, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, queryInsertResult.Query,
		rec.ID, rec.WorkflowType, rec.Status, rec.Steps, createdAt.UTC().UnixMilli(), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("%s: %w", queryInsertResult.ID, err)
	}
	return nil
}

// Get loads a result by ID.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var (
		rec       Record
		createdAt int64
		payload   string
	)
	err := s.db.QueryRowContext(ctx, queryGetResult.Query, id).
		Scan(&rec.ID, &rec.WorkflowType, &rec.Status, &rec.Steps, &createdAt, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%s: %w", queryGetResult.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.Payload = []byte(payload)
	return &rec, nil
}

// List returns the most recent summaries first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, queryListResults.Query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", queryListResults.ID, err)
	}
	defer func() { _ = rows.Close() }()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			createdAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.WorkflowType, &sum.Status, &sum.Steps, &createdAt); err != nil {
			return nil, fmt.Errorf("%s: scanning row: %w", queryListResults.ID, err)
		}
		sum.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", queryListResults.ID, err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
