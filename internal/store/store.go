// Package store persists run results.
//
// Results are written once under a fresh UUID and never updated. The file
// backend keeps one JSON document per run; the SQL backends (SQLite and
// PostgreSQL) keep the same document in a PAYLOAD column alongside indexed
// summary columns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/seoflow/internal/config"
)

// Errors returned by every backend.
var (
	ErrNotFound  = errors.New("result not found")
	ErrInvalidID = errors.New("invalid result id")
	ErrExists    = errors.New("result already exists")
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 5

// Record is one persisted run result.
type Record struct {
	ID           string
	WorkflowType string
	Status       string
	Steps        int
	CreatedAt    time.Time
	// Payload is the serialized result object.
	Payload json.RawMessage
}

// Summary is the listing view of a Record.
type Summary struct {
	ID           string    `json:"id"`
	WorkflowType string    `json:"workflow_type"`
	Status       string    `json:"status"`
	Steps        int       `json:"steps"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the listing view of r.
func (r *Record) Summary() Summary {
	return Summary{
		ID:           r.ID,
		WorkflowType: r.WorkflowType,
		Status:       r.Status,
		Steps:        r.Steps,
		CreatedAt:    r.CreatedAt,
	}
}

// Store persists and retrieves run results.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns the most recent summaries first.
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// ValidateID rejects anything that is not a UUID before it reaches a path
// or query.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if err := ValidateID(rec.ID); err != nil {
		return err
	}
	if len(rec.Payload) == 0 || !json.Valid(rec.Payload) {
		return errors.New("record payload must be valid JSON")
	}
	return nil
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreBackendFile, "":
		return NewFileStore(cfg.Path)
	case config.StoreBackendSQLite:
		return OpenSQL(ctx, DialectSQLite, cfg.DSN.Value())
	case config.StoreBackendPostgres:
		return OpenSQL(ctx, DialectPostgres, cfg.DSN.Value())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
