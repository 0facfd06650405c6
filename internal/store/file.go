package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileStore keeps one <id>.json document per result in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir (0700) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating result directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the payload to a temp file and links it into place. The link
// fails when the target exists, so concurrent saves of one ID cannot overwrite
// each other.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".result-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(rec.Payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing result: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting result permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing result: %w", err)
	}
	target := s.path(rec.ID)
	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, rec.ID)
		}
		return fmt.Errorf("linking result: %w", err)
	}
	if !rec.CreatedAt.IsZero() {
		_ = os.Chtimes(target, rec.CreatedAt, rec.CreatedAt)
	}
	return nil
}

// Get reads a result by ID.
func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(id)
	// #nosec G304 -- id is validated as a UUID
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading result: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat result: %w", err)
	}
	return recordFromPayload(id, data, info.ModTime())
}

// List returns summaries ordered by modification time, newest first.
func (s *FileStore) List(ctx context.Context, limit int) ([]Summary, error) {
	limit = normalizeLimit(limit)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	type candidate struct {
		id      string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidateID(id) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{id: id, modTime: info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].id > candidates[j].id
		}
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	out := make([]Summary, 0, min(limit, len(candidates)))
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.Get(ctx, c.id)
		if err != nil {
			// skip files removed or corrupted since ReadDir
			continue
		}
		out = append(out, rec.Summary())
	}
	return out, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// payloadHeader is the subset of a result object needed for summaries.
type payloadHeader struct {
	WorkflowType     string `json:"workflow_type"`
	Status           string `json:"status"`
	ExecutionSummary struct {
		TotalSteps int `json:"total_steps_executed"`
	} `json:"execution_summary"`
}

func recordFromPayload(id string, data []byte, createdAt time.Time) (*Record, error) {
	var h payloadHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &Record{
		ID:           id,
		WorkflowType: h.WorkflowType,
		Status:       h.Status,
		Steps:        h.ExecutionSummary.TotalSteps,
		CreatedAt:    createdAt.UTC(),
		Payload:      json.RawMessage(data),
	}, nil
}
