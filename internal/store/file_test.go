package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t *testing.T, workflow string, steps int, createdAt time.Time) *Record {
	t.Helper()
	id := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"run_id":        id,
		"workflow_type": workflow,
		"status":        "completed",
		"execution_summary": map[string]any{
			"total_steps_executed": steps,
		},
	})
	require.NoError(t, err)
	return &Record{
		ID:           id,
		WorkflowType: workflow,
		Status:       "completed",
		Steps:        steps,
		CreatedAt:    createdAt,
		Payload:      payload,
	}
}

func TestFileStore_SaveGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	rec := newRecord(t, "content_creation", 3, time.Now().Add(-time.Minute))
	require.NoError(t, s.Save(ctx, rec))

	info, err := os.Stat(filepath.Join(dir, rec.ID+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "content_creation", got.WorkflowType)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 3, got.Steps)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_SaveRejectsDuplicateAndInvalid(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	rec := newRecord(t, "technical_audit", 2, time.Now())
	require.NoError(t, s.Save(ctx, rec))
	assert.ErrorIs(t, s.Save(ctx, rec), ErrExists)

	bad := newRecord(t, "technical_audit", 2, time.Now())
	bad.ID = "../../etc/passwd"
	assert.ErrorIs(t, s.Save(ctx, bad), ErrInvalidID)

	noPayload := newRecord(t, "technical_audit", 2, time.Now())
	noPayload.Payload = nil
	assert.Error(t, s.Save(ctx, noPayload))
}

func TestFileStore_ConcurrentSaveSameID(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	base := newRecord(t, "technical_audit", 2, time.Now())
	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := *base
			rec.Payload = json.RawMessage(fmt.Sprintf(`{"run_id":%q,"writer":%d}`, base.ID, i))
			errs[i] = s.Save(ctx, &rec)
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "more than one save succeeded")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, ErrExists)
	}
	require.NotEqual(t, -1, winner)

	got, err := s.Get(ctx, base.ID)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"run_id":%q,"writer":%d}`, base.ID, winner), string(got.Payload))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_GetErrors(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "../secrets")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 7; i++ {
		rec := newRecord(t, "content_strategy", i, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Save(ctx, rec))
		ids = append(ids, rec.ID)
	}
	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-uuid.json"), []byte("{}"), 0o600))

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, DefaultListLimit)
	assert.Equal(t, ids[6], list[0].ID)
	assert.Equal(t, 6, list[0].Steps)
	assert.Equal(t, ids[2], list[4].ID)

	all, err := s.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestFileStore_ListEmpty(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	list, err := s.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, s.Close())
}
