package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func entries() []Entry {
	return []Entry{
		{Timestamp: ts, Kind: KindEnter, Fields: map[string]any{"start_power": 400.0, "target_power": 500.0}},
		{Timestamp: ts.Add(time.Minute), Kind: KindAppend, Fields: map[string]any{"copy_text": "Increase Unit load to 520 MW"}},
		{Timestamp: ts.Add(2 * time.Minute), Kind: KindHold, Fields: map[string]any{"holding_load": "Hold the load at 520 MW"}},
	}
}

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries() {
		require.NoError(t, s.Append(ctx, e))
	}
	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, KindEnter, all[0].Kind)
	assert.Equal(t, 400.0, all[0].Fields["start_power"])

	appends, err := s.Query(ctx, Query{Kind: KindAppend})
	require.NoError(t, err)
	require.Len(t, appends, 1)
	assert.Equal(t, "Increase Unit load to 520 MW", appends[0].Fields["copy_text"])

	late, err := s.Query(ctx, Query{Start: ts.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, late, 1)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "nested", "journal.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestJSONLStoreMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"kind\":\"enter\"}\nnot json\n"), 0o644))

	s, err := NewJSONLStore(path)
	require.NoError(t, err)
	got, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, got)

	old, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Contains(t, string(old), "not json")
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"), 1, 2, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestRotatingJSONLStoreMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0o644))

	s, err := NewRotatingJSONLStore(path, 1, 2, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	old, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json\n", string(old))
	exercise(t, s)
}

func TestRotatingJSONLStoreQueryReportsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 2, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, Entry{Timestamp: time.Now(), Kind: KindEnter}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.Query(ctx, Query{})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestSQLiteStoreMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	_, err = os.Stat(path + ".corrupt")
	assert.NoError(t, err)
	exercise(t, s)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating", "sqlite", "none"} {
		cfg := Config{Backend: backend}
		cfg.SetDefaults()
		cfg.Path = filepath.Join(dir, backend+filepath.Ext(cfg.Path))
		require.NoError(t, cfg.Validate())
		s, err := Open(cfg)
		require.NoError(t, err, backend)
		require.NoError(t, s.Append(context.Background(), entries()[0]))
		require.NoError(t, s.Close())
	}
	assert.Error(t, Config{Backend: "xlsx"}.Validate())
	_, err := Open(Config{Backend: "xlsx"})
	assert.Error(t, err)
}
