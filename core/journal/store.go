// Package journal persists an append-only log of operator actions: base plan
// entries, appended commands, freezes and manual holds. Each entry is a flat
// key/value row.
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindEnter  Kind = "enter"
	KindAppend Kind = "append"
	KindFreeze Kind = "freeze"
	KindHold   Kind = "hold"
	KindReset  Kind = "reset"
	KindAlarm  Kind = "alarm"
)

// Entry is one journal row.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      Kind           `json:"kind"`
	Fields    map[string]any `json:"fields"`
}

// Query filters entries. Zero values match everything.
type Query struct {
	Start time.Time
	End   time.Time
	Kind  Kind
}

// Match reports whether e passes q.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	return q.Kind == "" || e.Kind == q.Kind
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// ErrCorrupt flags an existing file that could not be read back.
var ErrCorrupt = errors.New("journal: corrupt store")

// Config selects the backend.
type Config struct {
	// Backend is one of jsonl, rotating, sqlite or none.
	Backend string `json:"backend" koanf:"backend"`
	Path    string `json:"path" koanf:"path"`
	// Rotation settings for the rotating backend.
	MaxSizeMB  int `json:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int `json:"max_backups" koanf:"max_backups"`
	MaxAgeDays int `json:"max_age_days" koanf:"max_age_days"`
}

// SetDefaults selects a JSONL journal next to the binary.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "loadchange.db"
		default:
			c.Path = "loadchange.jsonl"
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "rotating", "sqlite", "none":
		return nil
	default:
		return fmt.Errorf("journal: unknown backend %q", c.Backend)
	}
}

// Open builds the configured store.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "none":
		return Discard{}, nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "jsonl", "":
		return NewJSONLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("journal: unknown backend %q", cfg.Backend)
	}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error          { return nil }
func (Discard) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (Discard) Close() error                                  { return nil }

// moveAside renames a corrupt file to <path>.corrupt, replacing an older one.
func moveAside(path string) error {
	dst := path + ".corrupt"
	_ = os.Remove(dst)
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("move corrupt journal aside: %w", err)
	}
	return nil
}
