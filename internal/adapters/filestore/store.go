// Package filestore persists signal records as JSON files, one per key and
// lifecycle kind. Writes go through a temporary file and an atomic rename,
// so a crash mid-write can never leave a truncated record behind.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

const (
	kindScheduled = "scheduled"
	kindActive    = "active"
)

// Store implements ports.SignalStore on a flat directory.
type Store struct {
	dir    string
	logger ports.Logger
}

// New creates the data directory if needed and returns a store over it.
func New(dir string, logger ports.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: data directory path is empty", ports.ErrConfigurationError)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(key domain.Key, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.json", key.String(), kind))
}

func (s *Store) read(ctx context.Context, key domain.Key, kind string) (*domain.Signal, error) {
	raw, err := os.ReadFile(s.path(key, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrStoreReadFailed, err)
	}

	var sig domain.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, fmt.Errorf("%w: corrupt record %q: %v", ports.ErrStoreReadFailed, s.path(key, kind), err)
	}
	return &sig, nil
}

func (s *Store) write(ctx context.Context, key domain.Key, kind string, sig *domain.Signal) error {
	if sig == nil {
		return fmt.Errorf("%w: refusing to persist a nil signal", ports.ErrStoreWriteFailed)
	}

	raw, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err)
	}

	final := s.path(key, kind)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		// Best effort removal of the orphaned temp file.
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err)
	}

	s.logger.Debug(ctx, "Signal record persisted", map[string]interface{}{
		"path": final, "signalID": sig.ID,
	})
	return nil
}

func (s *Store) delete(ctx context.Context, key domain.Key, kind string) error {
	err := os.Remove(s.path(key, kind))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ports.ErrStoreDeleteFailed, err)
	}
	return nil
}

func (s *Store) ReadScheduled(ctx context.Context, key domain.Key) (*domain.Signal, error) {
	return s.read(ctx, key, kindScheduled)
}

func (s *Store) WriteScheduled(ctx context.Context, key domain.Key, sig *domain.Signal) error {
	return s.write(ctx, key, kindScheduled, sig)
}

func (s *Store) DeleteScheduled(ctx context.Context, key domain.Key) error {
	return s.delete(ctx, key, kindScheduled)
}

func (s *Store) ReadActive(ctx context.Context, key domain.Key) (*domain.Signal, error) {
	return s.read(ctx, key, kindActive)
}

func (s *Store) WriteActive(ctx context.Context, key domain.Key, sig *domain.Signal) error {
	return s.write(ctx, key, kindActive, sig)
}

func (s *Store) DeleteActive(ctx context.Context, key domain.Key) error {
	return s.delete(ctx, key, kindActive)
}
