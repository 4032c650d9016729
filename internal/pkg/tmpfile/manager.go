package tmpfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

// Manager owns scratch directories for in-flight video/audio files.
// Deletes are retried, old leftovers are swept periodically.
type Manager struct {
	dirs       []string
	maxRetries uint64
	retryDelay time.Duration
}

// NewManager creates manager and makes sure dirs exist
func NewManager(dirs ...string) (*Manager, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no dirs")
	}
	for _, d := range dirs {
		if d == "" {
			return nil, fmt.Errorf("empty dir")
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("can't create dir '%s': %w", d, err)
		}
	}
	return &Manager{dirs: dirs, maxRetries: 3, retryDelay: time.Millisecond * 100}, nil
}

// Dir returns the primary scratch dir
func (m *Manager) Dir() string {
	return m.dirs[0]
}

// VideoPath returns scratch video file path for an id
func (m *Manager) VideoPath(id, ext string) string {
	return filepath.Join(m.Dir(), id+ext)
}

// AudioPath returns scratch audio file path for an id
func (m *Manager) AudioPath(id string) string {
	return filepath.Join(m.Dir(), id+".wav")
}

// ForceDelete removes a file with bounded retries.
// A missing file counts as already deleted. Final failure is logged and returned.
func (m *Manager) ForceDelete(path string) error {
	if path == "" {
		return nil
	}
	op := func() error {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(m.retryDelay), m.maxRetries))
	if err != nil {
		goapp.Log.Error().Err(err).Str("path", path).Msg("can't delete file")
		return fmt.Errorf("can't delete '%s': %w", path, err)
	}
	return nil
}

// Sweep deletes entries older than maxAge in every managed dir, returns deleted count
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	threshold := time.Now().Add(-maxAge)
	deleted, checked := 0, 0
	for _, dir := range m.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return deleted, fmt.Errorf("can't read dir '%s': %w", dir, err)
		}
		for _, e := range entries {
			checked++
			info, err := e.Info()
			if err != nil {
				goapp.Log.Warn().Err(err).Str("name", e.Name()).Msg("can't stat")
				continue
			}
			if info.ModTime().After(threshold) {
				continue
			}
			if err := m.ForceDelete(filepath.Join(dir, e.Name())); err == nil {
				deleted++
			}
		}
	}
	goapp.Log.Info().Int("checked", checked).Int("deleted", deleted).Msg("sweep done")
	return deleted, nil
}

// StartPeriodicCleanup sweeps now and then on every interval until ctx is done.
// Returned channel closes when the loop exits.
func (m *Manager) StartPeriodicCleanup(ctx context.Context, interval, maxAge time.Duration) <-chan struct{} {
	goapp.Log.Info().Dur("interval", interval).Dur("maxAge", maxAge).Msg("Starting scratch cleanup loop")
	res := make(chan struct{})
	go func() {
		defer close(res)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		if _, err := m.Sweep(maxAge); err != nil {
			goapp.Log.Error().Err(err).Send()
		}
		for {
			select {
			case <-ticker.C:
				if _, err := m.Sweep(maxAge); err != nil {
					goapp.Log.Error().Err(err).Send()
				}
			case <-ctx.Done():
				goapp.Log.Info().Msg("Stopped scratch cleanup loop")
				return
			}
		}
	}()
	return res
}
