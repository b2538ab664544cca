package journal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
	"github.com/parquet-go/parquet-go"
)

// Sighting is one settled session
type Sighting struct {
	SessionID  string  `json:"session_id" yaml:"session_id" parquet:"session_id"`
	Generation int64   `json:"generation" yaml:"generation" parquet:"generation"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty" parquet:"name"`
	Category   string  `json:"category,omitempty" yaml:"category,omitempty" parquet:"category"`
	Confidence float64 `json:"confidence" yaml:"confidence" parquet:"confidence"`
	TapX       float64 `json:"tap_x" yaml:"tap_x" parquet:"tap_x"`
	TapY       float64 `json:"tap_y" yaml:"tap_y" parquet:"tap_y"`
	Status     string  `json:"status" yaml:"status" parquet:"status"`
	ImageState string  `json:"image_state" yaml:"image_state" parquet:"image_state"`
	Failure    string  `json:"failure,omitempty" yaml:"failure,omitempty" parquet:"failure"`
	Override   string  `json:"override,omitempty" yaml:"override,omitempty" parquet:"override"`
	RecordedAt int64   `json:"recorded_at" yaml:"recorded_at" parquet:"recorded_at"` // unix milliseconds
}

// FromSession converts a session snapshot into a journal row
func FromSession(s overlay.Session, at time.Time) Sighting {
	row := Sighting{
		SessionID:  s.ID,
		Generation: int64(s.Generation),
		TapX:       s.Tap.X,
		TapY:       s.Tap.Y,
		Status:     s.Status.String(),
		ImageState: s.ImageState.String(),
		Failure:    string(s.Failure),
		RecordedAt: at.UnixMilli(),
	}
	if s.Result != nil {
		row.Name = s.Result.Name
		row.Category = s.Result.Category
		row.Confidence = s.Result.Confidence
		row.Override = s.Result.Override
	}
	return row
}

// Journal collects sightings in memory until Flush
type Journal struct {
	path string

	mu   sync.Mutex
	rows []Sighting
	seen map[string]bool
}

// Open returns a journal backed by path, preloading rows already stored there.
// An empty path gives an in-memory journal whose Flush is a no-op.
func Open(path string) (*Journal, error) {
	j := &Journal{path: path, seen: map[string]bool{}}
	if path == "" {
		return j, nil
	}

	rows, err := Read(path)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		j.rows = append(j.rows, row)
		j.seen[row.SessionID] = true
	}
	return j, nil
}

// Path returns the backing file, empty for in-memory journals
func (j *Journal) Path() string {
	return j.path
}

// Observe records s if it has settled. It is meant to be passed to
// overlay.WithObserver.
func (j *Journal) Observe(s overlay.Session) {
	j.Record(s)
}

// Record adds a settled, non-closed session once. It reports whether a row was added.
func (j *Journal) Record(s overlay.Session) bool {
	if s.ID == "" || !s.Settled() || s.Status == overlay.StatusClosed {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.seen[s.ID] {
		return false
	}
	j.seen[s.ID] = true
	j.rows = append(j.rows, FromSession(s, time.Now()))

	slog.Debug("Sighting recorded", "session_id", s.ID, "status", s.Status)
	return true
}

// Sightings returns a copy of all rows, oldest first
func (j *Journal) Sightings() []Sighting {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Sighting(nil), j.rows...)
}

// Flush writes every row to the backing file
func (j *Journal) Flush() error {
	if j.path == "" {
		return nil
	}
	rows := j.Sightings()
	if err := Write(j.path, rows); err != nil {
		return err
	}
	slog.Info("Journal flushed", "path", j.path, "rows", len(rows))
	return nil
}

// Write replaces the file at path with rows
func Write(path string, rows []Sighting) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create journal file: %w", err)
	}

	writer := parquet.NewGenericWriter[Sighting](file)
	if _, err := writer.Write(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write sightings: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace journal file: %w", err)
	}
	return nil
}

// Read loads all sightings from path. A missing file is an empty journal.
func Read(path string) ([]Sighting, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Sighting](pf)
	defer reader.Close()

	var sightings []Sighting
	rows := make([]Sighting, 128)
	for {
		n, err := reader.Read(rows)
		sightings = append(sightings, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sightings: %w", err)
		}
	}

	slog.Debug("Journal loaded", "path", path, "rows", len(sightings))
	return sightings, nil
}
