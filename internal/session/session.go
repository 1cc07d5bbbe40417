// Package session persists the wizard state between runs as a JSON file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nconklindev/yearview/internal/types"
)

// ErrNoSession is returned by Load when there is nothing worth restoring.
var ErrNoSession = errors.New("no saved session")

// State is the plain wizard state. Step counts from 1 (upload).
type State struct {
	ID             string                 `json:"id"`
	Step           int                    `json:"currentStep"`
	SelectedTables []string               `json:"selectedTables"`
	SelectedYears  []int                  `json:"selectedYears"`
	Tables         []types.TableSelection `json:"tables"`
	Sheets         []types.Sheet          `json:"uploadedSheets"`
	SavedAt        time.Time              `json:"savedAt"`
}

// Restorable reports whether the state is past the first step.
func (s *State) Restorable() bool {
	return s != nil && s.Step > 1
}

type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "session")),
		now:    time.Now,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Save writes st, assigning an id on first save. The file is replaced
// atomically.
func (s *Store) Save(st *State) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.SavedAt = s.now().UTC()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}

	s.logger.Debug("session saved",
		slog.String("id", st.ID),
		slog.Int("step", st.Step),
		slog.Int("tables", len(st.SelectedTables)),
		slog.Int("years", len(st.SelectedYears)))
	return nil
}

// Load reads the saved state. A missing file or a state still at the first
// step yields ErrNoSession; an unreadable file is removed.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("discarding corrupt session", slog.String("error", err.Error()))
		_ = s.Clear()
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !st.Restorable() {
		return nil, ErrNoSession
	}

	s.logger.Info("session restored", slog.String("id", st.ID), slog.Int("step", st.Step))
	return &st, nil
}

// Clear removes the saved state.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
