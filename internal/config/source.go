package config

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"
)

// SettingsSource hands out the current settings snapshot and reloads the file
// when its modification time changes.
type SettingsSource struct {
	path string
	stat func(string) (os.FileInfo, error)

	mu      sync.RWMutex
	current Settings
	modTime time.Time
}

// NewSettingsSource loads path once. A missing or broken file leaves the
// defaults in place.
func NewSettingsSource(path string) *SettingsSource {
	s := &SettingsSource{path: path, stat: os.Stat, current: DefaultSettings()}
	if _, err := s.Reload(); err != nil {
		log.Printf("Warning: %v, using default settings", err)
	}
	return s
}

// Current returns the snapshot in force. Callers must not mutate its maps.
func (s *SettingsSource) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsSource) Path() string {
	return s.path
}

// Reload re-reads the file if it changed since the last load and reports
// whether a new snapshot was installed.
func (s *SettingsSource) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	info, err := s.stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	s.mu.RLock()
	unchanged := !s.modTime.IsZero() && info.ModTime().Equal(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	next, err := LoadSettings(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = next
	s.modTime = info.ModTime()
	s.mu.Unlock()
	log.Printf("Settings loaded from %s (%d invalid fields)", s.path, len(next.Invalid))
	return true, nil
}
