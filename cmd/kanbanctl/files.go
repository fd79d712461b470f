package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/remote"
)

const (
	// appName is the configuration directory name.
	appName = "kanbanctl"

	// sessionFile holds the signed-in session.
	sessionFile = "session.json"

	// boardFile holds the board in local-only mode.
	boardFile = "board.json"
)

// paths locates the files kanbanctl keeps in its configuration directory.
type paths struct {
	dir string
}

// defaultConfigDir uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}

func (p paths) session() string { return filepath.Join(p.dir, sessionFile) }
func (p paths) board() string   { return filepath.Join(p.dir, boardFile) }

// ensureDir creates the directory with mode 0700.
func (p paths) ensureDir() error {
	return os.MkdirAll(p.dir, 0700)
}

// loadSession reads the saved session. A missing file means signed out.
func loadSession(path string) (*remote.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s remote.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &s, nil
}

// saveSession writes s with mode 0600, or removes the file when s is nil.
func saveSession(path string, s *remote.Session) error {
	if s == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove session: %w", err)
		}
		return nil
	}
	return writeJSONFile(path, s)
}

// loadBoard reads the local board. A missing file is an empty board.
func loadBoard(path string) ([]board.Task, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []board.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read board: %w", err)
	}
	var tasks []board.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse board %s: %w", path, err)
	}
	return tasks, nil
}

func saveBoard(path string, tasks []board.Task) error {
	return writeJSONFile(path, tasks)
}

// writeJSONFile replaces path atomically.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
