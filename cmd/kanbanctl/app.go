package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/remote"
)

var errNotSignedIn = errors.New("not signed in, run kanbanctl signin")

// app is the state shared by every command of one invocation.
type app struct {
	in          io.Reader
	out, errOut io.Writer

	url       string
	key       string
	output    string
	configDir string
	verbose   bool

	ctx    context.Context
	log    zerolog.Logger
	paths  paths
	auth   *remote.Auth
	client *remote.Client
	store  *board.Store
}

// setup resolves the configuration and builds the store. With a server
// configured the store is loaded for the saved session; otherwise the
// local board file is read.
func (a *app) setup(cmd *cobra.Command) error {
	a.ctx = cmd.Context()
	if a.ctx == nil {
		a.ctx = context.Background()
	}

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.errOut, NoColor: true}).
		Level(level).With().Timestamp().Logger()

	if err := checkFormat(a.output); err != nil {
		return err
	}
	if a.url == "" {
		a.url = os.Getenv("KANBAN_URL")
	}
	if a.key == "" {
		a.key = os.Getenv("KANBAN_PUBLIC_KEY")
	}
	if a.configDir == "" {
		a.configDir = defaultConfigDir()
	}
	a.paths = paths{dir: a.configDir}
	if err := a.paths.ensureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := remote.Config{URL: a.url, Key: a.key, Logger: a.log}
	if !cfg.Enabled() {
		tasks, err := loadBoard(a.paths.board())
		if err != nil {
			return err
		}
		a.log.Debug().Str("board", a.paths.board()).Msg("running local-only")
		a.store = board.NewStore(board.WithTasks(tasks), board.WithLogger(a.log))
		return nil
	}

	a.auth = remote.NewAuth(cfg)
	a.client = remote.New(cfg, a.auth)
	a.store = board.NewStore(
		board.WithRemote(a.client),
		board.WithLogger(a.log),
		board.WithContext(a.ctx),
	)

	saved, err := loadSession(a.paths.session())
	if err != nil {
		a.log.Warn().Err(err).Msg("ignoring saved session")
	}
	a.auth.OnAuthStateChange(a.authChanged)
	a.auth.Restore(saved)
	return nil
}

// authChanged keeps the session file and the board in step with the
// signed-in user.
func (a *app) authChanged(s *remote.Session) {
	if err := saveSession(a.paths.session(), s); err != nil {
		a.log.Error().Err(err).Msg("failed to save session")
	}
	if s == nil {
		a.store.ReplaceAll(nil)
		return
	}
	a.store.Load(a.ctx)
}

func (a *app) localOnly() bool {
	return a.auth == nil
}

// ready checks that the board can be used: signed in and loaded.
func (a *app) ready() error {
	if a.localOnly() {
		return nil
	}
	if a.auth.Current() == nil {
		return errNotSignedIn
	}
	if msg := a.store.Err(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

// finish waits for the remote calls of a mutating command. Local-only
// boards are written back; a remote failure becomes the command error.
func (a *app) finish() error {
	a.store.Wait()
	if a.localOnly() {
		return saveBoard(a.paths.board(), a.store.Tasks())
	}
	if msg := a.store.Err(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

// findTask resolves a task by id or unique id prefix.
func (a *app) findTask(ref string) (board.Task, error) {
	ref = strings.TrimSpace(ref)
	if t, ok := a.store.Task(ref); ok {
		return t, nil
	}
	if ref == "" {
		return board.Task{}, fmt.Errorf("%w: empty id", board.ErrTaskNotFound)
	}

	var matches []board.Task
	for _, t := range a.store.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return board.Task{}, fmt.Errorf("%w: %s", board.ErrTaskNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return board.Task{}, fmt.Errorf("task id %q is ambiguous, %d tasks match", ref, len(matches))
}

// findSubtask resolves a subtask of t by id or unique id prefix.
func findSubtask(t board.Task, ref string) (board.SubTask, error) {
	ref = strings.TrimSpace(ref)
	var matches []board.SubTask
	for _, st := range t.Subtasks {
		if st.ID == ref {
			return st, nil
		}
		if ref != "" && strings.HasPrefix(st.ID, ref) {
			matches = append(matches, st)
		}
	}
	switch len(matches) {
	case 0:
		return board.SubTask{}, fmt.Errorf("%w: %s", board.ErrSubtaskNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return board.SubTask{}, fmt.Errorf("subtask id %q is ambiguous, %d subtasks match", ref, len(matches))
}
