package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Remote is the persistence contract the Store writes through to.
// Implementations scope every call to the signed-in user.
type Remote interface {
	GetTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error
	UpdateTaskOrder(ctx context.Context, tasks []Task) error
}

// Snapshot is a point-in-time copy of the Store state.
type Snapshot struct {
	Tasks   []Task
	Loading bool
	Err     string
}

// Store is the client-side source of truth for the board.
//
// Every mutation is applied to local state before the matching remote
// call is issued in the background. A failed remote call never rolls the
// local change back; it only records an error message, so local and
// remote state may diverge until the next Load. Remote calls are neither
// retried nor ordered: when two calls for the same task overlap, the last
// response to arrive is what the Store keeps.
type Store struct {
	mu        sync.Mutex
	tasks     []Task
	loading   bool
	errMsg    string
	listeners map[int]func(Snapshot)
	nextID    int

	remote  Remote
	ctx     context.Context
	log     zerolog.Logger
	pending sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithRemote makes the Store persist through r. Without a remote the
// Store runs in local-only mode.
func WithRemote(r Remote) Option {
	return func(s *Store) {
		s.remote = r
	}
}

// WithLogger sets the logger used for remote failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithContext sets the context background remote calls run under.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithTasks seeds the collection.
func WithTasks(tasks []Task) Option {
	return func(s *Store) {
		s.tasks = cloneAll(tasks)
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		tasks:     []Task{},
		listeners: make(map[int]func(Snapshot)),
		ctx:       context.Background(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalOnly reports whether the Store has no remote.
func (s *Store) LocalOnly() bool {
	return s.remote == nil
}

// Subscribe registers fn to run after every state change. The returned
// func removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Tasks: cloneAll(s.tasks), Loading: s.loading, Err: s.errMsg}
}

// Tasks returns a copy of the collection.
func (s *Store) Tasks() []Task {
	return s.Snapshot().Tasks
}

// Column returns the tasks of one status sorted by order.
func (s *Store) Column(status Status) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Column(s.tasks, status)
}

// Task looks a task up by id.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i != -1 {
		return s.tasks[i].Clone(), true
	}
	return Task{}, false
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last recorded error message, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Wait blocks until every background remote call has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Load replaces the collection with the remote one. On failure the
// previous collection is kept and the error message is recorded.
func (s *Store) Load(ctx context.Context) {
	if s.remote == nil {
		return
	}
	s.update(func() {
		s.loading = true
	})

	tasks, err := s.remote.GetTasks(ctx)

	s.update(func() {
		s.loading = false
		if err != nil {
			s.errMsg = message("load tasks", err)
			s.log.Error().Err(err).Msg("load tasks")
			return
		}
		s.tasks = cloneAll(tasks)
		s.errMsg = ""
	})
}

// ReplaceAll sets the whole collection.
func (s *Store) ReplaceAll(tasks []Task) {
	s.update(func() {
		s.tasks = cloneAll(tasks)
		s.errMsg = ""
	})
}

// Add appends a task built from in and persists it in the background.
// Unless in.Order is set, the task goes to the end of its column.
func (s *Store) Add(in TaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}

	var (
		task    Task
		shifted []Task
	)
	s.update(func() {
		status := StatusTodo
		if in.Status != nil {
			status = *in.Status
		}
		count := CountStatus(s.tasks, status)
		if in.Order != nil && *in.Order < count {
			// Inserting in the middle shifts the rest of the column.
			task = NewTask(in, *in.Order)
			col := insert(Column(s.tasks, status), task.Order, task)
			for i := range col {
				if col[i].Order != i && col[i].ID != task.ID {
					shifted = append(shifted, col[i])
				}
			}
			s.tasks = append(without(s.tasks, status), renumber(col)...)
			for i := range shifted {
				shifted[i].Order = orderOf(s.tasks, shifted[i].ID)
			}
		} else {
			order := count
			in.Order = nil
			task = NewTask(in, order)
			s.tasks = append(s.tasks, task)
		}
		s.errMsg = ""
	})

	s.persist("create task", func(ctx context.Context) error {
		created, err := s.remote.CreateTask(ctx, task.Clone())
		if err != nil {
			return err
		}
		s.replace(task.ID, created)
		if len(shifted) > 0 {
			return s.remote.UpdateTaskOrder(ctx, shifted)
		}
		return nil
	})
	return task.Clone(), nil
}

// Update merges patch into the task and persists it in the background.
func (s *Store) Update(id string, patch TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	var err error
	s.update(func() {
		i := s.indexLocked(id)
		if i == -1 {
			err = fmt.Errorf("%w: %s", ErrTaskNotFound, id)
			return
		}
		s.tasks[i] = patch.Apply(s.tasks[i])
		s.errMsg = ""
	})
	if err != nil {
		return err
	}

	s.persist("update task", func(ctx context.Context) error {
		updated, err := s.remote.UpdateTask(ctx, id, patch)
		if err != nil {
			return err
		}
		s.replace(id, updated)
		return nil
	})
	return nil
}

// MoveTo sets a task's status and order directly. It gives immediate
// feedback for a drag; Reorder does the column renumbering.
func (s *Store) MoveTo(id string, status Status, order int) error {
	return s.Update(id, TaskPatch{Status: &status, Order: &order})
}

// Delete removes the task and deletes it remotely in the background.
// The rest of its column is compacted; no other column is touched.
func (s *Store) Delete(id string) error {
	var (
		err     error
		shifted []Task
	)
	s.update(func() {
		i := s.indexLocked(id)
		if i == -1 {
			err = fmt.Errorf("%w: %s", ErrTaskNotFound, id)
			return
		}
		status := s.tasks[i].Status
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
		s.tasks, shifted = Compact(s.tasks, status)
		s.errMsg = ""
	})
	if err != nil {
		return err
	}

	s.persist("delete task", func(ctx context.Context) error {
		if err := s.remote.DeleteTask(ctx, id); err != nil {
			return err
		}
		if len(shifted) > 0 {
			return s.remote.UpdateTaskOrder(ctx, shifted)
		}
		return nil
	})
	return nil
}

// Reorder runs the reorder engine on the current collection, replaces it
// with the result and upserts the order of every task in the background.
// A move that resolves to the task's current position changes nothing
// and issues no remote call.
func (s *Store) Reorder(m Move) (bool, error) {
	var (
		all     []Task
		changed bool
		err     error
	)
	s.update(func() {
		var next []Task
		next, changed, err = Reorder(s.tasks, m)
		if err != nil || !changed {
			return
		}
		s.tasks = next
		// background creates replace entries of s.tasks under the lock
		all = cloneAll(next)
		s.errMsg = ""
	})
	if err != nil || !changed {
		return false, err
	}

	s.persist("update task order", func(ctx context.Context) error {
		return s.remote.UpdateTaskOrder(ctx, all)
	})
	return true, nil
}

// AddSubtask appends a subtask to the task.
func (s *Store) AddSubtask(taskID, title string) (SubTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return SubTask{}, ErrEmptyTitle
	}
	t, ok := s.Task(taskID)
	if !ok {
		return SubTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	st := SubTask{ID: uuid.NewString(), Title: title}
	subtasks := append(t.Subtasks, st)
	return st, s.Update(taskID, TaskPatch{Subtasks: &subtasks})
}

// ToggleSubtask flips the completed flag of a subtask.
func (s *Store) ToggleSubtask(taskID, subtaskID string) error {
	return s.editSubtasks(taskID, subtaskID, func(subtasks []SubTask, i int) []SubTask {
		subtasks[i].Completed = !subtasks[i].Completed
		return subtasks
	})
}

// DeleteSubtask removes a subtask.
func (s *Store) DeleteSubtask(taskID, subtaskID string) error {
	return s.editSubtasks(taskID, subtaskID, func(subtasks []SubTask, i int) []SubTask {
		return append(subtasks[:i], subtasks[i+1:]...)
	})
}

func (s *Store) editSubtasks(taskID, subtaskID string, edit func([]SubTask, int) []SubTask) error {
	t, ok := s.Task(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	for i, st := range t.Subtasks {
		if st.ID == subtaskID {
			subtasks := edit(t.Subtasks, i)
			return s.Update(taskID, TaskPatch{Subtasks: &subtasks})
		}
	}
	return fmt.Errorf("%w: %s", ErrSubtaskNotFound, subtaskID)
}

// persist runs fn in the background unless the Store is local-only.
func (s *Store) persist(op string, fn func(ctx context.Context) error) {
	if s.remote == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := fn(s.ctx); err != nil {
			s.log.Error().Err(err).Str("op", op).Msg("remote call failed")
			s.update(func() {
				s.errMsg = message(op, err)
			})
		}
	}()
}

// replace swaps the task with id for the persisted version, if it is
// still present locally.
func (s *Store) replace(id string, persisted Task) {
	if persisted.ID == "" {
		return
	}
	s.update(func() {
		if i := s.indexLocked(id); i != -1 {
			s.tasks[i] = persisted.Clone()
		}
	})
}

// update runs fn under the lock and then notifies listeners.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func orderOf(tasks []Task, id string) int {
	for _, t := range tasks {
		if t.ID == id {
			return t.Order
		}
	}
	return -1
}

func cloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// message turns a remote failure into the text shown to the user.
func message(op string, err error) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		return fmt.Sprintf("%s: %s", op, m.UserMessage())
	}
	return fmt.Sprintf("%s: %v", op, err)
}
