// Package board holds the client-side model of a Kanban board: tasks,
// the reorder engine that keeps per-status order dense, and the Store
// that applies mutations optimistically before persisting them remotely.
package board

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists the columns in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Priority ranks a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DateLayout is the calendar date format used for due dates.
const DateLayout = "2006-01-02"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidDate     = errors.New("invalid date")
)

// Valid reports whether s is one of the board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label is the column heading.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// ParseStatus validates a status name.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.TrimSpace(v))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority validates a priority name.
func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.TrimSpace(v))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, v)
	}
	return p, nil
}

// ParseDate checks that v is a calendar date (YYYY-MM-DD) and returns it
// normalized. An empty string is allowed and means "no due date".
func ParseDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}
	return d.Format(DateLayout), nil
}

// SubTask is a checklist item owned by a Task.
type SubTask struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Task is a card on the board.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      Status     `json:"status" yaml:"status"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Order       int        `json:"order" yaml:"order"`
	Assignee    string     `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueDate     string     `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Subtasks    []SubTask  `json:"subtasks" yaml:"subtasks"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	if t.Subtasks != nil {
		t.Subtasks = append(make([]SubTask, 0, len(t.Subtasks)), t.Subtasks...)
	}
	return t
}

// CompletedSubtasks counts the checked subtasks.
func (t Task) CompletedSubtasks() int {
	n := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			n++
		}
	}
	return n
}

// TaskInput is the partial input accepted when creating a task.
// Nil Status and Order mean "todo" and "append to the end of the column".
type TaskInput struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Status      *Status   `json:"status,omitempty" yaml:"status,omitempty"`
	Priority    Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Order       *int      `json:"order,omitempty" yaml:"order,omitempty"`
	Assignee    string    `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueDate     string    `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Subtasks    []SubTask `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// Validate trims the input and checks its enumerated fields.
func (in *TaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrEmptyTitle
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Assignee = strings.TrimSpace(in.Assignee)
	if in.Status != nil && !in.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, in.Priority)
	}
	if in.Order != nil && *in.Order < 0 {
		return fmt.Errorf("order must be non-negative, got %d", *in.Order)
	}
	d, err := ParseDate(in.DueDate)
	if err != nil {
		return err
	}
	in.DueDate = d
	return nil
}

// TaskPatch is a field-level partial update. Nil fields are left alone.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
	DueDate     *string    `json:"dueDate,omitempty"`
	Subtasks    *[]SubTask `json:"subtasks,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Order == nil && p.Assignee == nil &&
		p.DueDate == nil && p.Subtasks == nil
}

// Validate checks the fields that are set.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *p.Priority)
	}
	if p.Order != nil && *p.Order < 0 {
		return fmt.Errorf("order must be non-negative, got %d", *p.Order)
	}
	if p.DueDate != nil {
		if _, err := ParseDate(*p.DueDate); err != nil {
			return err
		}
	}
	if p.Subtasks != nil {
		for _, st := range *p.Subtasks {
			if strings.TrimSpace(st.Title) == "" {
				return fmt.Errorf("subtask %s: %w", st.ID, ErrEmptyTitle)
			}
		}
	}
	return nil
}

// Apply merges the patch into t and returns the result.
func (p TaskPatch) Apply(t Task) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.DueDate != nil {
		t.DueDate, _ = ParseDate(*p.DueDate)
	}
	if p.Subtasks != nil {
		t.Subtasks = append([]SubTask{}, (*p.Subtasks)...)
	}
	return t
}

// NewTask builds a task from validated input. order is used when the
// input does not carry one.
func NewTask(in TaskInput, order int) Task {
	status := StatusTodo
	if in.Status != nil {
		status = *in.Status
	}
	if in.Order != nil {
		order = *in.Order
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	subtasks := make([]SubTask, 0, len(in.Subtasks))
	for _, st := range in.Subtasks {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		subtasks = append(subtasks, st)
	}
	return Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		Order:       order,
		Assignee:    in.Assignee,
		DueDate:     in.DueDate,
		Subtasks:    subtasks,
	}
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
