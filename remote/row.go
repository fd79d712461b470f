package remote

import (
	"time"

	"github.com/CrowderSoup/kanban/board"
)

// Row is a task as the remote store holds it. Field names follow the
// server's column names; nothing outside this package sees them.
type Row struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Order       int             `json:"order"`
	Assignee    *string         `json:"assignee"`
	DueDate     *string         `json:"due_date"`
	Subtasks    []board.SubTask `json:"subtasks"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// OrderRow is one entry of a bulk order upsert.
type OrderRow struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Order  int    `json:"order"`
	UserID string `json:"user_id"`
}

// FromRow maps a remote row to a board task.
func FromRow(r Row) board.Task {
	t := board.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      board.Status(r.Status),
		Priority:    board.Priority(r.Priority),
		Order:       r.Order,
		Subtasks:    r.Subtasks,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Assignee != nil {
		t.Assignee = *r.Assignee
	}
	if r.DueDate != nil {
		// Some stores hand dates back with a time part.
		d := *r.DueDate
		if len(d) > len(board.DateLayout) {
			d = d[:len(board.DateLayout)]
		}
		t.DueDate = d
	}
	if t.Subtasks == nil {
		t.Subtasks = []board.SubTask{}
	}
	return t
}

// ToRow maps a board task to a remote row. The owner is left for the
// caller to stamp.
func ToRow(t board.Task) Row {
	r := Row{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Order:       t.Order,
		Subtasks:    t.Subtasks,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != "" {
		r.Assignee = &t.Assignee
	}
	if t.DueDate != "" {
		r.DueDate = &t.DueDate
	}
	if r.Subtasks == nil {
		r.Subtasks = []board.SubTask{}
	}
	return r
}

// PatchToRow maps a partial update to the remote field names. Clearing
// the assignee or due date sends an explicit null.
func PatchToRow(p board.TaskPatch) map[string]any {
	m := make(map[string]any)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Status != nil {
		m["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		m["priority"] = string(*p.Priority)
	}
	if p.Order != nil {
		m["order"] = *p.Order
	}
	if p.Assignee != nil {
		m["assignee"] = nullable(*p.Assignee)
	}
	if p.DueDate != nil {
		m["due_date"] = nullable(*p.DueDate)
	}
	if p.Subtasks != nil {
		subtasks := *p.Subtasks
		if subtasks == nil {
			subtasks = []board.SubTask{}
		}
		m["subtasks"] = subtasks
	}
	return m
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// OrderRows builds the bulk order payload for tasks.
func OrderRows(tasks []board.Task, userID string) []OrderRow {
	rows := make([]OrderRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, OrderRow{ID: t.ID, Status: string(t.Status), Order: t.Order, UserID: userID})
	}
	return rows
}
