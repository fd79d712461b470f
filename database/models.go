package database

import (
	"time"

	"github.com/CrowderSoup/kanban/board"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is a row of the tasks table. JSON names are the wire names of
// the task API.
type Task struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Order       int             `json:"order"`
	Assignee    *string         `json:"assignee"`
	DueDate     *string         `json:"due_date"`
	Subtasks    []board.SubTask `json:"subtasks"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TaskOrder is one entry of a bulk status/order update.
type TaskOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Order  int    `json:"order"`
	UserID string `json:"user_id"`
}
