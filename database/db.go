package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/CrowderSoup/kanban/board"
)

var (
	// ErrNotFound is returned when a row does not exist for the user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	"order" INTEGER NOT NULL DEFAULT 0,
	assignee TEXT,
	due_date TEXT,
	subtasks TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_order ON tasks(user_id, "order");
`

// InitDB opens the SQLite database at path and creates the schema.
func InitDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

// DataService handles database operations for users and their tasks.
// Every task query is scoped to the owning user.
type DataService struct {
	db  *sql.DB
	now func() time.Time
}

func NewDataService(db *sql.DB) *DataService {
	return &DataService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateUser inserts a user. A duplicate email yields ErrConflict.
func (s *DataService) CreateUser(id, email, passwordHash string) (*User, error) {
	u := &User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: s.now()}
	_, err := s.db.Exec("INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by email.
func (s *DataService) GetUserByEmail(email string) (*User, error) {
	return s.getUser("SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email)
}

// GetUserByID looks a user up by id.
func (s *DataService) GetUserByID(id string) (*User, error) {
	return s.getUser("SELECT id, email, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *DataService) getUser(query string, arg any) (*User, error) {
	var u User
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

const taskColumns = `id, user_id, title, description, status, priority, "order", assignee, due_date, subtasks, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t        Task
		assignee sql.NullString
		dueDate  sql.NullString
		subtasks string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Order,
		&assignee, &dueDate, &subtasks, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		t.Assignee = &assignee.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtasks of task %s: %w", t.ID, err)
	}
	if t.Subtasks == nil {
		t.Subtasks = []board.SubTask{}
	}
	return &t, nil
}

// ListTasks returns the user's tasks ordered by order ascending.
func (s *DataService) ListTasks(userID string) ([]Task, error) {
	rows, err := s.db.Query(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY "order" ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one of the user's tasks.
func (s *DataService) GetTask(userID, id string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return t, nil
}

// TaskExists reports whether any user owns a task with id.
func (s *DataService) TaskExists(id string) (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM tasks WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query task: %w", err)
	}
	return n > 0, nil
}

// CreateTask inserts t, stamping its timestamps.
func (s *DataService) CreateTask(t *Task) (*Task, error) {
	subtasks, err := marshalSubtasks(t.Subtasks)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Subtasks == nil {
		t.Subtasks = []board.SubTask{}
	}

	_, err = s.db.Exec(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority, t.Order,
		t.Assignee, t.DueDate, subtasks, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %s: %w", t.ID, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return t, nil
}

// updatableColumns maps wire field names to task columns.
var updatableColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"order":       `"order"`,
	"assignee":    "assignee",
	"due_date":    "due_date",
	"subtasks":    "subtasks",
}

// UpdateTask sets the given fields of one of the user's tasks and
// returns the updated row. Values must already be validated; subtasks
// are passed as []board.SubTask.
func (s *DataService) UpdateTask(userID, id string, fields map[string]any) (*Task, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := updatableColumns[k]; !ok {
			return nil, fmt.Errorf("unknown field %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+3)
	for _, k := range keys {
		v := fields[k]
		if k == "subtasks" {
			subtasks, _ := v.([]board.SubTask)
			data, err := marshalSubtasks(subtasks)
			if err != nil {
				return nil, err
			}
			v = data
		}
		sets = append(sets, updatableColumns[k]+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id, userID)

	res, err := s.db.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTask(userID, id)
}

// DeleteTask deletes one of the user's tasks.
func (s *DataService) DeleteTask(userID, id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTaskOrder writes status and order for every listed task the user
// owns, in one transaction. Entries for other ids are skipped. It returns
// the number of rows updated.
func (s *DataService) UpdateTaskOrder(userID string, orders []TaskOrder) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE tasks SET status = ?, "order" = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare order update: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	updated := 0
	for _, o := range orders {
		res, err := stmt.Exec(o.Status, o.Order, now, o.ID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to update order of task %s: %w", o.ID, err)
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

func marshalSubtasks(subtasks []board.SubTask) (string, error) {
	if subtasks == nil {
		subtasks = []board.SubTask{}
	}
	data, err := json.Marshal(subtasks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
