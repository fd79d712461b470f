package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/database"
	"github.com/CrowderSoup/kanban/services"
)

// TaskHandler serves the owner-scoped task endpoints.
type TaskHandler struct {
	dataService *database.DataService
	hub         *services.Hub
}

func NewTaskHandler(dataService *database.DataService, hub *services.Hub) *TaskHandler {
	return &TaskHandler{
		dataService: dataService,
		hub:         hub,
	}
}

type taskRequest struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Order       int             `json:"order"`
	Assignee    *string         `json:"assignee"`
	DueDate     *string         `json:"due_date"`
	Subtasks    []board.SubTask `json:"subtasks"`
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return "", false
	}
	return claims.Subject, true
}

// List returns the user's tasks ordered by order.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	tasks, err := h.dataService.ListTasks(uid)
	if err != nil {
		log.Error().Err(err).Str("user", uid).Msg("failed to list tasks")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create inserts a task. A well-formed id that is not taken is kept so
// that clients can reference the task before the response arrives.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	task, err := newTaskRow(uid, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.assignID(req.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to check task id")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	task.ID = id

	created, err := h.dataService.CreateTask(task)
	if err != nil {
		log.Error().Err(err).Str("user", uid).Msg("failed to create task")
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}

	h.hub.NotifyTaskChange(uid, "create", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) assignID(requested string) (string, error) {
	if id, err := uuid.Parse(requested); err == nil {
		taken, err := h.dataService.TaskExists(id.String())
		if err != nil {
			return "", err
		}
		if !taken {
			return id.String(), nil
		}
	}
	return uuid.NewString(), nil
}

func newTaskRow(uid string, req taskRequest) (*database.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, board.ErrEmptyTitle
	}

	status := board.StatusTodo
	if req.Status != "" {
		s, err := board.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = s
	}
	priority := board.PriorityMedium
	if req.Priority != "" {
		p, err := board.ParsePriority(req.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}
	if req.Order < 0 {
		return nil, fmt.Errorf("order must be non-negative, got %d", req.Order)
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	subtasks, err := normalizeSubtasks(req.Subtasks)
	if err != nil {
		return nil, err
	}

	return &database.Task{
		UserID:      uid,
		Title:       title,
		Description: req.Description,
		Status:      string(status),
		Priority:    string(priority),
		Order:       req.Order,
		Assignee:    emptyToNil(req.Assignee),
		DueDate:     dueDate,
		Subtasks:    subtasks,
	}, nil
}

// Update applies a partial row to one of the user's tasks.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	fields, err := patchFields(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var task *database.Task
	if len(fields) == 0 {
		task, err = h.dataService.GetTask(uid, id)
	} else {
		task, err = h.dataService.UpdateTask(uid, id, fields)
	}
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user", uid).Str("task", id).Msg("failed to update task")
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}

	if len(fields) > 0 {
		h.hub.NotifyTaskChange(uid, "update", id)
	}
	writeJSON(w, http.StatusOK, task)
}

// ignoredFields may be echoed back by clients but are owned by the server.
var ignoredFields = map[string]bool{
	"id":         true,
	"user_id":    true,
	"created_at": true,
	"updated_at": true,
}

// patchFields validates a partial row and converts it to column values.
func patchFields(raw map[string]json.RawMessage) (map[string]any, error) {
	fields := make(map[string]any, len(raw))
	for key, value := range raw {
		if ignoredFields[key] {
			continue
		}
		switch key {
		case "title":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, board.ErrEmptyTitle
			}
			fields[key] = s
		case "description":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			fields[key] = s
		case "status":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			status, err := board.ParseStatus(s)
			if err != nil {
				return nil, err
			}
			fields[key] = string(status)
		case "priority":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			priority, err := board.ParsePriority(s)
			if err != nil {
				return nil, err
			}
			fields[key] = string(priority)
		case "order":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return nil, fieldError(key, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("order must be non-negative, got %d", n)
			}
			fields[key] = n
		case "assignee":
			var s *string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			fields[key] = emptyToNil(s)
		case "due_date":
			var s *string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fieldError(key, err)
			}
			d, err := parseDueDate(s)
			if err != nil {
				return nil, err
			}
			fields[key] = d
		case "subtasks":
			var subtasks []board.SubTask
			if err := json.Unmarshal(value, &subtasks); err != nil {
				return nil, fieldError(key, err)
			}
			normalized, err := normalizeSubtasks(subtasks)
			if err != nil {
				return nil, err
			}
			fields[key] = normalized
		default:
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	return fields, nil
}

func fieldError(field string, err error) error {
	return fmt.Errorf("invalid %s: %w", field, err)
}

// Delete removes one of the user's tasks.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	err := h.dataService.DeleteTask(uid, id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user", uid).Str("task", id).Msg("failed to delete task")
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.hub.NotifyTaskChange(uid, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// Order writes status and order for a batch of the user's tasks.
func (h *TaskHandler) Order(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var orders []database.TaskOrder
	if err := json.NewDecoder(r.Body).Decode(&orders); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	for _, o := range orders {
		if _, err := board.ParseStatus(o.Status); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("task %s: %v", o.ID, err))
			return
		}
		if o.Order < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("task %s: order must be non-negative", o.ID))
			return
		}
	}

	updated, err := h.dataService.UpdateTaskOrder(uid, orders)
	if err != nil {
		log.Error().Err(err).Str("user", uid).Msg("failed to update task order")
		writeError(w, http.StatusInternalServerError, "failed to save task order")
		return
	}
	log.Debug().Str("user", uid).Int("requested", len(orders)).Int("updated", updated).Msg("task order updated")

	if updated > 0 {
		h.hub.NotifyTaskChange(uid, "reorder", "")
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDueDate(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	d, err := board.ParseDate(*v)
	if err != nil {
		return nil, err
	}
	if d == "" {
		return nil, nil
	}
	return &d, nil
}

func normalizeSubtasks(subtasks []board.SubTask) ([]board.SubTask, error) {
	out := make([]board.SubTask, 0, len(subtasks))
	for _, st := range subtasks {
		st.Title = strings.TrimSpace(st.Title)
		if st.Title == "" {
			return nil, fmt.Errorf("subtask %s: %w", st.ID, board.ErrEmptyTitle)
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		out = append(out, st)
	}
	return out, nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
