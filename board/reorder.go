package board

import (
	"fmt"
	"sort"
)

// EndOfList is the destination index meaning "append to the column".
const EndOfList = -1

// Move describes a drag of one task to a position in a column.
type Move struct {
	TaskID string
	From   Status
	To     Status
	// Index is the position in the destination column. Values outside
	// the column, including EndOfList, mean the end of the column.
	Index int
}

// Column returns copies of the tasks in status, sorted by order.
func Column(tasks []Task, status Status) []Task {
	col := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			col = append(col, t.Clone())
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Order < col[j].Order })
	return col
}

// CountStatus returns how many tasks are in status.
func CountStatus(tasks []Task, status Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func renumber(col []Task) []Task {
	for i := range col {
		col[i].Order = i
	}
	return col
}

func without(tasks []Task, statuses ...Status) []Task {
	out := make([]Task, 0, len(tasks))
next:
	for _, t := range tasks {
		for _, s := range statuses {
			if t.Status == s {
				continue next
			}
		}
		out = append(out, t.Clone())
	}
	return out
}

func indexOf(col []Task, id string) int {
	for i, t := range col {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Reorder applies m to tasks and returns the new collection with the
// source and destination columns renumbered 0..n-1. Other columns are
// carried over untouched. changed is false when the move resolves to the
// task's current position; the input is then returned as is.
func Reorder(tasks []Task, m Move) (out []Task, changed bool, err error) {
	if !m.From.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidStatus, m.From)
	}
	if !m.To.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidStatus, m.To)
	}

	source := Column(tasks, m.From)
	from := indexOf(source, m.TaskID)
	if from == -1 {
		return nil, false, fmt.Errorf("%w: %s in %s", ErrTaskNotFound, m.TaskID, m.From)
	}

	if m.From == m.To {
		to := m.Index
		if to < 0 || to >= len(source) {
			to = len(source) - 1
		}
		if to == from {
			return tasks, false, nil
		}
		moved := source[from]
		source = append(source[:from], source[from+1:]...)
		source = insert(source, to, moved)
		return append(without(tasks, m.From), renumber(source)...), true, nil
	}

	moved := source[from]
	source = append(source[:from], source[from+1:]...)
	moved.Status = m.To

	dest := Column(tasks, m.To)
	to := m.Index
	if to < 0 || to > len(dest) {
		to = len(dest)
	}
	dest = insert(dest, to, moved)

	out = without(tasks, m.From, m.To)
	out = append(out, renumber(source)...)
	out = append(out, renumber(dest)...)
	return out, true, nil
}

func insert(col []Task, i int, t Task) []Task {
	col = append(col, Task{})
	copy(col[i+1:], col[i:])
	col[i] = t
	return col
}

// Compact renumbers the given column densely and reports the tasks whose
// order changed. Other columns are untouched.
func Compact(tasks []Task, status Status) (out []Task, shifted []Task) {
	col := Column(tasks, status)
	for i := range col {
		if col[i].Order != i {
			col[i].Order = i
			shifted = append(shifted, col[i])
		}
	}
	if len(shifted) == 0 {
		return tasks, nil
	}
	return append(without(tasks, status), col...), shifted
}

// Dense reports whether every column's orders form 0..n-1.
func Dense(tasks []Task) bool {
	for _, s := range Statuses {
		for i, t := range Column(tasks, s) {
			if t.Order != i {
				return false
			}
		}
	}
	return true
}

// ResolveDrop turns a drop gesture into a Move. overID is whatever sits
// under the pointer: a task id, or a status name for a column header or
// an empty column. A header drop targets the end of the column.
// ok is false when the gesture does not resolve to a move.
func ResolveDrop(tasks []Task, activeID, overID string) (m Move, ok bool) {
	container := func(id string) (Status, bool) {
		if s := Status(id); s.Valid() {
			return s, true
		}
		for _, t := range tasks {
			if t.ID == id {
				return t.Status, true
			}
		}
		return "", false
	}

	from, ok := container(activeID)
	if !ok {
		return Move{}, false
	}
	to, ok := container(overID)
	if !ok {
		return Move{}, false
	}

	index := EndOfList
	if i := indexOf(Column(tasks, to), overID); i != -1 {
		index = i
	}
	return Move{TaskID: activeID, From: from, To: to, Index: index}, true
}
