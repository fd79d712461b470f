package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mk(id string, status Status, order int) Task {
	return Task{ID: id, Title: "Task " + id, Status: status, Priority: PriorityMedium, Order: order, Subtasks: []SubTask{}}
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func find(t *testing.T, tasks []Task, id string) Task {
	t.Helper()
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not found", id)
	return Task{}
}

func TestReorderWithinColumn(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0), mk("b", StatusTodo, 1), mk("c", StatusTodo, 2)}

	out, changed, err := Reorder(tasks, Move{TaskID: "c", From: StatusTodo, To: StatusTodo, Index: 0})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, 0, find(t, out, "c").Order)
	assert.Equal(t, 1, find(t, out, "a").Order)
	assert.Equal(t, 2, find(t, out, "b").Order)
	assert.Equal(t, []string{"c", "a", "b"}, ids(Column(out, StatusTodo)))
}

func TestReorderSamePositionIsNoop(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0), mk("b", StatusTodo, 1), mk("x", StatusDone, 0)}

	out, changed, err := Reorder(tasks, Move{TaskID: "b", From: StatusTodo, To: StatusTodo, Index: 1})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, tasks, out)

	// Dropping the last card on its own column header lands it at the end.
	out, changed, err = Reorder(tasks, Move{TaskID: "b", From: StatusTodo, To: StatusTodo, Index: EndOfList})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, tasks, out)
}

func TestReorderAcrossColumns(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0), mk("d", StatusDone, 0), mk("p", StatusInProgress, 0)}

	out, changed, err := Reorder(tasks, Move{TaskID: "a", From: StatusTodo, To: StatusDone, Index: EndOfList})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Empty(t, Column(out, StatusTodo))
	done := Column(out, StatusDone)
	require.Len(t, done, 2)
	assert.Equal(t, "d", done[0].ID)
	assert.Equal(t, 0, done[0].Order)
	assert.Equal(t, "a", done[1].ID)
	assert.Equal(t, 1, done[1].Order)
	assert.Equal(t, StatusDone, done[1].Status)

	assert.Equal(t, mk("p", StatusInProgress, 0), find(t, out, "p"))
	assert.Len(t, out, 3)
}

func TestReorderAcrossColumnsRenumbersBoth(t *testing.T) {
	tasks := []Task{
		mk("a", StatusTodo, 0), mk("b", StatusTodo, 1), mk("c", StatusTodo, 2),
		mk("x", StatusInProgress, 0), mk("y", StatusInProgress, 1),
	}

	out, _, err := Reorder(tasks, Move{TaskID: "a", From: StatusTodo, To: StatusInProgress, Index: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, ids(Column(out, StatusTodo)))
	assert.Equal(t, []string{"x", "a", "y"}, ids(Column(out, StatusInProgress)))
	assert.True(t, Dense(out))
}

func TestReorderKeepsColumnsDense(t *testing.T) {
	tasks := []Task{
		mk("a", StatusTodo, 0), mk("b", StatusTodo, 1), mk("c", StatusTodo, 2), mk("d", StatusTodo, 3),
		mk("e", StatusDone, 0),
	}

	for _, from := range []int{0, 1, 2, 3} {
		for _, to := range []int{0, 1, 2, 3, EndOfList, 10} {
			id := Column(tasks, StatusTodo)[from].ID
			out, _, err := Reorder(tasks, Move{TaskID: id, From: StatusTodo, To: StatusTodo, Index: to})
			require.NoError(t, err)
			assert.True(t, Dense(out), "from %d to %d", from, to)
			assert.Len(t, out, len(tasks))
			tasks = out
		}
	}
}

func TestReorderErrors(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0)}

	_, _, err := Reorder(tasks, Move{TaskID: "zzz", From: StatusTodo, To: StatusDone})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, _, err = Reorder(tasks, Move{TaskID: "a", From: StatusDone, To: StatusTodo})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, _, err = Reorder(tasks, Move{TaskID: "a", From: StatusTodo, To: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompact(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0), mk("c", StatusTodo, 2), mk("x", StatusDone, 5)}

	out, shifted := Compact(tasks, StatusTodo)
	require.Len(t, shifted, 1)
	assert.Equal(t, "c", shifted[0].ID)
	assert.Equal(t, 1, shifted[0].Order)
	assert.Equal(t, 5, find(t, out, "x").Order)

	same, shifted := Compact(out, StatusTodo)
	assert.Nil(t, shifted)
	assert.Equal(t, out, same)
}

func TestResolveDrop(t *testing.T) {
	tasks := []Task{mk("a", StatusTodo, 0), mk("b", StatusTodo, 1), mk("d", StatusDone, 0)}

	tests := []struct {
		name   string
		active string
		over   string
		want   Move
		ok     bool
	}{
		{"onto sibling", "a", "b", Move{TaskID: "a", From: StatusTodo, To: StatusTodo, Index: 1}, true},
		{"onto other column card", "a", "d", Move{TaskID: "a", From: StatusTodo, To: StatusDone, Index: 0}, true},
		{"onto header", "a", "in-progress", Move{TaskID: "a", From: StatusTodo, To: StatusInProgress, Index: EndOfList}, true},
		{"onto nothing", "a", "ghost", Move{}, false},
		{"unknown active", "ghost", "b", Move{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDrop(tasks, tt.active, tt.over)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
