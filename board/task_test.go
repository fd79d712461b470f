package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-03-09 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.Empty(t, d)

	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("2026-03-09T10:00:00Z")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestTaskInputValidate(t *testing.T) {
	in := TaskInput{Title: "  Ship it ", Assignee: " Ana "}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Ship it", in.Title)
	assert.Equal(t, "Ana", in.Assignee)

	assert.ErrorIs(t, (&TaskInput{Title: "   "}).Validate(), ErrEmptyTitle)
	assert.ErrorIs(t, (&TaskInput{Title: "x", Priority: "urgent"}).Validate(), ErrInvalidPriority)
	assert.ErrorIs(t, (&TaskInput{Title: "x", Status: Ptr(Status("later"))}).Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, (&TaskInput{Title: "x", DueDate: "tomorrow"}).Validate(), ErrInvalidDate)
	assert.Error(t, (&TaskInput{Title: "x", Order: Ptr(-1)}).Validate())
}

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask(TaskInput{Title: "X", Subtasks: []SubTask{{Title: "one"}}}, 3)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, 3, task.Order)
	require.Len(t, task.Subtasks, 1)
	assert.NotEmpty(t, task.Subtasks[0].ID)
}

func TestTaskPatchApply(t *testing.T) {
	orig := Task{ID: "1", Title: "old", Status: StatusTodo, Priority: PriorityLow, Subtasks: []SubTask{{ID: "s", Title: "sub"}}}

	subs := []SubTask{}
	got := TaskPatch{
		Title:    Ptr(" new "),
		Priority: Ptr(PriorityHigh),
		DueDate:  Ptr("2026-01-02"),
		Subtasks: &subs,
	}.Apply(orig)

	assert.Equal(t, "new", got.Title)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, "2026-01-02", got.DueDate)
	assert.Empty(t, got.Subtasks)
	assert.Equal(t, StatusTodo, got.Status)
	// the original is untouched
	assert.Len(t, orig.Subtasks, 1)
	assert.Equal(t, "old", orig.Title)
}

func TestTaskPatchValidate(t *testing.T) {
	assert.True(t, TaskPatch{}.Empty())
	assert.ErrorIs(t, TaskPatch{Title: Ptr("")}.Validate(), ErrEmptyTitle)
	assert.ErrorIs(t, TaskPatch{Status: Ptr(Status("x"))}.Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, TaskPatch{DueDate: Ptr("13/01/2026")}.Validate(), ErrInvalidDate)
	assert.ErrorIs(t, TaskPatch{Subtasks: &[]SubTask{{ID: "a"}}}.Validate(), ErrEmptyTitle)
	assert.NoError(t, TaskPatch{DueDate: Ptr("")}.Validate())
}
