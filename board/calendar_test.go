package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth(t *testing.T) {
	tasks := []Task{
		{ID: "a", Status: StatusDone, DueDate: "2026-10-19"},
		{ID: "b", Status: StatusTodo, DueDate: "2026-10-19"},
		{ID: "c", Status: StatusTodo, DueDate: "2026-11-01"},
		{ID: "d", Status: StatusTodo},
	}
	today := time.Date(2026, 10, 19, 15, 30, 0, 0, time.Local)

	view := Month(2026, time.October, tasks, today)
	require.Len(t, view.Weeks, 5)

	// October 1st 2026 is a Thursday.
	first := view.Weeks[0]
	assert.Nil(t, first[0])
	assert.Nil(t, first[3])
	require.NotNil(t, first[4])
	assert.Equal(t, 1, first[4].Day)
	assert.True(t, first[4].Past)

	var day *Day
	for _, w := range view.Weeks {
		for _, d := range w {
			if d != nil && d.Day == 19 {
				day = d
			}
		}
	}
	require.NotNil(t, day)
	assert.True(t, day.Today)
	assert.False(t, day.Past)
	assert.Equal(t, []string{"b", "a"}, ids(day.Tasks))

	last := view.Weeks[len(view.Weeks)-1]
	assert.Equal(t, 31, last[len(last)-1].Day)
}

func TestMonthStartingOnSunday(t *testing.T) {
	view := Month(2026, time.February, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, view.Weeks, 4)
	assert.Equal(t, 1, view.Weeks[0][0].Day)
	for _, w := range view.Weeks {
		assert.Len(t, w, 7)
	}
}

func TestOverdue(t *testing.T) {
	tasks := []Task{
		{ID: "late", Status: StatusTodo, DueDate: "2026-10-01"},
		{ID: "later", Status: StatusInProgress, DueDate: "2026-09-01"},
		{ID: "finished", Status: StatusDone, DueDate: "2026-09-01"},
		{ID: "today", Status: StatusTodo, DueDate: "2026-10-19"},
		{ID: "none", Status: StatusTodo},
	}

	got := Overdue(tasks, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"later", "late"}, ids(got))
}
