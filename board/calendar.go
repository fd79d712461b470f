package board

import (
	"sort"
	"time"
)

// Day is one cell of a month view.
type Day struct {
	Date  string `json:"date" yaml:"date"`
	Day   int    `json:"day" yaml:"day"`
	Today bool   `json:"today" yaml:"today"`
	Past  bool   `json:"past" yaml:"past"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// MonthView is a calendar month laid out in Sunday-first weeks. Cells
// before the first of the month are nil.
type MonthView struct {
	Year  int        `json:"year" yaml:"year"`
	Month time.Month `json:"month" yaml:"month"`
	Weeks [][]*Day   `json:"weeks" yaml:"weeks"`
}

// TasksOn returns the tasks due on date, sorted by status then order.
func TasksOn(tasks []Task, date string) []Task {
	var out []Task
	for _, t := range tasks {
		if t.DueDate != "" && t.DueDate == date {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return statusRank(out[i].Status) < statusRank(out[j].Status)
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func statusRank(s Status) int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return len(Statuses)
}

// Month builds the view for year/month. today decides the Today and Past
// flags; only its calendar date is used.
func Month(year int, month time.Month, tasks []Task, today time.Time) MonthView {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	byDate := make(map[string][]Task)
	for _, t := range tasks {
		if t.DueDate != "" {
			byDate[t.DueDate] = append(byDate[t.DueDate], t)
		}
	}

	view := MonthView{Year: year, Month: month}
	week := make([]*Day, int(first.Weekday()), 7)
	for d := 1; d <= daysIn; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		key := date.Format(DateLayout)
		week = append(week, &Day{
			Date:  key,
			Day:   d,
			Today: date.Equal(todayDate),
			Past:  date.Before(todayDate),
			Tasks: TasksOn(byDate[key], key),
		})
		if len(week) == 7 {
			view.Weeks = append(view.Weeks, week)
			week = make([]*Day, 0, 7)
		}
	}
	if len(week) > 0 {
		view.Weeks = append(view.Weeks, week)
	}
	return view
}

// Overdue returns unfinished tasks whose due date is before today.
func Overdue(tasks []Task, today time.Time) []Task {
	cutoff := today.Format(DateLayout)
	var out []Task
	for _, t := range tasks {
		if t.Status != StatusDone && t.DueDate != "" && t.DueDate < cutoff {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	return out
}
