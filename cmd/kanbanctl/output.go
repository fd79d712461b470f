package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/CrowderSoup/kanban/board"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	shortIDLen = 8
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q: want table, json or yaml", format)
}

// render writes v as JSON or YAML, or calls table for the table format.
func render(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return table(w)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// oneLine replaces newlines so a value fits a table cell.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// writeBoard prints the columns of statuses, each sorted by order.
func writeBoard(w io.Writer, tasks []board.Task, statuses []board.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, status := range statuses {
		col := board.Column(tasks, status)
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%d)\n", status.Label(), len(col))
		if len(col) == 0 {
			continue
		}
		fmt.Fprintln(tw, "  #\tID\tTITLE\tPRIORITY\tDUE\tASSIGNEE\tSUBTASKS")
		for _, t := range col {
			subtasks := "-"
			if len(t.Subtasks) > 0 {
				subtasks = fmt.Sprintf("%d/%d", t.CompletedSubtasks(), len(t.Subtasks))
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Order, shortID(t.ID), oneLine(t.Title), t.Priority,
				orDash(t.DueDate), orDash(t.Assignee), subtasks)
		}
	}
	return tw.Flush()
}

// writeTask prints the details of one task.
func writeTask(w io.Writer, t board.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", oneLine(t.Title))
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status.Label())
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Order:\t%d\n", t.Order)
	fmt.Fprintf(tw, "Due:\t%s\n", orDash(t.DueDate))
	fmt.Fprintf(tw, "Assignee:\t%s\n", orDash(t.Assignee))
	if t.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", oneLine(t.Description))
	}
	for _, st := range t.Subtasks {
		mark := " "
		if st.Completed {
			mark = "x"
		}
		fmt.Fprintf(tw, "  [%s]\t%s %s\n", mark, shortID(st.ID), oneLine(st.Title))
	}
	return tw.Flush()
}

const weekdays = "Su  Mo  Tu  We  Th  Fr  Sa"

// writeMonth prints a month grid followed by the tasks due in it. Days
// with tasks carry a '*', today is bracketed.
func writeMonth(w io.Writer, view board.MonthView) error {
	fmt.Fprintf(w, "%s %d\n%s\n", view.Month, view.Year, weekdays)

	var due []*board.Day
	for _, week := range view.Weeks {
		cells := make([]string, 0, len(week))
		for _, day := range week {
			if day == nil {
				cells = append(cells, "  ")
				continue
			}
			cell := fmt.Sprintf("%2d", day.Day)
			switch {
			case day.Today:
				cell = fmt.Sprintf("[%d]", day.Day)
			case len(day.Tasks) > 0:
				cell += "*"
			}
			cells = append(cells, cell)
			if len(day.Tasks) > 0 {
				due = append(due, day)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(joinCells(cells), " "))
	}

	if len(due) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, day := range due {
		for _, t := range day.Tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", day.Date, shortID(t.ID), oneLine(t.Title), t.Status.Label())
		}
	}
	return tw.Flush()
}

// joinCells pads every cell to the four columns of a weekday heading.
func joinCells(cells []string) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(c)
		if pad := 4 - len(c); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	return b.String()
}
