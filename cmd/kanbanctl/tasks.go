package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/board"
)

func listCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the board",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			statuses := board.Statuses
			if status != "" {
				s, err := board.ParseStatus(status)
				if err != nil {
					return err
				}
				statuses = []board.Status{s}
			}

			tasks := a.store.Tasks()
			var ordered []board.Task
			for _, s := range statuses {
				ordered = append(ordered, board.Column(tasks, s)...)
			}
			if ordered == nil {
				ordered = []board.Task{}
			}
			return render(a.out, a.output, ordered, func(w io.Writer) error {
				return writeBoard(w, tasks, statuses)
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show one status: todo, in-progress or done")
	return cmd
}

// taskFlags are the editable fields shared by add and edit.
type taskFlags struct {
	title       string
	description string
	priority    string
	status      string
	assignee    string
	due         string
}

func (f *taskFlags) register(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVarP(&f.title, "title", "t", "", "Task title")
	}
	cmd.Flags().StringVarP(&f.description, "desc", "d", "", "Description")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium, high or critical")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "Status: todo, in-progress or done")
	cmd.Flags().StringVarP(&f.assignee, "assignee", "a", "", "Assignee")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
}

func addCmd(a *app) *cobra.Command {
	var (
		fields taskFlags
		order  int
	)
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			in := board.TaskInput{
				Title:       args[0],
				Description: fields.description,
				Priority:    board.Priority(fields.priority),
				Assignee:    fields.assignee,
				DueDate:     fields.due,
			}
			if fields.status != "" {
				s, err := board.ParseStatus(fields.status)
				if err != nil {
					return err
				}
				in.Status = &s
			}
			if cmd.Flags().Changed("order") {
				in.Order = &order
			}

			task, err := a.store.Add(in)
			if err != nil {
				return err
			}
			if err := a.finish(); err != nil {
				return err
			}
			if persisted, ok := a.store.Task(task.ID); ok {
				task = persisted
			}
			return render(a.out, a.output, task, func(w io.Writer) error {
				return writeTask(w, task)
			})
		},
	}
	fields.register(cmd, false)
	cmd.Flags().IntVar(&order, "order", 0, "Position in the column (default end of column)")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	var fields taskFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			task, err := a.findTask(args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var patch board.TaskPatch
			if flags.Changed("title") {
				patch.Title = &fields.title
			}
			if flags.Changed("desc") {
				patch.Description = &fields.description
			}
			if flags.Changed("priority") {
				p := board.Priority(fields.priority)
				patch.Priority = &p
			}
			if flags.Changed("assignee") {
				patch.Assignee = &fields.assignee
			}
			if flags.Changed("due") {
				patch.DueDate = &fields.due
			}
			if err := patch.Validate(); err != nil {
				return err
			}

			to := task.Status
			if flags.Changed("status") {
				if to, err = board.ParseStatus(fields.status); err != nil {
					return err
				}
			}
			if patch.Empty() && to == task.Status {
				return errors.New("nothing to change")
			}

			// A status change goes through the reorder engine so both
			// columns stay dense.
			if to != task.Status {
				if _, err := a.store.Reorder(board.Move{TaskID: task.ID, From: task.Status, To: to, Index: board.EndOfList}); err != nil {
					return err
				}
				// the update response must not race the order upsert
				a.store.Wait()
			}
			if err := a.store.Update(task.ID, patch); err != nil {
				return err
			}
			if err := a.finish(); err != nil {
				return err
			}

			updated, _ := a.store.Task(task.ID)
			return render(a.out, a.output, updated, func(w io.Writer) error {
				return writeTask(w, updated)
			})
		},
	}
	fields.register(cmd, true)
	return cmd
}

func moveCmd(a *app) *cobra.Command {
	var (
		index int
		over  string
	)
	cmd := &cobra.Command{
		Use:   "move ID [STATUS]",
		Short: "Move a task within or across columns",
		Long: `Move a task to a position in a column.

With STATUS the task goes to --index in that column (default the end).
With --over the move is resolved the way a drop is: onto another task
takes that task's place, onto a status name appends to that column.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			task, err := a.findTask(args[0])
			if err != nil {
				return err
			}

			var m board.Move
			switch {
			case over != "":
				target := over
				if _, err := board.ParseStatus(over); err != nil {
					t, err := a.findTask(over)
					if err != nil {
						return err
					}
					target = t.ID
				}
				var ok bool
				m, ok = board.ResolveDrop(a.store.Tasks(), task.ID, target)
				if !ok {
					return fmt.Errorf("cannot drop %s onto %s", shortID(task.ID), over)
				}
			case len(args) == 2:
				to, err := board.ParseStatus(args[1])
				if err != nil {
					return err
				}
				m = board.Move{TaskID: task.ID, From: task.Status, To: to, Index: index}
			default:
				return errors.New("give a STATUS or --over")
			}

			changed, err := a.store.Reorder(m)
			if err != nil {
				return err
			}
			if err := a.finish(); err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(a.errOut, "Task is already there")
			}

			moved, _ := a.store.Task(task.ID)
			return render(a.out, a.output, moved, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s is #%d in %s\n", shortID(moved.ID), moved.Order, moved.Status.Label())
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", board.EndOfList, "Position in the destination column (default end)")
	cmd.Flags().StringVar(&over, "over", "", "Drop onto a task id or a status name")
	return cmd
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			task, err := a.findTask(args[0])
			if err != nil {
				return err
			}
			if err := a.store.Delete(task.ID); err != nil {
				return err
			}
			if err := a.finish(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s %q\n", shortID(task.ID), task.Title)
			return nil
		},
	}
}
