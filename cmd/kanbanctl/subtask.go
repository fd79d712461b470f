package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func subtaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Manage the checklist of a task",
	}
	cmd.AddCommand(subtaskAddCmd(a))
	cmd.AddCommand(subtaskToggleCmd(a))
	cmd.AddCommand(subtaskRmCmd(a))
	return cmd
}

func subtaskAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add TASK TITLE",
		Short: "Add a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			task, err := a.findTask(args[0])
			if err != nil {
				return err
			}
			st, err := a.store.AddSubtask(task.ID, args[1])
			if err != nil {
				return err
			}
			if err := a.finish(); err != nil {
				return err
			}
			return render(a.out, a.output, st, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added subtask %s to %s\n", shortID(st.ID), shortID(task.ID))
				return err
			})
		},
	}
}

func subtaskToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle TASK SUBTASK",
		Short: "Check or uncheck a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editSubtask(args[0], args[1], func(taskID, subtaskID string) error {
				return a.store.ToggleSubtask(taskID, subtaskID)
			})
		},
	}
}

func subtaskRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm TASK SUBTASK",
		Short: "Remove a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editSubtask(args[0], args[1], func(taskID, subtaskID string) error {
				return a.store.DeleteSubtask(taskID, subtaskID)
			})
		},
	}
}

// editSubtask resolves both references, runs edit and prints the task.
func (a *app) editSubtask(taskRef, subtaskRef string, edit func(taskID, subtaskID string) error) error {
	if err := a.ready(); err != nil {
		return err
	}
	task, err := a.findTask(taskRef)
	if err != nil {
		return err
	}
	st, err := findSubtask(task, subtaskRef)
	if err != nil {
		return err
	}
	if err := edit(task.ID, st.ID); err != nil {
		return err
	}
	if err := a.finish(); err != nil {
		return err
	}

	updated, _ := a.store.Task(task.ID)
	return render(a.out, a.output, updated, func(w io.Writer) error {
		return writeTask(w, updated)
	})
}
