package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/board"
)

const monthLayout = "2006-01"

func calendarCmd(a *app) *cobra.Command {
	var (
		month   string
		overdue bool
	)
	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Show the tasks due in a month",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			today := time.Now()
			tasks := a.store.Tasks()

			if overdue {
				late := board.Overdue(tasks, today)
				if late == nil {
					late = []board.Task{}
				}
				return render(a.out, a.output, late, func(w io.Writer) error {
					if len(late) == 0 {
						_, err := fmt.Fprintln(w, "Nothing overdue")
						return err
					}
					return writeBoard(w, late, board.Statuses[:2])
				})
			}

			year, m := today.Year(), today.Month()
			if month != "" {
				t, err := time.Parse(monthLayout, month)
				if err != nil {
					return fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
				year, m = t.Year(), t.Month()
			}

			view := board.Month(year, m, tasks, today)
			return render(a.out, a.output, view, func(w io.Writer) error {
				return writeMonth(w, view)
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to show (YYYY-MM, default this month)")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "List unfinished tasks past their due date instead")
	return cmd
}
