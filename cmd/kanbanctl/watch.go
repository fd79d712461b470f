package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/remote"
)

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the board every time it changes on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.localOnly() {
				return errLocalOnly
			}
			if err := a.ready(); err != nil {
				return err
			}

			show := func(snap board.Snapshot) {
				if snap.Loading {
					return
				}
				if snap.Err != "" {
					fmt.Fprintln(a.errOut, snap.Err)
					return
				}
				fmt.Fprintf(a.out, "--- %s\n", time.Now().Format(time.TimeOnly))
				if err := writeBoard(a.out, snap.Tasks, board.Statuses); err != nil {
					a.log.Error().Err(err).Msg("failed to print board")
				}
			}
			show(a.store.Snapshot())
			unsubscribe := a.store.Subscribe(show)
			defer unsubscribe()

			return a.client.Watch(a.ctx, func(c remote.Change) {
				a.log.Debug().Str("op", c.Op).Str("id", c.ID).Msg("board changed")
				a.store.Load(a.ctx)
			})
		},
	}
}
