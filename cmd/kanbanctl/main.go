// Command kanbanctl manages a Kanban board from the terminal. With
// KANBAN_URL and KANBAN_PUBLIC_KEY set it syncs with a kanban server;
// otherwise it keeps the board in a local file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "kanbanctl",
		Short:         "kanbanctl - a Kanban board in your terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.url, "url", "", "Server URL (default $KANBAN_URL)")
	flags.StringVar(&a.key, "key", "", "Server public key (default $KANBAN_PUBLIC_KEY)")
	flags.StringVarP(&a.output, "output", "o", formatTable, "Output format: table, json or yaml")
	flags.StringVar(&a.configDir, "config-dir", "", "Configuration directory (default $XDG_CONFIG_HOME/kanbanctl)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(signUpCmd(a))
	rootCmd.AddCommand(signInCmd(a))
	rootCmd.AddCommand(signOutCmd(a))
	rootCmd.AddCommand(whoamiCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(moveCmd(a))
	rootCmd.AddCommand(rmCmd(a))
	rootCmd.AddCommand(subtaskCmd(a))
	rootCmd.AddCommand(calendarCmd(a))
	rootCmd.AddCommand(seedCmd(a))
	rootCmd.AddCommand(watchCmd(a))

	return rootCmd
}
