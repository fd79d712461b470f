package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/remote"
)

var errLocalOnly = errors.New("no server configured, set KANBAN_URL and KANBAN_PUBLIC_KEY")

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
}

// resolve reads the password from in when it was not given as a flag.
func (f *credentialFlags) resolve(in io.Reader) error {
	if f.password != "" {
		return nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}
	f.password = strings.TrimRight(line, "\r\n")
	if f.password == "" {
		return errors.New("password is required")
	}
	return nil
}

func signUpCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authenticate(creds, "Signed up", a.auth.SignUp)
		},
	}
	creds.register(cmd)
	return cmd
}

func signInCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authenticate(creds, "Signed in", a.auth.SignIn)
		},
	}
	creds.register(cmd)
	return cmd
}

type authFunc func(ctx context.Context, email, password string) (*remote.Session, error)

func (a *app) authenticate(creds credentialFlags, verb string, fn authFunc) error {
	if a.localOnly() {
		return errLocalOnly
	}
	if err := creds.resolve(a.in); err != nil {
		return err
	}
	session, err := fn(a.ctx, creds.email, creds.password)
	if err != nil {
		return err
	}
	// The auth listener has loaded the board by now.
	if msg := a.store.Err(); msg != "" {
		return errors.New(msg)
	}
	fmt.Fprintf(a.out, "%s as %s (%d tasks)\n", verb, session.User.Email, len(a.store.Tasks()))
	return nil
}

func signOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.localOnly() {
				return errLocalOnly
			}
			if a.auth.Current() == nil {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			if err := a.auth.SignOut(a.ctx); err != nil {
				a.log.Warn().Err(err).Msg("server sign out failed, session forgotten locally")
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.localOnly() {
				fmt.Fprintln(a.out, "Local-only board at", a.paths.board())
				return nil
			}
			session, err := a.auth.GetSession(a.ctx)
			if err != nil {
				return err
			}
			if session == nil {
				return errNotSignedIn
			}
			return render(a.out, a.output, session.User, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s (%s)\nsession expires %s\n",
					session.User.Email, session.User.ID, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
				return err
			})
		},
	}
}
