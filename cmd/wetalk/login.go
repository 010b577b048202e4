package main

import (
	"github.com/spf13/cobra"
	"github.com/wetalk/wetalk-auth"
)

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with username and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, client, err := newAuthenticator(cmd)
			if err != nil {
				return err
			}

			screen := auth.NewLoginScreen(a, client.Config().HomePath)
			if d := screen.Resolve(cmd.Context()); d.Redirect {
				cmd.Printf("already logged in, continue to %s\n", d.Destination)
				printIdentity(cmd, a, client)
				return nil
			}

			form := auth.NewLoginForm(a)
			form.Set(auth.FieldUsername, username)
			form.Set(auth.FieldPassword, password)

			if _, err := form.Submit(cmd.Context()); err != nil {
				return err
			}

			printIdentity(cmd, a, client)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")

	return cmd
}
