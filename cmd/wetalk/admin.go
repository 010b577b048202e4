package main

import (
	"github.com/spf13/cobra"
	"github.com/wetalk/wetalk-auth"
)

// NewAdminLoginCmd creates the admin-login subcommand.
func NewAdminLoginCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "admin-login",
		Short: "Authenticate into the admin surface with the shared secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, client, err := newAuthenticator(cmd)
			if err != nil {
				return err
			}

			destination := client.Config().AdminDashboardPath
			screen := auth.NewAdminLoginScreen(a, destination)
			if d := screen.Resolve(cmd.Context()); d.Redirect {
				cmd.Printf("admin session active, continue to %s\n", d.Destination)
				return nil
			}

			form := auth.NewAdminLoginForm(a)
			form.Set(auth.FieldSecretKey, secret)
			if _, err := form.Submit(cmd.Context()); err != nil {
				return err
			}

			if d := screen.Decide(); d.Redirect {
				cmd.Printf("continue to %s\n", d.Destination)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "admin secret key")

	return cmd
}
