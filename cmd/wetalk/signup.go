package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wetalk/wetalk-auth"
)

// NewSignupCmd creates the signup subcommand.
func NewSignupCmd() *cobra.Command {
	var name, bio, username, password, avatar string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with a profile image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, client, err := newAuthenticator(cmd)
			if err != nil {
				return err
			}

			form := auth.NewSignupForm(a, client.Config().MaxAvatarBytes)
			defer form.Unmount()

			form.Set(auth.FieldName, name)
			form.Set(auth.FieldBio, bio)
			form.Set(auth.FieldUsername, username)
			form.Set(auth.FieldPassword, password)

			if avatar != "" {
				f, err := os.Open(avatar)
				if err != nil {
					return fmt.Errorf("open avatar: %w", err)
				}
				_, err = form.SelectAvatar(f.Name(), f)
				f.Close()
				if err != nil {
					return err
				}
			}

			if _, err := form.Submit(cmd.Context()); err != nil {
				return err
			}

			printIdentity(cmd, a, client)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	cmd.Flags().StringVarP(&username, "username", "u", "", "unique handle")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&avatar, "avatar", "", "path to the profile image")

	return cmd
}
