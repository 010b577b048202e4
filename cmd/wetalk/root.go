package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wetalk/wetalk-auth"
)

// Global flags available to all subcommands.
var (
	serverURL string
	debug     bool
)

// NewRootCmd creates the root command for the wetalk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wetalk",
		Short:         "WeTalk authentication client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "auth service origin (overrides WETALK_SERVER)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewSignupCmd())
	cmd.AddCommand(NewAdminLoginCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}

func clientConfig() auth.Config {
	cfg := auth.LoadConfigFromEnv()
	if serverURL != "" {
		cfg.ServiceOrigin = strings.TrimRight(serverURL, "/")
	}
	if debug {
		cfg.Debug = true
	}
	return cfg
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newAuthenticator builds the client stack used by every subcommand.
func newAuthenticator(cmd *cobra.Command) (*auth.Authenticator, *auth.Client, error) {
	cfg := clientConfig()
	logger := newLogger(cmd.ErrOrStderr())

	client, err := auth.NewClient(cfg, auth.WithClientLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	out := cmd.OutOrStdout()
	notifier := auth.NotifierFunc(func(_ context.Context, n auth.Notification) error {
		_, err := fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Message)
		return err
	})

	a := auth.NewAuthenticator(client, auth.NewSessionStore(),
		auth.WithNotifier(notifier),
		auth.WithLogger(logger),
	)
	return a, client, nil
}

func printIdentity(cmd *cobra.Command, a *auth.Authenticator, client *auth.Client) {
	id, ok := a.Session().Identity()
	if !ok {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:       %s\n", id.ID)
	fmt.Fprintf(out, "username: %s\n", id.Username)
	fmt.Fprintf(out, "name:     %s\n", id.Name)
	if id.Bio != "" {
		fmt.Fprintf(out, "bio:      %s\n", id.Bio)
	}
	if url := id.AvatarURL(); url != "" {
		fmt.Fprintf(out, "avatar:   %s\n", url)
	}
	if exp, ok := client.SessionExpiry(); ok {
		fmt.Fprintf(out, "expires:  %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
}
