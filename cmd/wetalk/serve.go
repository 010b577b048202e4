package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wetalk/wetalk-auth/devserver"
	"github.com/wetalk/wetalk-auth/repository"
)

// NewServeCmd creates the serve subcommand running the reference service.
func NewServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference auth service",
		Long: `Run a local WeTalk auth service. Accounts live in sqlite
(DATABASE_DSN, in memory by default) and sessions travel in cookies.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := devserver.LoadConfigFromEnv()
			if port != "" {
				cfg.Port = port
			}
			if debug {
				cfg.Debug = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := repository.Open(ctx, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := newLogger(cmd.ErrOrStderr())
			srv := devserver.New(cfg, repository.NewUsers(db), devserver.WithLogger(logger))

			go func() {
				<-ctx.Done()
				_ = srv.Shutdown()
			}()

			cmd.Printf("wetalk auth service listening on :%s\n", cfg.Port)
			return srv.Listen(":" + cfg.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

