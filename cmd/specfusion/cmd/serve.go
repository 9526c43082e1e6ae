package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specfusion/specfusion/internal/preflight"
	"github.com/specfusion/specfusion/internal/server"
	"github.com/specfusion/specfusion/internal/store"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the documentation query server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}

			checks := preflight.RunAll(cfg)
			for _, c := range checks {
				if c.Status != preflight.StatusPass {
					fmt.Fprint(cmd.ErrOrStderr(), preflight.Format([]preflight.CheckResult{c}))
				}
			}
			if preflight.HasCriticalFailures(checks) {
				return fmt.Errorf("preflight checks failed")
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(st, cfg).ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides PORT)")
	return cmd
}
