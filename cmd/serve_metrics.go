package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
)

func newServeMetricsCmd(st *cliState) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				st.cfg.Metrics.Addr = addr
			}
			st.cfg.Metrics.Enabled = true
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				a.Start()
				if srv := a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr); srv == nil {
					return fmt.Errorf("metrics address required")
				}
				a.Log.Info("serving metrics", "addr", a.Cfg.Metrics.Addr)
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default metrics.addr)")
	return cmd
}
