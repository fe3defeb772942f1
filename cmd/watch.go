package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
	"github.com/yungbote/reforest-backend/internal/realtime/bus"
)

func newWatchCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print change events published on the redis channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(st.cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			b, err := bus.NewRedisBus(log, bus.RedisConfig{
				Addr:     st.cfg.Redis.Addr,
				Password: st.cfg.Redis.Password,
				DB:       st.cfg.Redis.DB,
				Channel:  st.cfg.Redis.Channel,
			})
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signal.NotifyContext(ctxutil.Default(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = b.StartForwarder(ctx, func(ev domainagg.ChangeEvent) {
				if werr := outputJSON(cmd, ev); werr != nil {
					log.Warn("watch: write event failed", "error", werr)
				}
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			<-ctx.Done()
			return nil
		},
	}
}
