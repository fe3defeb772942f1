package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	"github.com/yungbote/reforest-backend/internal/pkg/ctxutil"
)

type cliState struct {
	configPath string
	cfg        app.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}
	root := &cobra.Command{
		Use:           "reforest",
		Short:         "Intervention ingestion and consistency tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(st.configPath)
			if err != nil {
				return err
			}
			st.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(
		newMigrateCmd(st),
		newImportCmd(st),
		newReconcileCmd(st),
		newTransferCmd(st),
		newVerifyCmd(st),
		newSeedCmd(st),
		newMembersCmd(st),
		newServeMetricsCmd(st),
		newWatchCmd(st),
	)
	return root
}

// execute runs root and renders any failure to its error stream.
func execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		if cmd == nil {
			cmd = root
		}
		printError(cmd, err)
	}
	return err
}

// withApp builds the application, runs fn and always closes it.
func (st *cliState) withApp(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	ctx := ctxutil.Default(cmd.Context())
	a, err := app.New(ctx, st.cfg, migrate)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := ctxutil.Detached(ctx, 10*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			a.Log.Warn("shutdown incomplete", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

func newMigrateCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.withApp(cmd, true, func(_ context.Context, a *app.App) error {
				cmd.Printf("schema up to date (%s)\n", st.cfg.DB.Driver)
				return nil
			})
		},
	}
}
