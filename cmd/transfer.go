package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

func newTransferCmd(st *cliState) *cobra.Command {
	var (
		newOwnerID  int64
		requesterID int64
		reason      string
		notify      bool
		format      string
	)
	cmd := &cobra.Command{
		Use:   "transfer <intervention-id>...",
		Short: "Transfer interventions and their trees to another project member",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Interventions.BulkTransferOwnership(ctx, domainagg.BulkTransferOwnershipInput{
					InterventionIDs: ids,
					NewOwnerID:      newOwnerID,
					RequesterID:     requesterID,
					Reason:          reason,
					Notify:          notify,
				})
				if err != nil {
					return err
				}
				if format == formatJSON {
					if err := outputJSON(cmd, res); err != nil {
						return err
					}
				} else {
					renderTransferResult(cmd, res)
				}
				// A single id keeps its structured failure as the exit error.
				if len(ids) == 1 && len(res.Failed) == 1 {
					f := res.Failed[0]
					return &domainagg.Error{Code: f.Code, Op: "cli.transfer", Message: f.Error}
				}
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d of %d transfers failed", len(res.Failed), len(ids))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&newOwnerID, "to", 0, "new owner user id")
	cmd.Flags().Int64Var(&requesterID, "requester", 0, "requesting user id")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the transfer")
	cmd.Flags().BoolVar(&notify, "notify", false, "publish a notification for each transfer")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	out := make([]int64, 0, len(args))
	for _, raw := range args {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid intervention id %q", part)
			}
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no intervention ids given")
	}
	return out, nil
}
