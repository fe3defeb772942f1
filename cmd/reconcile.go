package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

func newReconcileCmd(st *cliState) *cobra.Command {
	var (
		userID    int64
		speciesID int64
		count     int
		format    string
	)
	cmd := &cobra.Command{
		Use:   "reconcile <intervention-uid> <species-uid>",
		Short: "Change the species reference or count of one intervention species line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			in := domainagg.ReconcileSpeciesInput{
				InterventionUID: args[0],
				SpeciesUID:      args[1],
				UserID:          userID,
			}
			if cmd.Flags().Changed("scientific-species") {
				in.ScientificSpeciesID = &speciesID
			}
			if cmd.Flags().Changed("count") {
				in.SpeciesCount = &count
			}
			if in.ScientificSpeciesID == nil && in.SpeciesCount == nil {
				return fmt.Errorf("one of --scientific-species or --count is required")
			}

			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Interventions.ReconcileSpeciesCount(ctx, in)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, res)
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Intervention", "Species", "Count", "Trees Updated", "Changed"})
				t.AppendRow(table.Row{res.InterventionUID, res.Species.UID, res.Species.SpeciesCount, res.TreesUpdated, fmt.Sprint(res.ChangedFields)})
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "acting user id")
	cmd.Flags().Int64Var(&speciesID, "scientific-species", 0, "catalog species id to point the line at")
	cmd.Flags().IntVar(&count, "count", 0, "new declared species count")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}
