package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/services"
)

func newVerifyCmd(st *cliState) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "verify <intervention-uid>...",
		Short: "Check stored interventions against their species and tree counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				reports, err := a.Services.Consistency.CheckInterventions(ctx, args)
				if err != nil {
					return err
				}
				if format == formatJSON {
					if err := outputJSON(cmd, reports); err != nil {
						return err
					}
				} else {
					renderReports(cmd, reports)
				}
				bad := 0
				for _, r := range reports {
					if !r.OK() {
						bad++
					}
				}
				if bad > 0 {
					return &domainagg.Error{
						Code:    domainagg.CodeInvariantViolation,
						Op:      "cli.verify",
						Message: fmt.Sprintf("%d of %d interventions are inconsistent", bad, len(reports)),
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func renderReports(cmd *cobra.Command, reports []services.ConsistencyReport) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"UID", "Type", "Declared", "Species Sum", "Trees", "Issues"})
	for _, r := range reports {
		issues := "ok"
		if !r.OK() {
			codes := make([]string, 0, len(r.Issues))
			for _, i := range r.Issues {
				codes = append(codes, i.Code)
			}
			issues = strings.Join(codes, ", ")
		}
		t.AppendRow(table.Row{r.UID, r.Type, r.DeclaredTotal, r.SpeciesSum, r.TreeCount, issues})
	}
	t.Render()
}
