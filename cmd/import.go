package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
)

func newImportCmd(st *cliState) *cobra.Command {
	var (
		projectID int64
		userID    int64
		siteUID   string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk ingest interventions from a JSON or YAML file",
		Long:  importLongHelp(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			file, err := loadRecordFile(args[0])
			if err != nil {
				return err
			}
			records, err := file.toInputs()
			if err != nil {
				return err
			}
			site := strings.TrimSpace(siteUID)
			if site == "" {
				site = file.SiteUID
			}

			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Interventions.BulkIngestInterventions(ctx, domainagg.BulkIngestInput{
					ProjectID: projectID,
					UserID:    userID,
					SiteUID:   site,
					Records:   records,
				})
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, res)
				}
				renderBulkResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&userID, "user", 0, "creating user id")
	cmd.Flags().StringVar(&siteUID, "site", "", "site uid shared by every record (overrides site_uid in the file; optional)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func importLongHelp() string {
	names := make([]string, 0, len(interventions.AllTypes()))
	for _, t := range interventions.AllTypes() {
		names = append(names, string(t))
	}
	return fmt.Sprintf(`Bulk ingest interventions from a JSON or YAML file.

The file holds either a list of records or an object with "site_uid" and
"records". Each record's "type" is one of:
  %s

Records are written independently: invalid rows are reported and the rest
are kept.`, strings.Join(names, "\n  "))
}
