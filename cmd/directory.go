package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yungbote/reforest-backend/internal/app"
	"github.com/yungbote/reforest-backend/internal/services"
)

func loadSeedFile(path string) (services.SeedInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.SeedInput{}, err
	}
	if isYAMLPath(path) {
		if data, err = yamlToJSON(data); err != nil {
			return services.SeedInput{}, err
		}
	}
	var in services.SeedInput
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return services.SeedInput{}, fmt.Errorf("parse seed: %w", err)
	}
	return in, nil
}

func newSeedCmd(st *cliState) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load users, projects, sites, members and catalog species from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			in, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Directory.Seed(ctx, in)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, res)
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Kind", "ID", "UID", "Name"})
				for _, u := range res.Users {
					t.AppendRow(table.Row{"user", u.ID, u.UID, u.Email})
				}
				for _, p := range res.Projects {
					t.AppendRow(table.Row{"project", p.ID, p.UID, p.Name})
				}
				for _, s := range res.Sites {
					t.AppendRow(table.Row{"site", s.ID, s.UID, s.Name})
				}
				for _, sp := range res.Species {
					t.AppendRow(table.Row{"species", sp.ID, sp.UID, sp.ScientificName})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func newMembersCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Inspect and change project membership",
	}
	cmd.AddCommand(newMembersListCmd(st), newMembersSetRoleCmd(st))
	return cmd
}

func newMembersListCmd(st *cliState) *cobra.Command {
	var (
		projectID int64
		format    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the members of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				members, err := a.Services.Directory.ListMembers(ctx, projectID)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, members)
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"User", "Role", "Since"})
				for _, m := range members {
					t.AppendRow(table.Row{m.UserID, m.ProjectRole, m.CreatedAt.Format("2006-01-02")})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newMembersSetRoleCmd(st *cliState) *cobra.Command {
	var (
		projectID int64
		userID    int64
		role      string
	)
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Add a user to a project or change their role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				m, err := a.Services.Directory.SetMemberRole(ctx, projectID, userID, role)
				if err != nil {
					return err
				}
				cmd.Printf("user %d is %s on project %d\n", m.UserID, m.ProjectRole, m.ProjectID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&role, "role", "", "owner, admin, manager, contributor or observer")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
