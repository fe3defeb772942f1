package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/platform/apierr"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}

// printError writes aggregate failures as their client payload and anything
// else as a plain line.
func printError(cmd *cobra.Command, err error) {
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		cmd.PrintErrln("error:", err)
		return
	}
	payload := apierr.FromError(err)
	enc := json.NewEncoder(cmd.ErrOrStderr())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(payload); encErr != nil {
		cmd.PrintErrln("error:", err)
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func renderBulkResult(cmd *cobra.Command, res domainagg.BulkIngestResult) {
	summary := newTable(cmd)
	summary.AppendHeader(table.Row{"Processed", "Passed", "Failed", "Fallback"})
	summary.AppendRow(table.Row{res.TotalProcessed, res.Passed, res.Failed, strconv.FormatBool(res.UsedFallback)})
	summary.Render()

	if len(res.FailedInterventionUID) == 0 {
		return
	}
	failures := newTable(cmd)
	failures.AppendHeader(table.Row{"UID", "Error"})
	for _, f := range res.FailedInterventionUID {
		uid := f.UID
		if uid == "" {
			uid = "-"
		}
		failures.AppendRow(table.Row{uid, f.Error})
	}
	failures.Render()
}

func renderTransferResult(cmd *cobra.Command, res domainagg.BulkTransferOwnershipResult) {
	if len(res.Successful) > 0 {
		ok := newTable(cmd)
		ok.AppendHeader(table.Row{"ID", "UID", "Previous Owner", "New Owner", "Trees"})
		for _, r := range res.Successful {
			ok.AppendRow(table.Row{r.InterventionID, r.InterventionUID, r.PreviousOwnerID, r.NewOwnerID, r.TreesTransferred})
		}
		ok.Render()
	}
	if len(res.Failed) > 0 {
		failed := newTable(cmd)
		failed.AppendHeader(table.Row{"ID", "Code", "Error"})
		for _, f := range res.Failed {
			failed.AppendRow(table.Row{f.ID, string(f.Code), f.Error})
		}
		failed.Render()
	}
}
