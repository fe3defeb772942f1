package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/yungbote/reforest-backend/internal/app"
	repotestutil "github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

type cliFixture struct {
	owner   *types.User
	project *types.Project
	site    *types.Site
}

// setupCLI points the CLI at a fresh sqlite file and seeds an owner, project
// and site through the same wiring the commands use.
func setupCLI(t *testing.T) cliFixture {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("REFOREST_LOG_MODE", "nop")
	t.Setenv("REFOREST_DB_DRIVER", "sqlite")
	t.Setenv("REFOREST_DB_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("REFOREST_METRICS_ENABLED", "false")

	cfg, err := app.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, true)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close(ctx)

	owner := repotestutil.SeedUser(t, ctx, a.DB, "owner@example.com")
	project := repotestutil.SeedProject(t, ctx, a.DB, owner.ID)
	site := repotestutil.SeedSite(t, ctx, a.DB, project.ID)
	return cliFixture{owner: owner, project: project, site: site}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := execute(context.Background(), root)
	return stdout.String(), stderr.String(), err
}

func TestMigrateCommand(t *testing.T) {
	setupCLI(t)
	out, _, err := runCLI(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "schema up to date") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestImportCommandPartialFailure(t *testing.T) {
	fx := setupCLI(t)
	path := filepath.Join(t.TempDir(), "records.json")
	body := `[
	  {"uid":"good-1","type":"multi-tree-registration","intervention_start_date":"2024-01-10",
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]},
	   "total_tree_count":4,"species":[{"other_species":"Inga","species_count":4}]},
	  {"uid":"bad-1","type":"multi-tree-registration","intervention_start_date":"2024-01-10",
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]},
	   "total_tree_count":9,"species":[{"other_species":"Inga","species_count":4}]}
	]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write records: %v", err)
	}

	out, stderr, err := runCLI(t, "import", path,
		"--project", strconv.FormatInt(fx.project.ID, 10),
		"--user", strconv.FormatInt(fx.owner.ID, 10),
		"--site", fx.site.UID,
		"--format", "json",
	)
	if err != nil {
		t.Fatalf("import: %v (stderr %s)", err, stderr)
	}
	var res domainagg.BulkIngestResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if res.TotalProcessed != 2 || res.Passed != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.FailedInterventionUID[0].UID != "bad-1" {
		t.Fatalf("unexpected failure: %+v", res.FailedInterventionUID)
	}
}

func TestImportCommandUnknownSitePrintsAPIError(t *testing.T) {
	fx := setupCLI(t)
	path := filepath.Join(t.TempDir(), "records.yaml")
	if err := os.WriteFile(path, []byte("- type: fencing\n  geometry: {type: Point, coordinates: [1, 2]}\n"), 0o600); err != nil {
		t.Fatalf("write records: %v", err)
	}

	_, stderr, err := runCLI(t, "import", path,
		"--project", strconv.FormatInt(fx.project.ID, 10),
		"--user", strconv.FormatInt(fx.owner.ID, 10),
		"--site", "site_missing",
	)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(stderr, `"code": "not_found"`) || !strings.Contains(stderr, `"status": 404`) {
		t.Fatalf("expected api error payload, got %q", stderr)
	}
}

func TestTransferCommandMissingIntervention(t *testing.T) {
	fx := setupCLI(t)
	_, stderr, err := runCLI(t, "transfer", "999999",
		"--to", strconv.FormatInt(fx.owner.ID, 10),
		"--requester", strconv.FormatInt(fx.owner.ID, 10),
	)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(stderr, `"code": "not_found"`) {
		t.Fatalf("expected not_found payload, got %q", stderr)
	}
}

func TestReconcileCommandRequiresChange(t *testing.T) {
	setupCLI(t)
	_, stderr, err := runCLI(t, "reconcile", "inv_x", "isp_x")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(stderr, "error: one of --scientific-species or --count is required") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}
