package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/runs"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/logging"
)

type fixture struct {
	svc      *RunService
	runRepo  *runs.SQLiteRepository
	targetDB string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	profilesDir := filepath.Join(dir, "profiles")
	targetsDir := filepath.Join(dir, "targets")
	for _, d := range []string{profilesDir, targetsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	targetDB := filepath.Join(dir, "target.sqlite")
	target := "name: local\nkind: sqlite\ndsn: " + targetDB + "\n"
	if err := os.WriteFile(filepath.Join(targetsDir, "local.yaml"), []byte(target), 0o644); err != nil {
		t.Fatal(err)
	}
	narrow := "name: narrow\ntable: narrow\ncolumns: 2\ncolumn_size: UNIFORM(4..12)\n"
	if err := os.WriteFile(filepath.Join(profilesDir, "narrow.yaml"), []byte(narrow), 0o644); err != nil {
		t.Fatal(err)
	}

	runRepo := runs.NewSQLiteRepository(filepath.Join(dir, "runs.sqlite"))
	if err := runRepo.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runRepo.Close() })

	svc := NewRunService(
		profiles.NewFileRepository(profilesDir),
		targets.NewFileRepository(targetsDir),
		runRepo,
		nil,
		logging.NewLogger("error"),
		Defaults{Threads: 4, Consistency: "LOCAL_ONE"},
	)
	return &fixture{svc: svc, runRepo: runRepo, targetDB: targetDB}
}

func ops(n uint64) *uint64 { return &n }

func (f *fixture) run(t *testing.T, req *domain.RunRequest) (*domain.Run, domain.RunStats) {
	t.Helper()
	plan, err := f.svc.Plan(req)
	if err != nil {
		t.Fatal(err)
	}
	run, err := f.svc.Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatal(err)
	}
	var stats domain.RunStats
	if err := json.Unmarshal(run.Stats, &stats); err != nil {
		t.Fatal(err)
	}
	return run, stats
}

func TestWriteThenReadAgainstSQLite(t *testing.T) {
	f := newFixture(t)

	w, wstats := f.run(t, &domain.RunRequest{Command: domain.CommandWrite, TargetID: "local", Operations: ops(200)})
	if w.Status != domain.RunStatusSuccess || wstats.Operations != 200 || wstats.Successes != 200 {
		t.Fatalf("unexpected write run %+v %+v", w, wstats)
	}
	if w.Population != "SEQ(1..200)" {
		t.Fatalf("expected default population SEQ(1..200), got %s", w.Population)
	}

	r, rstats := f.run(t, &domain.RunRequest{
		Command:    domain.CommandRead,
		TargetID:   "local",
		Population: "SEQ(1..200)",
		Operations: ops(200),
		Threads:    3,
	})
	if r.Status != domain.RunStatusSuccess || rstats.ValidationErrors != 0 {
		t.Fatalf("unexpected read run %+v %+v", r, rstats)
	}
	if r.Fingerprint != w.Fingerprint {
		t.Fatalf("expected read fingerprint %s to match write %s", r.Fingerprint, w.Fingerprint)
	}

	u, ustats := f.run(t, &domain.RunRequest{
		Command:    domain.CommandRead,
		TargetID:   "local",
		Population: "UNIFORM(1..200)",
		Operations: ops(500),
	})
	if u.Status != domain.RunStatusSuccess || ustats.Operations != 500 {
		t.Fatalf("expected random reads over the written range to validate, got %+v", ustats)
	}

	stored, err := f.svc.GetRun(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.RunStatusSuccess || stored.ConfigHash == "" || stored.Fingerprint != w.Fingerprint {
		t.Fatalf("unexpected stored run %+v", stored)
	}
	list, err := f.svc.ListRuns(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(list))
	}
}

func TestReadBeyondWrittenRangeFails(t *testing.T) {
	f := newFixture(t)
	f.run(t, &domain.RunRequest{Command: domain.CommandWrite, TargetID: "local", Operations: ops(50)})

	r, stats := f.run(t, &domain.RunRequest{
		Command:    domain.CommandRead,
		TargetID:   "local",
		Population: "SEQ(1..100)",
		Operations: ops(100),
	})
	if r.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed run, got %s", r.Status)
	}
	if stats.ValidationErrors != 50 || stats.Successes != 50 {
		t.Fatalf("expected 50 missing rows, got %+v", stats)
	}
	if !strings.Contains(r.Error, "50 of 100 operations failed") {
		t.Fatalf("unexpected error summary %q", r.Error)
	}
}

func TestCustomProfileWithVariableColumnSize(t *testing.T) {
	f := newFixture(t)
	w, _ := f.run(t, &domain.RunRequest{Command: domain.CommandWrite, ProfileID: "narrow", TargetID: "local", Operations: ops(64)})
	r, stats := f.run(t, &domain.RunRequest{Command: domain.CommandRead, ProfileID: "narrow", TargetID: "local", Operations: ops(64), Threads: 5})
	if r.Status != domain.RunStatusSuccess || stats.Successes != 64 {
		t.Fatalf("expected narrow profile to validate, got %+v (%s)", stats, r.Error)
	}
	if r.Fingerprint != w.Fingerprint {
		t.Fatal("expected fingerprints to match")
	}
}

func TestReadWithoutSchemaFails(t *testing.T) {
	f := newFixture(t)
	plan, err := f.svc.Plan(&domain.RunRequest{Command: domain.CommandRead, TargetID: "local", Operations: ops(10)})
	if err != nil {
		t.Fatal(err)
	}
	run, err := f.svc.Run(context.Background(), plan, nil)
	if err == nil {
		t.Fatal("expected read against a missing table to fail")
	}
	if run.Status != domain.RunStatusFailed || run.Error == "" {
		t.Fatalf("expected failed run record, got %+v", run)
	}
}

func TestPlanWarnsOnNonDeterministicWrite(t *testing.T) {
	f := newFixture(t)
	plan, err := f.svc.Plan(&domain.RunRequest{
		Command:    domain.CommandWrite,
		TargetID:   "local",
		Population: "GAUSSIAN(1..1000)",
		Duration:   "1s",
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Warning == "" {
		t.Fatal("expected determinism warning")
	}
	if plan.Threads != 4 || plan.Duration != time.Second || plan.Profile.Consistency != "LOCAL_ONE" {
		t.Fatalf("expected defaults applied, got %+v", plan)
	}
}

func TestPlanRejectsUnknownProfileAndTarget(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Plan(&domain.RunRequest{Command: domain.CommandRead, ProfileID: "absent", TargetID: "local", Operations: ops(1)}); err == nil {
		t.Fatal("expected unknown profile error")
	}
	if _, err := f.svc.Plan(&domain.RunRequest{Command: domain.CommandRead, TargetID: "absent", Operations: ops(1)}); err == nil {
		t.Fatal("expected unknown target error")
	}
}

func TestStartRunCompletesInBackground(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.StartRun(&domain.RunRequest{Command: domain.CommandWrite, TargetID: "local", Operations: ops(20)})
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.RunStatusRunning {
		t.Fatalf("expected running, got %s", run.Status)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		got, err := f.svc.GetRun(run.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.RunStatusRunning {
			if got.Status != domain.RunStatusSuccess {
				t.Fatalf("expected success, got %s (%s)", got.Status, got.Error)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run did not finish")
}

func TestShutdownInterruptsBackgroundRuns(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.StartRun(&domain.RunRequest{
		Command:  domain.CommandWrite,
		TargetID: "local",
		Duration: "1h",
		Rate:     50,
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.svc.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	got, err := f.svc.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunStatusFailed || !strings.Contains(got.Error, "interrupted") {
		t.Fatalf("expected interrupted run recorded as failed, got %s (%s)", got.Status, got.Error)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completion time to be recorded")
	}
}

func TestCheckTarget(t *testing.T) {
	f := newFixture(t)
	tgt := &domain.TargetConfig{ID: "local", Name: "local", Kind: domain.TargetKindSQLite, DSN: f.targetDB}
	check, err := CheckTarget(context.Background(), tgt, domain.DefaultProfile(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK || !check.CanCreate {
		t.Fatalf("unexpected check %+v", check)
	}

	bad := &domain.TargetConfig{ID: "x", Name: "x", Kind: "mongodb", DSN: "mongodb://h"}
	if check, err := CheckTarget(context.Background(), bad, nil, false); err == nil || check.OK {
		t.Fatal("expected unsupported kind to fail")
	}
}
