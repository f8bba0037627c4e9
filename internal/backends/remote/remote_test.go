package remote_test

import (
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"gridcapacity/internal/api"
	"gridcapacity/internal/backends"
	"gridcapacity/internal/backends/remote"
	"gridcapacity/internal/caseio"
	"gridcapacity/internal/config"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/model"
)

// startService runs the real API server in-process so the client is tested
// against the exact protocol it speaks in production.
func startService(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultServer()
	cfg.CaseDir = dir
	cfg.HistoryDB = filepath.Join(dir, "runs.db")
	cfg.SessionTTL = config.Duration(time.Minute)
	cfg.RateLimit = 1000
	cfg.RateBurst = 1000

	net := &model.Network{
		SnMVA: 100,
		Buses: []model.Bus{
			{Number: 0, Name: "SWING", VnKV: 110, Type: model.BusTypeSwing},
			{Number: 1, Name: "LOAD", VnKV: 110, Type: model.BusTypeLoad},
		},
		Branches: []model.Branch{
			{FromNumber: 0, ToNumber: 1, ID: "1", RPU: 0.01, XPU: 0.05,
				Rates: model.Rates{Rate1: 200, Rate2: 240}, InService: true},
		},
		Loads: []model.Load{
			{Number: 1, ID: "1", MVA: model.FromPMW(10, 0.9), InService: true},
		},
		SwingBuses: []model.SwingBus{{Number: 0, VmPU: 1.0, MaxPMW: 1000}},
	}
	if err := caseio.SaveCase(net, filepath.Join(dir, "twobus.json")); err != nil {
		t.Fatal(err)
	}

	server, err := api.New(cfg, envs.Envs{}, zap.NewNop())
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenSolveAndMirror(t *testing.T) {
	srv := startService(t)
	b := remote.New(srv.URL, nil)
	defer b.Close()

	if err := b.OpenCase("twobus.json"); err != nil {
		t.Fatalf("OpenCase: %v", err)
	}
	if b.CaseName() != "twobus.json" {
		t.Errorf("CaseName = %q", b.CaseName())
	}
	if len(b.Buses()) != 2 || len(b.Branches()) != 1 || len(b.Loads()) != 1 {
		t.Fatalf("network mirror: %d buses, %d branches, %d loads",
			len(b.Buses()), len(b.Branches()), len(b.Loads()))
	}

	if err := b.RunSolver(backends.SolveOptions{}); err != nil {
		t.Fatalf("RunSolver: %v", err)
	}
	if !b.Converged() {
		t.Fatal("two bus case must converge")
	}
	voltages := b.BusVoltagesPU()
	if len(voltages) != 2 || voltages[0] != 1.0 {
		t.Errorf("voltages = %v", voltages)
	}
	loadings, err := b.BranchLoadingsPct("Rate1")
	if err != nil {
		t.Fatalf("BranchLoadingsPct: %v", err)
	}
	if len(loadings) != 1 || loadings[0] <= 0 || loadings[0] >= 100 {
		t.Errorf("loadings = %v", loadings)
	}
}

func TestModificationsKeepMirrorInStep(t *testing.T) {
	srv := startService(t)
	b := remote.New(srv.URL, nil)
	defer b.Close()

	if err := b.OpenCase("twobus.json"); err != nil {
		t.Fatalf("OpenCase: %v", err)
	}
	if err := b.AddLoad(1, "Tm", model.FromPMW(20, 0.9)); err != nil {
		t.Fatalf("AddLoad: %v", err)
	}
	if len(b.Loads()) != 2 {
		t.Errorf("mirror loads = %d, want 2", len(b.Loads()))
	}
	if err := b.RemoveLoad(1, "Tm"); err != nil {
		t.Fatalf("RemoveLoad: %v", err)
	}
	if len(b.Loads()) != 1 {
		t.Errorf("mirror loads after remove = %d, want 1", len(b.Loads()))
	}

	branch := b.Branches()[0]
	if err := b.SetBranchStatus(branch, false); err != nil {
		t.Fatalf("SetBranchStatus: %v", err)
	}
	if b.Branches()[0].InService {
		t.Error("mirror branch still in service")
	}

	// Reopen restores the pristine case on server and mirror.
	if err := b.OpenCase("twobus.json"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !b.Branches()[0].InService {
		t.Error("branch not restored after reopen")
	}
}

func TestOpenUnknownCaseReturnsTypedError(t *testing.T) {
	srv := startService(t)
	b := remote.New(srv.URL, nil)
	defer b.Close()

	err := b.OpenCase("missing.json")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *remote.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Code != "CASE_OPEN_FAILED" {
		t.Errorf("code = %q", apiErr.Code)
	}
}
