package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gridcapacity/internal/capacity"
	"gridcapacity/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndGetRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	headroom, err := MarshalHeadroom(capacity.Headroom{
		{Bus: model.Bus{Number: 151, Name: "NUC-A"}, LoadAvailMVA: model.FromPMW(68.75, 0.9)},
	})
	if err != nil {
		t.Fatalf("MarshalHeadroom: %v", err)
	}
	started := time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)
	id, err := store.Insert(ctx, Run{
		CaseName:   "savnw.json",
		StartedAt:  started,
		Duration:   42 * time.Second,
		Feasible:   17,
		Total:      23,
		PowerFlows: 512,
		Config:     json.RawMessage(`{"case_name":"savnw.json","upper_load_limit_p_mw":100}`),
		Headroom:   headroom,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.CaseName != "savnw.json" || run.Feasible != 17 || run.Total != 23 {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.Duration != 42*time.Second {
		t.Errorf("Duration = %v", run.Duration)
	}
	var payload []struct {
		LoadAvailMVA [2]float64 `json:"load_avail_mva"`
	}
	if err := json.Unmarshal(run.Headroom, &payload); err != nil {
		t.Fatalf("parse stored headroom: %v", err)
	}
	if len(payload) != 1 || payload[0].LoadAvailMVA[0] != 68.75 {
		t.Errorf("stored headroom = %+v", payload)
	}
	var cfg struct {
		CaseName          string  `json:"case_name"`
		UpperLoadLimitPMW float64 `json:"upper_load_limit_p_mw"`
	}
	if err := json.Unmarshal(run.Config, &cfg); err != nil {
		t.Fatalf("parse stored config: %v", err)
	}
	if cfg.CaseName != "savnw.json" || cfg.UpperLoadLimitPMW != 100 {
		t.Errorf("stored config = %+v", cfg)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.Insert(ctx, Run{
			CaseName:  "case",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v, %v", runs[0].StartedAt, runs[1].StartedAt)
	}
	// List omits the payloads.
	if runs[0].Headroom != nil || runs[0].Config != nil {
		t.Error("List returned run payloads")
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestInsertDefaultsEmptyPayloads(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.Insert(ctx, Run{CaseName: "empty", StartedAt: time.Now()})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(run.Headroom) != "[]" {
		t.Errorf("headroom = %q, want []", run.Headroom)
	}
	if string(run.Config) != "{}" {
		t.Errorf("config = %q, want {}", run.Config)
	}
}
