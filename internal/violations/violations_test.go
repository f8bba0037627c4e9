package violations

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestViolationsString(t *testing.T) {
	tests := []struct {
		v    Violations
		want string
	}{
		{NoViolations, "NO_VIOLATIONS"},
		{NotConverged, "NOT_CONVERGED"},
		{BusUndervoltage, "BUS_UNDERVOLTAGE"},
		{BusOvervoltage | BranchLoading, "BUS_OVERVOLTAGE|BRANCH_LOADING"},
		{TrafoLoading | Trafo3wLoading | SwingBusLoading,
			"TRAFO_LOADING|TRAFO_3W_LOADING|SWING_BUS_LOADING"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestViolationsHas(t *testing.T) {
	v := BusOvervoltage | BranchLoading
	if !v.Has(BusOvervoltage) || !v.Has(BranchLoading) {
		t.Error("Has misses set flags")
	}
	if v.Has(TrafoLoading) {
		t.Error("Has reports unset flag")
	}
	if !v.Has(NoViolations) {
		t.Error("every set contains the empty set")
	}
}

func TestLimitsDefaults(t *testing.T) {
	normal := DefaultLimits()
	if normal.MaxBusVoltagePU != 1.1 || normal.MinBusVoltagePU != 0.9 {
		t.Errorf("normal voltage limits = %g/%g", normal.MaxBusVoltagePU, normal.MinBusVoltagePU)
	}
	if normal.BranchRate != "Rate1" || normal.TrafoRate != "Rate1" {
		t.Errorf("normal rates = %q/%q", normal.BranchRate, normal.TrafoRate)
	}

	contingency := ContingencyLimits()
	if contingency.MaxBusVoltagePU != 1.12 || contingency.MinBusVoltagePU != 0.88 {
		t.Errorf("contingency voltage limits = %g/%g",
			contingency.MaxBusVoltagePU, contingency.MinBusVoltagePU)
	}
	if contingency.MaxBranchLoadingPct != 120 || contingency.MaxTrafoLoadingPct != 120 {
		t.Errorf("contingency loading limits = %g/%g",
			contingency.MaxBranchLoadingPct, contingency.MaxTrafoLoadingPct)
	}
	// The short-term rating applies to branches only.
	if contingency.BranchRate != "Rate2" || contingency.TrafoRate != "Rate1" {
		t.Errorf("contingency rates = %q/%q", contingency.BranchRate, contingency.TrafoRate)
	}
}

func TestLimitsWithDefaults(t *testing.T) {
	l := Limits{MaxBusVoltagePU: 1.05}.WithDefaults()
	if l.MaxBusVoltagePU != 1.05 {
		t.Errorf("explicit limit overwritten: %g", l.MaxBusVoltagePU)
	}
	if l.MinBusVoltagePU != 0.9 || l.BranchRate != "Rate1" {
		t.Errorf("defaults not filled: %+v", l)
	}
}

func TestStatsBaseCase(t *testing.T) {
	s := NewStats()
	s.Append(BusUndervoltage, 0.9, 3, 0.85)
	if s.IsEmpty() {
		t.Fatal("stats empty after Append")
	}
	s.RegisterBaseCase()
	if !s.IsEmpty() {
		t.Error("RegisterBaseCase must clear the working stats")
	}
	if !s.BaseCase() {
		t.Error("base case snapshot missing")
	}
	s.Append(BusUndervoltage, 0.9, 3, 0.84)
	s.Reset()
	if !s.BaseCase() {
		t.Error("Reset must keep the base case snapshot")
	}
	s.ResetBaseCase()
	if s.BaseCase() {
		t.Error("ResetBaseCase must clear the snapshot")
	}
}

func TestStatsMarshalJSON(t *testing.T) {
	s := NewStats()
	s.Append(BusOvervoltage, 1.1, 0, 1.15)
	s.Append(BusOvervoltage, 1.1, 0, 1.12)
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"BUS_OVERVOLTAGE":{"1.1":{"0":[1.15,1.12]}}}`
	if string(raw) != want {
		t.Errorf("marshal = %s, want %s", raw, want)
	}
}

func TestStatsWriteReport(t *testing.T) {
	s := NewStats()
	s.Append(BusUndervoltage, 0.9, 1, 0.87)
	s.Append(BusUndervoltage, 0.9, 2, 0.82)
	s.Append(BranchLoading, 100, 0, 130)

	var sb strings.Builder
	s.WriteReport(&sb, func(v Violations, idx int) string {
		return fmt.Sprintf("%s#%d", v, idx)
	})
	report := sb.String()
	// Undervoltage sorts ascending: the deepest sag leads.
	worst := strings.Index(report, "BUS_UNDERVOLTAGE#2")
	milder := strings.Index(report, "BUS_UNDERVOLTAGE#1")
	if worst == -1 || milder == -1 || worst > milder {
		t.Errorf("undervoltage ordering wrong:\n%s", report)
	}
	if !strings.Contains(report, "BRANCH_LOADING limit=100") {
		t.Errorf("missing branch loading header:\n%s", report)
	}
}
