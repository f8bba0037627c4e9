package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFromPMW(t *testing.T) {
	tests := []struct {
		name  string
		pMW   float64
		pf    float64
		wantQ float64
	}{
		{"unity power factor", 100, 1.0, 0},
		{"0.9 lagging", 100, 0.9, 100 * math.Tan(math.Acos(0.9))},
		{"zero power", 0, 0.9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromPMW(tt.pMW, tt.pf)
			if s.P() != tt.pMW {
				t.Errorf("P() = %g, want %g", s.P(), tt.pMW)
			}
			if math.Abs(s.Q()-tt.wantQ) > 1e-12 {
				t.Errorf("Q() = %g, want %g", s.Q(), tt.wantQ)
			}
		})
	}
}

func TestPowerMVAJSON(t *testing.T) {
	s := PowerMVA(complex(65.625, 31.783638))
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "[65.625,31.783638]"
	if string(raw) != want {
		t.Errorf("marshal = %s, want %s", raw, want)
	}

	var back PowerMVA
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != s {
		t.Errorf("round trip = %v, want %v", back, s)
	}

	if err := json.Unmarshal([]byte(`"nope"`), &back); err == nil {
		t.Error("expected error for non-array power value")
	}
}

func TestPowerMVAString(t *testing.T) {
	if got := PowerMVA(complex(10, -2.5)).String(); got != "(10-2.5j)" {
		t.Errorf("String() = %q", got)
	}
}
