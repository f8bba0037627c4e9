package model

import (
	"errors"
	"testing"
)

func testNetwork() *Network {
	return &Network{
		CaseName: "test",
		SnMVA:    100,
		Buses: []Bus{
			{Number: 0, Name: "SWING", VnKV: 110, Type: BusTypeSwing},
			{Number: 1, Name: "LOAD-A", VnKV: 20, Type: BusTypeLoad},
		},
		Branches: []Branch{
			{FromNumber: 0, ToNumber: 1, ID: "1", RPU: 0.01, XPU: 0.05,
				Rates: Rates{Rate1: 120, Rate2: 150}, InService: true},
		},
		Loads: []Load{
			{Number: 1, ID: "1", MVA: PowerMVA(complex(10, 2)), InService: true},
		},
		SwingBuses: []SwingBus{{Number: 0, VmPU: 1.0, MaxPMW: 1000}},
	}
}

func TestNetworkValidate(t *testing.T) {
	if err := testNetwork().Validate(); err != nil {
		t.Fatalf("valid network rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(n *Network)
	}{
		{"no swing bus", func(n *Network) { n.SwingBuses = nil }},
		{"zero base", func(n *Network) { n.SnMVA = 0 }},
		{"duplicate bus", func(n *Network) { n.Buses = append(n.Buses, Bus{Number: 1}) }},
		{"dangling branch", func(n *Network) { n.Branches[0].ToNumber = 99 }},
		{"dangling load", func(n *Network) { n.Loads[0].Number = 99 }},
		{"duplicate load", func(n *Network) {
			n.Loads = append(n.Loads, Load{Number: 1, ID: "1"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := testNetwork()
			tt.mutate(n)
			if err := n.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNetworkMutations(t *testing.T) {
	n := testNetwork()

	if err := n.AddLoad(1, "Tm", FromPMW(50, 0.9)); err != nil {
		t.Fatalf("AddLoad: %v", err)
	}
	if got := n.BusLoadMVA(1).P(); got != 60 {
		t.Errorf("BusLoadMVA P = %g, want 60", got)
	}
	if err := n.AddLoad(1, "Tm", FromPMW(1, 1)); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate AddLoad error = %v, want ErrDuplicate", err)
	}
	if err := n.RemoveLoad(1, "Tm"); err != nil {
		t.Fatalf("RemoveLoad: %v", err)
	}
	if err := n.RemoveLoad(1, "Tm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveLoad error = %v, want ErrNotFound", err)
	}

	if err := n.AddMachine(99, "1", FromPMW(5, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMachine at unknown bus error = %v, want ErrNotFound", err)
	}
	if err := n.AddMachine(1, "1", FromPMW(5, 1)); err != nil {
		t.Fatalf("AddMachine: %v", err)
	}
	if got := n.BusGenMVA(1).P(); got != 5 {
		t.Errorf("BusGenMVA P = %g, want 5", got)
	}

	if err := n.SetBranchStatus(0, 1, "1", false); err != nil {
		t.Fatalf("SetBranchStatus: %v", err)
	}
	if n.Branches[0].InService {
		t.Error("branch still in service")
	}
	if err := n.SetBranchStatus(5, 6, "1", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetBranchStatus unknown error = %v, want ErrNotFound", err)
	}
}

func TestNetworkClone(t *testing.T) {
	n := testNetwork()
	c := n.Clone()
	if err := c.AddLoad(1, "X", FromPMW(1, 1)); err != nil {
		t.Fatalf("AddLoad on clone: %v", err)
	}
	c.Branches[0].InService = false

	if len(n.Loads) != 1 {
		t.Errorf("clone mutation leaked into original loads: %d", len(n.Loads))
	}
	if !n.Branches[0].InService {
		t.Error("clone mutation leaked into original branches")
	}
}

func TestRatesGet(t *testing.T) {
	r := Rates{Rate1: 100, Rate2: 120}
	if v, err := r.Get("Rate2"); err != nil || v != 120 {
		t.Errorf("Get(Rate2) = %g, %v", v, err)
	}
	if _, err := r.Get("Rate9"); err == nil {
		t.Error("expected error for unknown rate")
	}
}
