package model

import "fmt"

// Load is a PQ consumption at a bus.
type Load struct {
	Number    int      `json:"number"`
	ID        string   `json:"load_id"`
	MVA       PowerMVA `json:"mva_act"`
	InService bool     `json:"in_service"`
}

func (l Load) String() string {
	return fmt.Sprintf("Load(number=%d, load_id=%q, mva_act=%v)", l.Number, l.ID, l.MVA)
}

// Machine is a generator modeled as a PQ injection at a bus.
type Machine struct {
	Number    int      `json:"number"`
	ID        string   `json:"machine_id"`
	MVA       PowerMVA `json:"pq_gen"`
	InService bool     `json:"in_service"`
}

func (m Machine) String() string {
	return fmt.Sprintf("Machine(number=%d, machine_id=%q, pq_gen=%v)", m.Number, m.ID, m.MVA)
}
