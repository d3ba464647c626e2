// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"reflect"
	"testing"
)

func posProfile(name string, chromos map[string][]int) *Profile {
	p := &Profile{Name: name, Chromos: make(map[string]*ChromoSites)}
	for chromo, pos := range chromos {
		cs := &ChromoSites{Pos: pos}
		for range pos {
			cs.Value = append(cs.Value, 1)
		}
		p.Chromos[chromo] = cs
	}
	return p
}

func TestPositionsFrom(t *testing.T) {
	a := posProfile("a", map[string][]int{
		"1": {10, 30, 50},
		"2": {7},
	})
	b := posProfile("b", map[string][]int{
		"1":  {30, 20},
		"10": {5},
	})

	table := PositionsFrom([]*Profile{a, b})

	// Lexicographic chromosome order, as the source tables sort.
	if !reflect.DeepEqual(table.Chromos, []string{"1", "10", "2"}) {
		t.Errorf("Chromos = %v", table.Chromos)
	}
	if !reflect.DeepEqual(table.Pos["1"], []int{10, 20, 30, 50}) {
		t.Errorf("Pos[1] = %v, want unique sorted union", table.Pos["1"])
	}
	if table.Total() != 6 {
		t.Errorf("Total = %d, want 6", table.Total())
	}
}

func TestReadPositions(t *testing.T) {
	path := writeFile(t, "pos.tsv", "# sites\nchr1\t30\n1\t10\n1\t30\n2\t5\n")

	table, err := ReadPositions(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(table.Chromos, []string{"1", "2"}) {
		t.Errorf("Chromos = %v", table.Chromos)
	}
	if !reflect.DeepEqual(table.Pos["1"], []int{10, 30}) {
		t.Errorf("Pos[1] = %v, want deduped [10 30]", table.Pos["1"])
	}
}

func TestReadPositionsBadRow(t *testing.T) {
	path := writeFile(t, "pos.tsv", "1\n")
	if _, err := ReadPositions(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestPosTableFilter(t *testing.T) {
	table := PositionsFrom([]*Profile{posProfile("a", map[string][]int{
		"1": {1, 2},
		"2": {3},
		"X": {4},
	})})

	table.Filter([]string{"chr1", "x"})

	if !reflect.DeepEqual(table.Chromos, []string{"1", "X"}) {
		t.Errorf("Chromos = %v", table.Chromos)
	}
	if table.Pos["2"] != nil {
		t.Error("chromosome 2 should be removed")
	}
	if table.Total() != 3 {
		t.Errorf("Total = %d, want 3", table.Total())
	}
}

func TestPosTableCap(t *testing.T) {
	table := PositionsFrom([]*Profile{posProfile("a", map[string][]int{
		"1": {1, 2, 3},
		"2": {4, 5},
		"3": {6},
	})})

	table.Cap(4)

	if table.Total() != 4 {
		t.Errorf("Total = %d, want 4", table.Total())
	}
	if !reflect.DeepEqual(table.Pos["1"], []int{1, 2, 3}) {
		t.Errorf("Pos[1] = %v", table.Pos["1"])
	}
	if !reflect.DeepEqual(table.Pos["2"], []int{4}) {
		t.Errorf("Pos[2] = %v, want truncated [4]", table.Pos["2"])
	}
	if !reflect.DeepEqual(table.Chromos, []string{"1", "2"}) {
		t.Errorf("Chromos = %v, want chromosome 3 dropped", table.Chromos)
	}
}

func TestPosTableCapNoop(t *testing.T) {
	table := PositionsFrom([]*Profile{posProfile("a", map[string][]int{"1": {1, 2}})})
	table.Cap(0)
	if table.Total() != 2 {
		t.Errorf("Total = %d, want 2", table.Total())
	}
}
