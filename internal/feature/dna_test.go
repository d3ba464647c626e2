package feature

import (
	"bytes"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeBase(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		want int8
	}{
		{'A', BaseA},
		{'T', BaseT},
		{'G', BaseG},
		{'C', BaseC},
		{'N', baseN},
		{'x', baseN},
	} {
		if got := encodeBase(tc.b); got != tc.want {
			t.Errorf("encodeBase(%q) = %d, want %d", tc.b, got, tc.want)
		}
	}
}

func TestDecodeWindow(t *testing.T) {
	got := DecodeWindow([]int8{BaseA, BaseT, BaseG, BaseC})
	if got != "ATGC" {
		t.Errorf("DecodeWindow = %q, want ATGC", got)
	}
}

func TestSeqWindows(t *testing.T) {
	var buf bytes.Buffer
	rnd := rand.New(rand.NewSource(1))

	// 1-based position 3 is the C of the only CpG.
	wins, err := SeqWindows("TTCGAA", []int{3}, 5, rnd, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(wins) != 1 {
		t.Fatalf("got %d windows, want 1", len(wins))
	}
	if got := DecodeWindow(wins[0]); got != "TTCGA" {
		t.Errorf("window = %q, want TTCGA", got)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected warnings: %q", buf.String())
	}
}

func TestSeqWindowsPadsChromosomeEnds(t *testing.T) {
	var buf bytes.Buffer
	rnd := rand.New(rand.NewSource(1))

	wins, err := SeqWindows("CGTA", []int{1}, 5, rnd, &buf)
	if err != nil {
		t.Fatal(err)
	}
	win := wins[0]
	if len(win) != 5 {
		t.Fatalf("window length = %d, want 5", len(win))
	}
	for i, code := range win {
		if code < 0 || code > 3 {
			t.Errorf("win[%d] = %d, want a code in [0, 3]", i, code)
		}
	}
	if got := DecodeWindow(win[2:]); got != "CGT" {
		t.Errorf("in-sequence part = %q, want CGT", got)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected warnings: %q", buf.String())
	}
}

func TestSeqWindowsReplacesN(t *testing.T) {
	var buf bytes.Buffer
	rnd := rand.New(rand.NewSource(1))

	wins, err := SeqWindows("TACGNT", []int{3}, 5, rnd, &buf)
	if err != nil {
		t.Fatal(err)
	}
	win := wins[0]
	if got := DecodeWindow(win[:4]); got != "TACG" {
		t.Errorf("window prefix = %q, want TACG", got)
	}
	if win[4] < 0 || win[4] > 3 {
		t.Errorf("N slot = %d, want a code in [0, 3]", win[4])
	}
}

func TestSeqWindowsDeterministic(t *testing.T) {
	seq := "NNCGNN"
	pos := []int{3}

	a, err := SeqWindows(seq, pos, 5, rand.New(rand.NewSource(7)), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := SeqWindows(seq, pos, 5, rand.New(rand.NewSource(7)), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different windows: %v vs %v", a, b)
	}
}

func TestSeqWindowsWarnsOnNonCpG(t *testing.T) {
	var buf bytes.Buffer
	rnd := rand.New(rand.NewSource(1))

	if _, err := SeqWindows("AAAA", []int{2}, 3, rnd, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "warning: no CpG at position 2") {
		t.Errorf("output = %q, want a no-CpG warning for position 2", buf.String())
	}
}

func TestSeqWindowsEvenLength(t *testing.T) {
	_, err := SeqWindows("ACGT", []int{2}, 4, rand.New(rand.NewSource(1)), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for even window length")
	}
	if !strings.Contains(err.Error(), "not odd") {
		t.Errorf("error = %v, want mention of odd window length", err)
	}
}
