package feature

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadAnno(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "annos.bed.gz",
		"chr1\t100\t200\n"+
			"chr2\t5\t10\n"+
			"chr1\t150\t300\n"+
			"chr1\t400\t500\n"+
			"1\t600\t650\n")

	starts, ends, err := ReadAnno(path, "1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{100, 400, 600}; !reflect.DeepEqual(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
	if want := []int{300, 500, 650}; !reflect.DeepEqual(ends, want) {
		t.Errorf("ends = %v, want %v", ends, want)
	}
}

func TestReadAnnoPlainWithComments(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "annos.bed",
		"# cpg islands\n"+
			"chr1\t20\t30\n"+
			"chr1\t10\t20\n")

	starts, ends, err := ReadAnno(path, "chr1")
	if err != nil {
		t.Fatal(err)
	}
	// Touching intervals merge.
	if want := []int{10}; !reflect.DeepEqual(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
	if want := []int{30}; !reflect.DeepEqual(ends, want) {
		t.Errorf("ends = %v, want %v", ends, want)
	}
}

func TestReadAnnoBadRow(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "annos.bed", "chr1\t100\n")

	_, _, err := ReadAnno(path, "1")
	if err == nil {
		t.Fatal("expected error for malformed row")
	}
	if !strings.Contains(err.Error(), "expected chromosome, start, and end columns") {
		t.Errorf("error = %v, want column message", err)
	}
}

func TestJoinOverlapping(t *testing.T) {
	for _, tc := range []struct {
		name       string
		starts     []int
		ends       []int
		wantStarts []int
		wantEnds   []int
	}{
		{"empty", nil, nil, nil, nil},
		{"disjoint", []int{1, 10}, []int{5, 20}, []int{1, 10}, []int{5, 20}},
		{"overlap", []int{1, 4}, []int{5, 9}, []int{1}, []int{9}},
		{"touching", []int{1, 5}, []int{5, 9}, []int{1}, []int{9}},
		{"contained", []int{10, 20}, []int{100, 30}, []int{10}, []int{100}},
	} {
		starts, ends := JoinOverlapping(tc.starts, tc.ends)
		if !reflect.DeepEqual(starts, tc.wantStarts) || !reflect.DeepEqual(ends, tc.wantEnds) {
			t.Errorf("%s: joined = %v/%v, want %v/%v",
				tc.name, starts, ends, tc.wantStarts, tc.wantEnds)
		}
	}
}

func TestInIntervals(t *testing.T) {
	starts := []int{10, 30}
	ends := []int{20, 40}

	pos := []int{5, 10, 15, 20, 21, 30, 40, 41}
	want := []int8{0, 1, 1, 1, 0, 1, 1, 0}
	if got := InIntervals(pos, starts, ends); !reflect.DeepEqual(got, want) {
		t.Errorf("InIntervals = %v, want %v", got, want)
	}
}

func TestInIntervalsEmpty(t *testing.T) {
	got := InIntervals([]int{1, 2, 3}, nil, nil)
	if want := []int8{0, 0, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("InIntervals = %v, want %v", got, want)
	}
}
