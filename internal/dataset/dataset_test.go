// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Create(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChunkID(t *testing.T) {
	for _, tc := range []struct {
		chunk Chunk
		want  string
	}{
		{Chunk{Chromo: "1", StartIdx: 0, EndIdx: 32768}, "c1_000000-032768"},
		{Chunk{Chromo: "X", StartIdx: 32768, EndIdx: 33000}, "cX_032768-033000"},
		{Chunk{Chromo: "1", StartIdx: 0, EndIdx: 2}, "c1_000000-000002"},
	} {
		if got := tc.chunk.ID(); got != tc.want {
			t.Errorf("ID() = %q, want %q", got, tc.want)
		}
	}
}

func TestWriteReadChunk(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	full := &SiteData{
		Chromo: "1",
		Pos:    100,
		DNA:    []int8{0, 1, 2, 3},
		CpG:    map[string]float32{"cell1": 1, "cell2": -1},
		Bulk:   map[string]float32{"tissue": 0.42},
		Knn: map[string]NeighborRow{
			"cell1": {States: []int8{1, -1}, Dists: []float32{10, -1}},
		},
		Stats: map[StatKey]float32{
			{Name: "mean"}:             0.5,
			{Name: "mean", Wlen: 3001}: 0.75,
		},
		Annos: map[string]int8{"cgi": 1},
	}
	bare := &SiteData{Chromo: "1", Pos: 200}

	chunk := &Chunk{Chromo: "1", StartIdx: 0, EndIdx: 2, Sites: []*SiteData{full, bare}}
	if err := store.WriteChunk(ctx, chunk); err != nil {
		t.Fatal(err)
	}

	got, err := store.ReadChunk(ctx, "c1_000000-000002")
	if err != nil {
		t.Fatal(err)
	}
	if got.Chromo != "1" || got.StartIdx != 0 || got.EndIdx != 2 {
		t.Errorf("chunk header = %s %d-%d, want 1 0-2", got.Chromo, got.StartIdx, got.EndIdx)
	}
	if len(got.Sites) != 2 {
		t.Fatalf("got %d sites, want 2", len(got.Sites))
	}

	for name, check := range map[string]struct{ got, want any }{
		"dna":   {got.Sites[0].DNA, full.DNA},
		"cpg":   {got.Sites[0].CpG, full.CpG},
		"bulk":  {got.Sites[0].Bulk, full.Bulk},
		"knn":   {got.Sites[0].Knn, full.Knn},
		"stats": {got.Sites[0].Stats, full.Stats},
		"annos": {got.Sites[0].Annos, full.Annos},
	} {
		if !reflect.DeepEqual(check.got, check.want) {
			t.Errorf("%s = %v, want %v", name, check.got, check.want)
		}
	}
	if got.Sites[0].Pos != 100 {
		t.Errorf("pos = %d, want 100", got.Sites[0].Pos)
	}

	empty := got.Sites[1]
	if empty.Pos != 200 || empty.DNA != nil || empty.CpG != nil || empty.Knn != nil ||
		empty.Stats != nil || empty.Annos != nil {
		t.Errorf("bare site read back with unexpected data: %+v", empty)
	}
}

func TestChunksListing(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	chunks := []*Chunk{
		{Chromo: "1", StartIdx: 0, EndIdx: 1, Sites: []*SiteData{{Chromo: "1", Pos: 10}}},
		{Chromo: "X", StartIdx: 0, EndIdx: 2, Sites: []*SiteData{
			{Chromo: "X", Pos: 5}, {Chromo: "X", Pos: 8},
		}},
	}
	for _, c := range chunks {
		if err := store.WriteChunk(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := store.Chunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []ChunkInfo{
		{ID: "c1_000000-000001", Chromo: "1", StartIdx: 0, EndIdx: 1, Sites: 1},
		{ID: "cX_000000-000002", Chromo: "X", StartIdx: 0, EndIdx: 2, Sites: 2},
	}
	if !reflect.DeepEqual(infos, want) {
		t.Errorf("Chunks = %+v, want %+v", infos, want)
	}
}

func TestReadChunkMissing(t *testing.T) {
	store := testStore(t)
	_, err := store.ReadChunk(context.Background(), "c9_000000-000010")
	if err == nil {
		t.Fatal("expected error for unknown chunk")
	}
	if !strings.Contains(err.Error(), "no chunk named") {
		t.Errorf("error = %v, want unknown chunk message", err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	want := Meta{
		DNAWlen:      1001,
		CpGWlen:      50,
		ChunkSize:    32768,
		Cells:        []string{"cell1", "cell2"},
		Bulk:         []string{"tissue"},
		Stats:        []string{"mean", "var"},
		WinStats:     []string{"mean"},
		WinStatsWlen: []int{3001},
		Seed:         42,
		CreatedAt:    time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC),
	}
	if err := store.WriteMeta(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.ReadMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("meta = %+v, want %+v", got, want)
	}
}

func TestMetaOverwrite(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := Meta{DNAWlen: 101, CreatedAt: time.Now()}
	if err := store.WriteMeta(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := Meta{DNAWlen: 1001, CreatedAt: time.Now()}
	if err := store.WriteMeta(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.ReadMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.DNAWlen != 1001 {
		t.Errorf("DNAWlen = %d, want 1001", got.DNAWlen)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing dataset")
	}
	if !strings.Contains(err.Error(), "no dataset at") {
		t.Errorf("error = %v, want missing dataset message", err)
	}
}

func TestCreateReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Create(dir)
	if err != nil {
		t.Fatal(err)
	}
	chunk := &Chunk{Chromo: "1", StartIdx: 0, EndIdx: 1, Sites: []*SiteData{{Chromo: "1", Pos: 10}}}
	if err := store.WriteChunk(ctx, chunk); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = Create(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	infos, err := store.Chunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("fresh store lists %d chunks, want 0", len(infos))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ints := []int8{-1, 0, 1, 2, 3, 4}
	if got := decodeInt8(encodeInt8(ints)); !reflect.DeepEqual(got, ints) {
		t.Errorf("int8 round trip = %v, want %v", got, ints)
	}

	floats := []float32{-1, 0, 0.5, 1, 1500.25}
	if got := decodeFloat32(encodeFloat32(floats)); !reflect.DeepEqual(got, floats) {
		t.Errorf("float32 round trip = %v, want %v", got, floats)
	}

	if decodeInt8(nil) != nil {
		t.Error("decodeInt8(nil) should be nil")
	}
	if decodeFloat32(nil) != nil {
		t.Error("decodeFloat32(nil) should be nil")
	}
}
