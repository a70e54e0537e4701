package store

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dispersal/dispersal/block"
	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
)

func testBlocks(t *testing.T, payload []byte) ([]block.Block, *commit.PublicParams) {
	t.Helper()
	scheme, err := commit.ForKind(commit.KindHash)
	if err != nil {
		t.Fatalf("ForKind: %v", err)
	}
	pp, err := scheme.Setup(8, rand.Reader)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	blocks, err := block.FullEncode(payload, 2, 3, fec.Vandermonde, scheme, pp, nil)
	if err != nil {
		t.Fatalf("FullEncode: %v", err)
	}
	return blocks, pp
}

func TestBlockRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blocks, _ := testBlocks(t, []byte("persist me"))

	digest, err := st.PutBlock(blocks[0])
	if err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	got, err := st.GetBlock(digest)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if !got.Commitment.Equal(blocks[0].Commitment) {
		t.Fatal("stored block came back with a different commitment")
	}
	if got.Shard.SizeHint != blocks[0].Shard.SizeHint {
		t.Fatal("stored block came back with a different size hint")
	}
}

func TestPutBlockIdempotent(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blocks, _ := testBlocks(t, []byte("same content"))

	d1, err := st.PutBlock(blocks[0])
	if err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	d2, err := st.PutBlock(blocks[0])
	if err != nil {
		t.Fatalf("PutBlock again: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digests differ: %x vs %x", d1, d2)
	}
	digests, err := st.ListBlocks()
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(digests) != 1 {
		t.Fatalf("store holds %d blocks, want 1", len(digests))
	}
}

func TestListBlocks(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blocks, _ := testBlocks(t, []byte("several blocks"))
	want := make(map[[32]byte]bool)
	for _, b := range blocks {
		d, err := st.PutBlock(b)
		if err != nil {
			t.Fatalf("PutBlock: %v", err)
		}
		want[d] = true
	}

	digests, err := st.ListBlocks()
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(digests) != len(want) {
		t.Fatalf("listed %d blocks, want %d", len(digests), len(want))
	}
	for _, d := range digests {
		if !want[d] {
			t.Fatalf("unexpected digest %x", d)
		}
	}
}

func TestGetBlockNotFound(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var missing [32]byte
	missing[0] = 0xab
	if _, err := st.GetBlock(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBlock missing: err = %v, want ErrNotFound", err)
	}
}

func TestGetBlockCorrupted(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blocks, _ := testBlocks(t, []byte("bitrot"))
	digest, err := st.PutBlock(blocks[0])
	if err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	// Flip a byte on disk; the content address no longer matches.
	path := st.blockPath(digest)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := st.GetBlock(digest); err == nil {
		t.Fatal("GetBlock returned a corrupted block")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.GetParams(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetParams on empty store: err = %v, want ErrNotFound", err)
	}

	scheme, _ := commit.ForKind(commit.KindFolding)
	pp, err := scheme.Setup(4, rand.Reader)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := st.PutParams(pp); err != nil {
		t.Fatalf("PutParams: %v", err)
	}
	got, err := st.GetParams()
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if got.MaxElements != pp.MaxElements {
		t.Fatalf("MaxElements = %d, want %d", got.MaxElements, pp.MaxElements)
	}
	if len(got.Basis) != len(pp.Basis) {
		t.Fatalf("%d basis points, want %d", len(got.Basis), len(pp.Basis))
	}
}

func TestOpenCreatesLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	if _, err := Open(dir); err != nil {
		t.Fatalf("Open: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "blocks"))
	if err != nil || !info.IsDir() {
		t.Fatalf("blocks directory missing after Open: %v", err)
	}
}
