package block

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
)

func encodeBlocks(t *testing.T, kind commit.Kind, payload []byte, k, n int) ([]Block, *commit.PublicParams) {
	t.Helper()
	scheme, err := commit.ForKind(kind)
	if err != nil {
		t.Fatalf("ForKind: %v", err)
	}
	pp, err := scheme.Setup(16, rand.Reader)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	blocks, err := FullEncode(payload, k, n, fec.Vandermonde, scheme, pp, nil)
	if err != nil {
		t.Fatalf("FullEncode: %v", err)
	}
	return blocks, pp
}

func TestFullEncodeVerify(t *testing.T) {
	payload := []byte("dispersed and verified one block at a time")
	for _, kind := range []commit.Kind{commit.KindKZG, commit.KindFolding, commit.KindHomomorphic, commit.KindHash} {
		t.Run(kind.String(), func(t *testing.T) {
			blocks, pp := encodeBlocks(t, kind, payload, 3, 5)
			if len(blocks) != 5 {
				t.Fatalf("got %d blocks, want 5", len(blocks))
			}
			for i, b := range blocks {
				if !b.Commitment.Equal(blocks[0].Commitment) {
					t.Fatalf("block %d carries a different commitment", i)
				}
				ok, err := Verify(b, pp)
				if err != nil {
					t.Fatalf("Verify block %d: %v", i, err)
				}
				if !ok {
					t.Fatalf("honest block %d rejected", i)
				}
			}
		})
	}
}

func TestReconstructSubsets(t *testing.T) {
	payload := []byte("any k of n blocks reconstruct the payload")
	blocks, _ := encodeBlocks(t, commit.KindHash, payload, 3, 5)

	subsets := [][]int{{0, 1, 2}, {0, 2, 4}, {2, 3, 4}, {0, 1, 2, 3, 4}}
	for _, idx := range subsets {
		subset := make([]Block, len(idx))
		for i, j := range idx {
			subset[i] = blocks[j]
		}
		got, err := Reconstruct(subset)
		if err != nil {
			t.Fatalf("Reconstruct %v: %v", idx, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("subset %v decoded %q, want %q", idx, got, payload)
		}
	}
}

func TestReconstructTooFew(t *testing.T) {
	blocks, _ := encodeBlocks(t, commit.KindHash, []byte("short"), 3, 5)
	if _, err := Reconstruct(blocks[:2]); !errors.Is(err, fec.ErrInsufficientShards) {
		t.Fatalf("2 of 3: err = %v, want ErrInsufficientShards", err)
	}
	if _, err := Reconstruct(nil); !errors.Is(err, fec.ErrInsufficientShards) {
		t.Fatalf("empty: err = %v, want ErrInsufficientShards", err)
	}
}

func TestReconstructMismatchedCommitments(t *testing.T) {
	a, _ := encodeBlocks(t, commit.KindHash, []byte("payload A"), 2, 3)
	b, _ := encodeBlocks(t, commit.KindHash, []byte("payload B"), 2, 3)
	mixed := []Block{a[0], b[1]}
	if _, err := Reconstruct(mixed); !errors.Is(err, ErrMismatchedBlocks) {
		t.Fatalf("mixed sessions: err = %v, want ErrMismatchedBlocks", err)
	}
}

func TestCombineHomomorphic(t *testing.T) {
	payload := []byte("a relay can mix blocks it cannot read")
	blocks, pp := encodeBlocks(t, commit.KindHomomorphic, payload, 3, 5)

	w0, err := field.Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	w1, err := field.Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	mixed, err := Combine(blocks[3], blocks[4], w0, w1)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if !mixed.Commitment.Equal(blocks[0].Commitment) {
		t.Fatal("combined block changed the commitment")
	}
	ok, err := Verify(mixed, pp)
	if err != nil {
		t.Fatalf("Verify combined: %v", err)
	}
	if !ok {
		t.Fatal("combined block rejected")
	}

	// The combined block substitutes for a direct one during reconstruct.
	got, err := Reconstruct([]Block{blocks[0], blocks[1], mixed})
	if err != nil {
		t.Fatalf("Reconstruct with combined block: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestCombineUnsupportedScheme(t *testing.T) {
	blocks, _ := encodeBlocks(t, commit.KindKZG, []byte("no recoding here"), 2, 3)
	_, err := Combine(blocks[0], blocks[1], field.One(), field.One())
	if !errors.Is(err, commit.ErrUnsupportedOperation) {
		t.Fatalf("Combine on kzg: err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestCombineMismatchedSessions(t *testing.T) {
	a, _ := encodeBlocks(t, commit.KindHomomorphic, []byte("payload A"), 2, 3)
	b, _ := encodeBlocks(t, commit.KindHomomorphic, []byte("payload B"), 2, 3)
	_, err := Combine(a[0], b[0], field.One(), field.One())
	if !errors.Is(err, ErrMismatchedBlocks) {
		t.Fatalf("cross-session combine: err = %v, want ErrMismatchedBlocks", err)
	}
}

func TestVerifyUnknownKind(t *testing.T) {
	blocks, pp := encodeBlocks(t, commit.KindHash, []byte("x"), 2, 3)
	bad := blocks[0]
	bad.Commitment.Kind = commit.Kind(42)
	ok, err := Verify(bad, pp)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("block with unknown commitment kind accepted")
	}
}

func TestInspectSummary(t *testing.T) {
	blocks, _ := encodeBlocks(t, commit.KindHash, []byte("inspect me"), 2, 4)
	s := Inspect(blocks[1])
	if s.Kind != "hash" {
		t.Fatalf("Kind = %q, want %q", s.Kind, "hash")
	}
	if s.CodeLength != 2 {
		t.Fatalf("CodeLength = %d, want 2", s.CodeLength)
	}
	if s.SizeHint != uint64(len("inspect me")) {
		t.Fatalf("SizeHint = %d, want %d", s.SizeHint, len("inspect me"))
	}
	if len(s.Combination) != 2 {
		t.Fatalf("%d combination entries, want 2", len(s.Combination))
	}
	if s.String() == "" {
		t.Fatal("empty summary string")
	}
}

func TestBlockCodecRoundTrip(t *testing.T) {
	for _, kind := range []commit.Kind{commit.KindKZG, commit.KindFolding, commit.KindHomomorphic, commit.KindHash} {
		t.Run(kind.String(), func(t *testing.T) {
			blocks, pp := encodeBlocks(t, kind, []byte("serialize me"), 2, 3)
			data, err := blocks[1].MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}

			var restored Block
			if err := restored.UnmarshalBinary(data); err != nil {
				t.Fatalf("UnmarshalBinary: %v", err)
			}
			if !restored.Commitment.Equal(blocks[1].Commitment) {
				t.Fatal("commitment changed in round trip")
			}
			if restored.Shard.SizeHint != blocks[1].Shard.SizeHint {
				t.Fatal("size hint changed in round trip")
			}
			ok, err := Verify(restored, pp)
			if err != nil {
				t.Fatalf("Verify restored: %v", err)
			}
			if !ok {
				t.Fatal("restored block rejected")
			}
		})
	}
}

func TestBlockCodecMalformed(t *testing.T) {
	blocks, _ := encodeBlocks(t, commit.KindHash, []byte("x"), 2, 3)
	data, err := blocks[0].MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	// A count far beyond the buffer must fail fast, not allocate.
	hugeCount := []byte{
		codecVersion, byte(commit.KindHash),
		0, 0, 0, 0, 0, 0, 0, 1, // sizeHint
		0xff, 0xff, 0xff, 0xff, // combination length
		0, 0, 0, 0, // data length
	}

	cases := map[string][]byte{
		"empty":       {},
		"bad version": append([]byte{0xff}, data[1:]...),
		"truncated":   data[:len(data)/2],
		"trailing":    append(append([]byte{}, data...), 0x00),
		"huge count":  hugeCount,
	}
	for name, buf := range cases {
		var b Block
		if err := b.UnmarshalBinary(buf); err == nil {
			t.Errorf("%s: UnmarshalBinary succeeded, want error", name)
		}
	}
}
