package dispersal

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dispersal/dispersal/block"
	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
)

// End-to-end flow per scheme: setup, encode, verify every block, drop some,
// reconstruct from the rest.
func TestEndToEnd(t *testing.T) {
	payload := []byte("a payload dispersed to peers who trust nothing but the commitment")
	for _, kind := range []commit.Kind{commit.KindKZG, commit.KindFolding, commit.KindHomomorphic, commit.KindHash} {
		t.Run(kind.String(), func(t *testing.T) {
			pp, err := Setup(kind, MaxElementsForBytes(len(payload)), rand.Reader)
			if err != nil {
				t.Fatalf("Setup: %v", err)
			}
			blocks, err := Encode(payload, 3, 6, fec.Vandermonde, kind, pp, nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			for i, b := range blocks {
				ok, err := Verify(b, pp)
				if err != nil {
					t.Fatalf("Verify block %d: %v", i, err)
				}
				if !ok {
					t.Fatalf("block %d rejected", i)
				}
			}
			got, err := Decode([]block.Block{blocks[5], blocks[1], blocks[3]})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("decoded %q, want %q", got, payload)
			}
		})
	}
}

func TestEndToEndCombine(t *testing.T) {
	payload := []byte("relays recode, receivers reconstruct")
	pp, err := Setup(commit.KindHomomorphic, MaxElementsForBytes(len(payload)), rand.Reader)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	blocks, err := Encode(payload, 2, 4, fec.RandomMatrix, commit.KindHomomorphic, pp, rand.Reader)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	w0, err := field.Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	w1, err := field.Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	mixed, err := Combine(blocks[2], blocks[3], w0, w1)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	ok, err := Verify(mixed, pp)
	if err != nil {
		t.Fatalf("Verify combined: %v", err)
	}
	if !ok {
		t.Fatal("combined block rejected")
	}

	got, err := Decode([]block.Block{blocks[0], mixed})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestSetupUnknownKind(t *testing.T) {
	if _, err := Setup(commit.Kind(77), 4, rand.Reader); !errors.Is(err, commit.ErrUnknownKind) {
		t.Fatalf("Setup unknown kind: err = %v, want ErrUnknownKind", err)
	}
}

func TestInspectDelegates(t *testing.T) {
	payload := []byte("inspection never verifies")
	pp, err := Setup(commit.KindHash, MaxElementsForBytes(len(payload)), rand.Reader)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	blocks, err := Encode(payload, 2, 3, fec.Vandermonde, commit.KindHash, pp, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := Inspect(blocks[0])
	if s.Kind != "hash" || s.CodeLength != 2 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestMaxElementsForBytes(t *testing.T) {
	if got := MaxElementsForBytes(0); got != 1 {
		t.Fatalf("MaxElementsForBytes(0) = %d, want 1", got)
	}
	if got := MaxElementsForBytes(field.PayloadBytesPerElement + 1); got != 2 {
		t.Fatalf("MaxElementsForBytes(%d) = %d, want 2", field.PayloadBytesPerElement+1, got)
	}
}
