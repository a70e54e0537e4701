package fec

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/matrix"
)

func TestEncodeDecodeAnyK(t *testing.T) {
	payload := []byte("hello world")
	enc, err := Encode(payload, 3, 5, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(enc.Shards) != 5 {
		t.Fatalf("got %d shards, want 5", len(enc.Shards))
	}

	got, err := Decode([]Shard{enc.Shards[0], enc.Shards[2], enc.Shards[3]})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestDecodeEverySubset(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 37)
	enc, err := Encode(payload, 3, 6, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for a := 0; a < 6; a++ {
		for b := a + 1; b < 6; b++ {
			for c := b + 1; c < 6; c++ {
				got, err := Decode([]Shard{enc.Shards[a], enc.Shards[b], enc.Shards[c]})
				if err != nil {
					t.Fatalf("Decode subset {%d,%d,%d}: %v", a, b, c, err)
				}
				if !bytes.Equal(got, payload) {
					t.Fatalf("subset {%d,%d,%d} decoded wrong payload", a, b, c)
				}
			}
		}
	}
}

func TestEncodeRandomMatrix(t *testing.T) {
	payload := []byte("random coefficients still decode")
	enc, err := Encode(payload, 4, 7, RandomMatrix, rand.Reader)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc.Shards[:4])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestEncodeRandomMatrixNeedsRNG(t *testing.T) {
	if _, err := Encode([]byte("x"), 2, 3, RandomMatrix, nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("Encode without rng: err = %v, want ErrConfig", err)
	}
}

func TestEncodeConfigErrors(t *testing.T) {
	if _, err := Encode([]byte("x"), 0, 3, Vandermonde, nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("k=0: err = %v, want ErrConfig", err)
	}
	if _, err := Encode([]byte("x"), 4, 3, Vandermonde, nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("k>n: err = %v, want ErrConfig", err)
	}
}

func TestEncodeEmptyPayload(t *testing.T) {
	enc, err := Encode(nil, 2, 4, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i, s := range enc.Shards {
		if len(s.Data) != 0 {
			t.Fatalf("shard %d has %d data elements, want 0", i, len(s.Data))
		}
		if len(s.Combination) != 2 {
			t.Fatalf("shard %d combination length %d, want 2", i, len(s.Combination))
		}
	}
	got, err := Decode(enc.Shards[:2])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d bytes from empty payload, want 0", len(got))
	}
}

func TestDecodeInsufficient(t *testing.T) {
	enc, err := Encode([]byte("hello world"), 3, 5, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(enc.Shards[:2]); !errors.Is(err, ErrInsufficientShards) {
		t.Fatalf("2 of 3 shards: err = %v, want ErrInsufficientShards", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrInsufficientShards) {
		t.Fatalf("no shards: err = %v, want ErrInsufficientShards", err)
	}
}

func TestDecodeDeduplicates(t *testing.T) {
	enc, err := Encode([]byte("hello world"), 3, 5, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Three copies of one shard plus one other: only 2 distinct positions.
	dup := []Shard{enc.Shards[0], enc.Shards[0].Clone(), enc.Shards[0].Clone(), enc.Shards[1]}
	if _, err := Decode(dup); !errors.Is(err, ErrInsufficientShards) {
		t.Fatalf("duplicated shards: err = %v, want ErrInsufficientShards", err)
	}
}

func TestDecodeProportionalCombinations(t *testing.T) {
	enc, err := Encode([]byte("hi"), 2, 3, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Scale shard 0 by 2: distinct combination vector but linearly dependent
	// with the original, so the stacked matrix is singular.
	two := field.FromUint64(2)
	scaled := enc.Shards[0].Clone()
	for i := range scaled.Combination {
		scaled.Combination[i] = scaled.Combination[i].Mul(two)
	}
	for i := range scaled.Data {
		scaled.Data[i] = scaled.Data[i].Mul(two)
	}
	if _, err := Decode([]Shard{enc.Shards[0], scaled}); !errors.Is(err, matrix.ErrNotInvertible) {
		t.Fatalf("proportional shards: err = %v, want matrix.ErrNotInvertible", err)
	}
}

func TestDecodeShapeMismatch(t *testing.T) {
	enc, err := Encode([]byte("hello world"), 3, 5, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	short := enc.Shards[1].Clone()
	short.Data = short.Data[:0]
	if _, err := Decode([]Shard{enc.Shards[0], short, enc.Shards[2]}); !errors.Is(err, ErrMismatchedShardShape) {
		t.Fatalf("truncated data: err = %v, want ErrMismatchedShardShape", err)
	}

	wrongHint := enc.Shards[1].Clone()
	wrongHint.SizeHint++
	if _, err := Decode([]Shard{enc.Shards[0], wrongHint, enc.Shards[2]}); !errors.Is(err, ErrMismatchedShardShape) {
		t.Fatalf("conflicting size hint: err = %v, want ErrMismatchedShardShape", err)
	}
}

func TestDecodeOversizedHint(t *testing.T) {
	enc, err := Encode([]byte("hi"), 2, 3, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shards := []Shard{enc.Shards[0].Clone(), enc.Shards[1].Clone()}
	for i := range shards {
		shards[i].SizeHint = 1 << 30
	}
	if _, err := Decode(shards); !errors.Is(err, ErrMismatchedShardShape) {
		t.Fatalf("oversized hint: err = %v, want ErrMismatchedShardShape", err)
	}
}

// A recoded shard substitutes for a directly encoded one in any decode set.
func TestRecodeDecodes(t *testing.T) {
	payload := []byte("network coding in the middle")
	enc, err := Encode(payload, 3, 5, Vandermonde, nil)
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
	mixed, err := Recode([]Shard{enc.Shards[3], enc.Shards[4]}, []field.Element{w0, w1})
	if err != nil {
		t.Fatalf("Recode: %v", err)
	}
	got, err := Decode([]Shard{enc.Shards[0], enc.Shards[1], mixed})
	if err != nil {
		t.Fatalf("Decode with recoded shard: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestRecodeConfigErrors(t *testing.T) {
	enc, err := Encode([]byte("x"), 2, 3, Vandermonde, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	one := field.One()
	if _, err := Recode(enc.Shards[:1], []field.Element{one}); !errors.Is(err, ErrConfig) {
		t.Fatalf("1 shard: err = %v, want ErrConfig", err)
	}
	if _, err := Recode(enc.Shards[:2], []field.Element{one}); !errors.Is(err, ErrConfig) {
		t.Fatalf("weight count mismatch: err = %v, want ErrConfig", err)
	}
}

func TestEncodingKindString(t *testing.T) {
	if Vandermonde.String() != "vandermonde" || RandomMatrix.String() != "random" {
		t.Fatalf("kind names: %q, %q", Vandermonde.String(), RandomMatrix.String())
	}
}
