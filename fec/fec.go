// Package fec implements the forward-error-correction engine: a payload is
// arranged as a k x m source matrix over the scalar field, multiplied by a
// k x n encoding matrix, and shipped as n shards of which any k linearly
// independent ones reconstruct the payload. All functions are pure; the only
// randomness is the injected generator for random encoding matrices.
package fec

import (
	"errors"
	"fmt"
	"io"

	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/matrix"
)

var (
	// ErrConfig reports an invalid coding configuration, such as k == 0 or
	// k > n. Detected before any work is done.
	ErrConfig = errors.New("fec: invalid configuration")

	// ErrInsufficientShards reports fewer than k distinct shards at decode.
	ErrInsufficientShards = errors.New("fec: insufficient shards")

	// ErrMismatchedShardShape reports shards whose combination or data
	// vectors disagree in length, or whose size hints conflict.
	ErrMismatchedShardShape = errors.New("fec: mismatched shard shape")
)

// EncodingKind selects how the k x n encoding matrix is built.
type EncodingKind int

const (
	// Vandermonde encoding matrices are deterministic and MDS: any k
	// columns are linearly independent, so any k shards decode.
	Vandermonde EncodingKind = iota

	// RandomMatrix encoding matrices are sampled uniformly; independence
	// of k columns holds only with overwhelming probability.
	RandomMatrix
)

// String returns the kind's wire name.
func (k EncodingKind) String() string {
	switch k {
	case Vandermonde:
		return "vandermonde"
	case RandomMatrix:
		return "random"
	default:
		return fmt.Sprintf("EncodingKind(%d)", int(k))
	}
}

// Shard is one encoded fragment of a payload. Its identity is the
// Combination vector: the k coefficients describing which linear combination
// of the k source rows produced Data. SizeHint records the original payload
// byte length so decode can strip trailing zero padding exactly.
type Shard struct {
	Combination []field.Element
	Data        []field.Element
	SizeHint    uint64
}

// Clone returns a deep copy of the shard.
func (s Shard) Clone() Shard {
	c := Shard{
		Combination: make([]field.Element, len(s.Combination)),
		Data:        make([]field.Element, len(s.Data)),
		SizeHint:    s.SizeHint,
	}
	copy(c.Combination, s.Combination)
	copy(c.Data, s.Data)
	return c
}

// sameCombination reports whether two shards have identical combination
// vectors, i.e. are the same codeword position.
func (s Shard) sameCombination(o Shard) bool {
	if len(s.Combination) != len(o.Combination) {
		return false
	}
	for i := range s.Combination {
		if !s.Combination[i].Equal(o.Combination[i]) {
			return false
		}
	}
	return true
}

// Encoding is the result of encoding one payload: the arranged source
// matrix, the encoding matrix, and the n produced shards. The matrices are
// retained because the commitment schemes consume them.
type Encoding struct {
	K, N   int
	Source *matrix.Matrix // k x m payload matrix
	Coeffs *matrix.Matrix // k x n encoding matrix
	Shards []Shard
}

// Encode splits payload into field elements, arranges them as a k x m
// source matrix (zero-padded to a multiple of k elements), and multiplies by
// a k x n encoding matrix of the requested kind. Shard j carries column j of
// the product and column j of the encoding matrix.
//
// rng is consulted only for RandomMatrix encoding matrices; an empty payload
// produces n shards with empty data vectors.
func Encode(payload []byte, k, n int, kind EncodingKind, rng io.Reader) (*Encoding, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrConfig, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: k (%d) exceeds n (%d)", ErrConfig, k, n)
	}

	elements := field.SplitBytes(payload)
	m := (len(elements) + k - 1) / k

	source := matrix.New(k, m)
	for idx, e := range elements {
		source.Set(idx/m, idx%m, e)
	}

	var coeffs *matrix.Matrix
	switch kind {
	case Vandermonde:
		coeffs = matrix.Vandermonde(k, n)
	case RandomMatrix:
		if rng == nil {
			return nil, fmt.Errorf("%w: random encoding requires an entropy source", ErrConfig)
		}
		var err error
		coeffs, err = matrix.Random(k, n, rng)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown encoding kind %d", ErrConfig, int(kind))
	}

	// Product rows are the shards: P = coeffs^T x source is n x m, with
	// row j = sum_i coeffs[i][j] * source_row_i.
	product, err := coeffs.Transpose().Mul(source)
	if err != nil {
		return nil, err
	}

	shards := make([]Shard, n)
	for j := 0; j < n; j++ {
		shards[j] = Shard{
			Combination: coeffs.Column(j),
			Data:        product.Row(j),
			SizeHint:    uint64(len(payload)),
		}
	}

	return &Encoding{K: k, N: n, Source: source, Coeffs: coeffs, Shards: shards}, nil
}

// Decode recovers the payload from at least k shards with linearly
// independent combination vectors. Shards with identical combination vectors
// are deduplicated first; proportional-but-distinct vectors surface as
// matrix.ErrNotInvertible, and the caller retries with a different subset.
func Decode(shards []Shard) ([]byte, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: no shards supplied", ErrInsufficientShards)
	}

	k := len(shards[0].Combination)
	if k == 0 {
		return nil, fmt.Errorf("%w: empty combination vector", ErrMismatchedShardShape)
	}
	m := len(shards[0].Data)
	hint := shards[0].SizeHint
	for i, s := range shards {
		if len(s.Combination) != k {
			return nil, fmt.Errorf("%w: shard %d combination length %d, want %d",
				ErrMismatchedShardShape, i, len(s.Combination), k)
		}
		if len(s.Data) != m {
			return nil, fmt.Errorf("%w: shard %d data length %d, want %d",
				ErrMismatchedShardShape, i, len(s.Data), m)
		}
		if s.SizeHint != hint {
			return nil, fmt.Errorf("%w: shard %d size hint %d, want %d",
				ErrMismatchedShardShape, i, s.SizeHint, hint)
		}
	}
	if hint > uint64(k*m*field.PayloadBytesPerElement) {
		return nil, fmt.Errorf("%w: size hint %d exceeds capacity %d",
			ErrMismatchedShardShape, hint, k*m*field.PayloadBytesPerElement)
	}

	// Deduplicate by combination vector: two shards at the same codeword
	// position carry no extra information.
	distinct := make([]Shard, 0, len(shards))
	for _, s := range shards {
		dup := false
		for _, d := range distinct {
			if s.sameCombination(d) {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, s)
		}
		if len(distinct) == k {
			break
		}
	}
	if len(distinct) < k {
		return nil, fmt.Errorf("%w: have %d distinct, need %d",
			ErrInsufficientShards, len(distinct), k)
	}

	// Stack the combination vectors: row r of M is shard r's combination,
	// so stacked data D satisfies D = M x S.
	combRows := make([][]field.Element, k)
	dataRows := make([][]field.Element, k)
	for r := 0; r < k; r++ {
		combRows[r] = distinct[r].Combination
		dataRows[r] = distinct[r].Data
	}
	combM, err := matrix.FromRows(combRows)
	if err != nil {
		return nil, err
	}
	dataM, err := matrix.FromRows(dataRows)
	if err != nil {
		return nil, err
	}

	inv, err := combM.Invert()
	if err != nil {
		return nil, err
	}
	source, err := inv.Mul(dataM)
	if err != nil {
		return nil, err
	}

	elements := make([]field.Element, 0, k*m)
	for i := 0; i < k; i++ {
		elements = append(elements, source.Row(i)...)
	}
	return field.JoinBytes(elements)[:hint], nil
}

// Recode produces a new shard as the weighted sum of existing shards,
// componentwise on both the combination and data vectors. The result is
// indistinguishable from a directly encoded shard: this is the algebraic
// property recoding-capable commitment schemes preserve.
func Recode(shards []Shard, weights []field.Element) (Shard, error) {
	if len(shards) < 2 {
		return Shard{}, fmt.Errorf("%w: recoding needs at least 2 shards, got %d",
			ErrConfig, len(shards))
	}
	if len(weights) != len(shards) {
		return Shard{}, fmt.Errorf("%w: %d weights for %d shards",
			ErrConfig, len(weights), len(shards))
	}

	k := len(shards[0].Combination)
	m := len(shards[0].Data)
	hint := shards[0].SizeHint
	for i, s := range shards {
		if len(s.Combination) != k || len(s.Data) != m {
			return Shard{}, fmt.Errorf("%w: shard %d has shape (%d,%d), want (%d,%d)",
				ErrMismatchedShardShape, i, len(s.Combination), len(s.Data), k, m)
		}
		if s.SizeHint != hint {
			return Shard{}, fmt.Errorf("%w: shard %d size hint %d, want %d",
				ErrMismatchedShardShape, i, s.SizeHint, hint)
		}
	}

	out := Shard{
		Combination: make([]field.Element, k),
		Data:        make([]field.Element, m),
		SizeHint:    hint,
	}
	for i, s := range shards {
		w := weights[i]
		for c := 0; c < k; c++ {
			out.Combination[c] = out.Combination[c].Add(w.Mul(s.Combination[c]))
		}
		for d := 0; d < m; d++ {
			out.Data[d] = out.Data[d].Add(w.Mul(s.Data[d]))
		}
	}
	return out, nil
}
