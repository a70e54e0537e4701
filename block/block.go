// Package block ties shards, commitments and proofs into self-contained,
// independently verifiable Blocks, and implements the end-to-end protocol:
// full encode, verify, reconstruct, combine, inspect. A Block is immutable
// once produced; verification never mutates it, and reconstruct/combine
// produce new artifacts.
package block

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
)

// ErrMismatchedBlocks reports blocks whose commitments differ: their shards
// belong to different payload sessions and cannot be combined or jointly
// decoded.
var ErrMismatchedBlocks = errors.New("block: commitments do not match")

// Block is the unit exchanged between peers: one shard plus the shared
// commitment and the shard's proof.
type Block struct {
	Shard      fec.Shard
	Commitment commit.Commitment
	Proof      commit.Proof
}

// FullEncode composes the FEC encode with the commitment scheme: the payload
// becomes n blocks, one per shard, all carrying the same commitment. Shard
// proofs are independent and produced on parallel workers.
func FullEncode(payload []byte, k, n int, kind fec.EncodingKind, scheme commit.Scheme, pp *commit.PublicParams, rng io.Reader) ([]Block, error) {
	enc, err := fec.Encode(payload, k, n, kind, rng)
	if err != nil {
		return nil, err
	}
	c, err := scheme.Commit(enc.Source, enc.Coeffs, pp)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for j := 0; j < n; j++ {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			proof, err := scheme.Prove(enc.Source, enc.Coeffs, j, c, pp)
			if err != nil {
				errs[j] = err
				return
			}
			blocks[j] = Block{Shard: enc.Shards[j], Commitment: c, Proof: proof}
		}(j)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// Verify checks one block against the public parameters. It never touches
// other blocks or the original payload. An invalid block is a normal false
// return; errors are reserved for unusable parameters.
func Verify(b Block, pp *commit.PublicParams) (bool, error) {
	scheme, err := commit.ForKind(b.Commitment.Kind)
	if err != nil {
		return false, nil
	}
	return scheme.Verify(b.Shard, b.Commitment, b.Proof, pp)
}

// Reconstruct recovers the payload from at least k blocks of the same
// session. All commitments must be identical; otherwise the shards belong
// to different payloads and ErrMismatchedBlocks is returned before any
// linear algebra runs.
func Reconstruct(blocks []Block) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks supplied", fec.ErrInsufficientShards)
	}
	first := blocks[0].Commitment
	shards := make([]fec.Shard, len(blocks))
	for i, b := range blocks {
		if !b.Commitment.Equal(first) {
			return nil, fmt.Errorf("%w: block %d differs from block 0", ErrMismatchedBlocks, i)
		}
		shards[i] = b.Shard
	}
	return fec.Decode(shards)
}

// Combine synthesizes a new block as the weighted sum of two blocks without
// access to the original payload. Both blocks must share a commitment, and
// the scheme must support recoding; otherwise ErrUnsupportedOperation is
// returned. The combined block keeps the shared commitment, so it remains
// substitutable for a directly encoded block in any decode subset.
func Combine(a, b Block, w0, w1 field.Element) (Block, error) {
	if !a.Commitment.Equal(b.Commitment) {
		return Block{}, fmt.Errorf("%w: cannot combine across sessions", ErrMismatchedBlocks)
	}
	scheme, err := commit.ForKind(a.Commitment.Kind)
	if err != nil {
		return Block{}, err
	}
	if !scheme.SupportsRecoding() {
		return Block{}, fmt.Errorf("%w: %s cannot recode without the source payload",
			commit.ErrUnsupportedOperation, scheme.Kind())
	}

	shard, err := fec.Recode([]fec.Shard{a.Shard, b.Shard}, []field.Element{w0, w1})
	if err != nil {
		return Block{}, err
	}
	proof, err := scheme.CombineProofs(a.Proof, b.Proof, w0, w1)
	if err != nil {
		return Block{}, err
	}
	return Block{Shard: shard, Commitment: a.Commitment, Proof: proof}, nil
}
