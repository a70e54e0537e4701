// Package dispersal is the session-level entry point for verifiable
// information dispersal: a payload is erasure-coded into n shards of which
// any k recover it, and every shard carries a commitment proof so receivers
// verify it in isolation, before reconstruction and without the payload.
//
// The heavy lifting lives in the subpackages (matrix, fec, commit, block);
// this package composes them into the six operations a peer actually runs.
package dispersal

import (
	"io"

	"github.com/dispersal/dispersal/block"
	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
)

// MaxElementsForBytes returns the number of field elements a payload of up
// to maxBytes occupies per source row in the worst case (k = 1). Public
// parameters sized with this bound cover every smaller payload and any k.
func MaxElementsForBytes(maxBytes int) int {
	n := field.ElementsForBytes(maxBytes)
	if n < 1 {
		n = 1
	}
	return n
}

// Setup generates public parameters for the given scheme, sized for
// payload rows of up to maxElements field elements. Randomness is explicit;
// use crypto/rand.Reader in production.
func Setup(kind commit.Kind, maxElements int, rng io.Reader) (*commit.PublicParams, error) {
	scheme, err := commit.ForKind(kind)
	if err != nil {
		return nil, err
	}
	return scheme.Setup(maxElements, rng)
}

// Encode disperses payload into n blocks, any k of which reconstruct it,
// each verifiable on its own under pp.
func Encode(payload []byte, k, n int, enc fec.EncodingKind, kind commit.Kind, pp *commit.PublicParams, rng io.Reader) ([]block.Block, error) {
	scheme, err := commit.ForKind(kind)
	if err != nil {
		return nil, err
	}
	return block.FullEncode(payload, k, n, enc, scheme, pp, rng)
}

// Verify checks a single block against pp. Invalid blocks return false with
// a nil error.
func Verify(b block.Block, pp *commit.PublicParams) (bool, error) {
	return block.Verify(b, pp)
}

// Decode reconstructs the payload from at least k blocks sharing one
// commitment.
func Decode(blocks []block.Block) ([]byte, error) {
	return block.Reconstruct(blocks)
}

// Combine produces a new valid block as the weighted sum of two blocks,
// without the payload. Only schemes that support recoding allow this.
func Combine(a, b block.Block, w0, w1 field.Element) (block.Block, error) {
	return block.Combine(a, b, w0, w1)
}

// Inspect summarizes a block's structure without verifying it.
func Inspect(b block.Block) block.Summary {
	return block.Inspect(b)
}
