package commit

import (
	"golang.org/x/crypto/sha3"

	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/group"
)

// transcript is a Fiat-Shamir transcript over SHA3-256. Provers and
// verifiers replay the same absorb sequence to derive identical challenges,
// which is what keeps Commit and Prove deterministic.
type transcript struct {
	state []byte
}

func newTranscript(label string) *transcript {
	h := sha3.Sum256([]byte(label))
	return &transcript{state: h[:]}
}

func (t *transcript) absorb(data []byte) {
	h := sha3.New256()
	h.Write(t.state)
	h.Write(data)
	t.state = h.Sum(nil)
}

func (t *transcript) absorbScalar(s field.Element) {
	b := s.Bytes()
	t.absorb(b[:])
}

func (t *transcript) absorbScalars(ss []field.Element) {
	for _, s := range ss {
		t.absorbScalar(s)
	}
}

func (t *transcript) absorbPoint(p group.Element) {
	b := p.Bytes()
	t.absorb(b[:])
}

// challenge squeezes a scalar challenge and folds it back into the state.
// A zero challenge is mapped to one so folding steps never degenerate.
func (t *transcript) challenge() field.Element {
	h := sha3.New256()
	h.Write(t.state)
	h.Write([]byte("challenge"))
	digest := h.Sum(nil)
	t.state = digest

	c := field.FromBytes(digest)
	if c.IsZero() {
		c = field.One()
	}
	return c
}

// shardChallenge derives the per-shard evaluation point from the commitment
// and the shard's combination and data vectors. Any single-component change
// to either vector yields a fresh challenge, which is what turns the
// evaluation check into tamper detection.
func shardChallenge(label string, c Commitment, combination, data []field.Element) field.Element {
	t := newTranscript(label)
	t.absorb([]byte{byte(c.Kind)})
	t.absorb(c.Data)
	t.absorbScalars(combination)
	t.absorbScalars(data)
	return t.challenge()
}
