package block

import (
	"encoding/binary"
	"fmt"

	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
)

// Wire layout, all integers big endian:
//
//	kind      1 byte
//	sizeHint  8 bytes
//	k         4 bytes   combination length
//	m         4 bytes   data length
//	comb      k * 32 bytes
//	data      m * 32 bytes
//	clen      4 bytes
//	commit    clen bytes
//	plen      4 bytes
//	proof     plen bytes
const codecVersion = 1

// MarshalBinary serializes the block for storage or transport.
func (b Block) MarshalBinary() ([]byte, error) {
	k := len(b.Shard.Combination)
	m := len(b.Shard.Data)
	size := 1 + 1 + 8 + 4 + 4 + (k+m)*field.ElementBytes + 4 + len(b.Commitment.Data) + 4 + len(b.Proof.Data)
	out := make([]byte, 0, size)

	out = append(out, codecVersion, byte(b.Commitment.Kind))
	out = binary.BigEndian.AppendUint64(out, b.Shard.SizeHint)
	out = binary.BigEndian.AppendUint32(out, uint32(k))
	out = binary.BigEndian.AppendUint32(out, uint32(m))
	for _, e := range b.Shard.Combination {
		eb := e.Bytes()
		out = append(out, eb[:]...)
	}
	for _, e := range b.Shard.Data {
		eb := e.Bytes()
		out = append(out, eb[:]...)
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.Commitment.Data)))
	out = append(out, b.Commitment.Data...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.Proof.Data)))
	out = append(out, b.Proof.Data...)
	return out, nil
}

// UnmarshalBinary parses a block produced by MarshalBinary.
func (b *Block) UnmarshalBinary(data []byte) error {
	r := blockReader{buf: data}
	version, err := r.byte()
	if err != nil {
		return err
	}
	if version != codecVersion {
		return fmt.Errorf("%w: unknown block version %d", commit.ErrMalformed, version)
	}
	kindByte, err := r.byte()
	if err != nil {
		return err
	}
	kind := commit.Kind(kindByte)
	if _, err := commit.ForKind(kind); err != nil {
		return err
	}
	hint, err := r.uint64()
	if err != nil {
		return err
	}
	k, err := r.uint32()
	if err != nil {
		return err
	}
	m, err := r.uint32()
	if err != nil {
		return err
	}
	comb, err := r.elements(int(k))
	if err != nil {
		return err
	}
	elems, err := r.elements(int(m))
	if err != nil {
		return err
	}
	cdata, err := r.bytes()
	if err != nil {
		return err
	}
	pdata, err := r.bytes()
	if err != nil {
		return err
	}
	if len(r.buf) != r.off {
		return fmt.Errorf("%w: %d trailing bytes", commit.ErrMalformed, len(r.buf)-r.off)
	}

	b.Shard = fec.Shard{Combination: comb, Data: elems, SizeHint: hint}
	b.Commitment = commit.Commitment{Kind: kind, Data: cdata}
	b.Proof = commit.Proof{Kind: kind, Data: pdata}
	return nil
}

type blockReader struct {
	buf []byte
	off int
}

func (r *blockReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: truncated block", commit.ErrMalformed)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *blockReader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *blockReader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *blockReader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *blockReader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	raw, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

func (r *blockReader) elements(n int) ([]field.Element, error) {
	// Bound the count by the bytes actually present before allocating.
	if n < 0 || n > (len(r.buf)-r.off)/field.ElementBytes {
		return nil, fmt.Errorf("%w: element count %d exceeds buffer", commit.ErrMalformed, n)
	}
	out := make([]field.Element, n)
	for i := range out {
		raw, err := r.take(field.ElementBytes)
		if err != nil {
			return nil, err
		}
		out[i] = field.FromBytes(raw)
	}
	return out, nil
}
