// Package store persists blocks and public parameters on disk. Blocks are
// content addressed: the file name is the keccak256 digest of the encoded
// block, so a block can never be silently overwritten with different
// content and a corrupted file is detected on read.
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dispersal/dispersal/block"
	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/log"
)

// ErrNotFound reports a lookup for a block or params file that does not
// exist in the store.
var ErrNotFound = errors.New("store: not found")

const (
	blockDir   = "blocks"
	paramsFile = "params.bin"
	blockExt   = ".blk"
)

// Store is a directory-backed block and parameter store. It is safe for
// concurrent readers; writers rely on atomic rename.
type Store struct {
	root string
	log  *log.Logger
}

// Open creates the store layout under root if needed and returns a handle.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, blockDir), 0o755); err != nil {
		return nil, fmt.Errorf("store: create layout: %w", err)
	}
	return &Store{
		root: root,
		log:  log.Default().Module("store"),
	}, nil
}

// PutBlock encodes and persists a block, returning its content digest.
// Storing the same block twice is a no-op that returns the same digest.
func (s *Store) PutBlock(b block.Block) ([32]byte, error) {
	data, err := b.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	var digest [32]byte
	copy(digest[:], crypto.Keccak256(data))

	path := s.blockPath(digest)
	if _, err := os.Stat(path); err == nil {
		return digest, nil
	}
	if err := writeAtomic(path, data); err != nil {
		return [32]byte{}, fmt.Errorf("store: write block: %w", err)
	}
	s.log.Debug("block stored", "digest", hex.EncodeToString(digest[:8]), "bytes", len(data))
	return digest, nil
}

// GetBlock loads a block by content digest and checks it against the file
// contents before decoding.
func (s *Store) GetBlock(digest [32]byte) (block.Block, error) {
	data, err := os.ReadFile(s.blockPath(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return block.Block{}, fmt.Errorf("%w: block %x", ErrNotFound, digest[:8])
		}
		return block.Block{}, fmt.Errorf("store: read block: %w", err)
	}
	var got [32]byte
	copy(got[:], crypto.Keccak256(data))
	if got != digest {
		return block.Block{}, fmt.Errorf("store: block %x corrupted on disk", digest[:8])
	}
	var b block.Block
	if err := b.UnmarshalBinary(data); err != nil {
		return block.Block{}, err
	}
	return b, nil
}

// ListBlocks returns the digests of all stored blocks in lexicographic
// order.
func (s *Store) ListBlocks() ([][32]byte, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, blockDir))
	if err != nil {
		return nil, fmt.Errorf("store: list blocks: %w", err)
	}
	var out [][32]byte
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != blockExt {
			continue
		}
		raw, err := hex.DecodeString(name[:len(name)-len(blockExt)])
		if err != nil || len(raw) != 32 {
			continue
		}
		var d [32]byte
		copy(d[:], raw)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out, nil
}

// PutParams persists the public parameters, replacing any previous set.
func (s *Store) PutParams(pp *commit.PublicParams) error {
	data, err := pp.MarshalBinary()
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.root, paramsFile), data); err != nil {
		return fmt.Errorf("store: write params: %w", err)
	}
	s.log.Info("params stored", "maxElements", pp.MaxElements, "bytes", len(data))
	return nil
}

// GetParams loads the stored public parameters.
func (s *Store) GetParams() (*commit.PublicParams, error) {
	data, err := os.ReadFile(filepath.Join(s.root, paramsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: params", ErrNotFound)
		}
		return nil, fmt.Errorf("store: read params: %w", err)
	}
	pp := new(commit.PublicParams)
	if err := pp.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return pp, nil
}

func (s *Store) blockPath(digest [32]byte) string {
	return filepath.Join(s.root, blockDir, hex.EncodeToString(digest[:])+blockExt)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
