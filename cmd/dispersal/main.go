// Command dispersal encodes payloads into verifiable shards, verifies and
// recombines them, and keeps everything in a local content-addressed store.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dispersal/dispersal"
	"github.com/dispersal/dispersal/block"
	"github.com/dispersal/dispersal/commit"
	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/log"
	"github.com/dispersal/dispersal/store"
)

var version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dispersal <command> [flags]

Commands:
  setup     generate public parameters for a commitment scheme
  encode    disperse a payload into n verifiable blocks
  verify    verify stored blocks against the public parameters
  decode    reconstruct the payload from stored blocks
  combine   recode two blocks into a new one (homomorphic scheme only)
  inspect   print a structural summary of a block
  list      list stored block digests
  version   print version and exit
`)
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return 2
	}
	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "setup":
		err = cmdSetup(rest)
	case "encode":
		err = cmdEncode(rest)
	case "verify":
		err = cmdVerify(rest)
	case "decode":
		err = cmdDecode(rest)
	case "combine":
		err = cmdCombine(rest)
	case "inspect":
		err = cmdInspect(rest)
	case "list":
		err = cmdList(rest)
	case "version":
		fmt.Printf("dispersal %s\n", version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commonFlags registers the flags every subcommand shares and returns the
// store directory and log level pointers.
func commonFlags(fs *flag.FlagSet) (dir *string, level *string) {
	dir = fs.String("dir", defaultStoreDir(), "Store directory")
	level = fs.String("log", "info", "Log level: debug, info, warn, error")
	return dir, level
}

func openStore(dir, level string) (*store.Store, error) {
	log.SetDefault(log.New(log.ParseLevel(level)))
	return store.Open(dir)
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dispersal"
	}
	return home + "/.dispersal"
}

func cmdSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	scheme := fs.String("scheme", "kzg", "Commitment scheme: kzg, folding, homomorphic, hash")
	maxBytes := fs.Int("max-bytes", 1<<20, "Largest payload the parameters must cover")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := commit.KindFromName(*scheme)
	if err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}

	maxElements := dispersal.MaxElementsForBytes(*maxBytes)
	pp, err := dispersal.Setup(kind, maxElements, rand.Reader)
	if err != nil {
		return err
	}
	if err := st.PutParams(pp); err != nil {
		return err
	}
	fmt.Printf("params for %s written to %s (up to %d elements per row)\n",
		kind, *dir, maxElements)
	return nil
}

func cmdEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	scheme := fs.String("scheme", "kzg", "Commitment scheme: kzg, folding, homomorphic, hash")
	encoding := fs.String("encoding", "vandermonde", "Encoding matrix: vandermonde, random")
	k := fs.Int("k", 3, "Shards required for reconstruction")
	n := fs.Int("n", 5, "Total shards produced")
	in := fs.String("in", "", "Payload file (default stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := commit.KindFromName(*scheme)
	if err != nil {
		return err
	}
	enc, err := encodingKind(*encoding)
	if err != nil {
		return err
	}
	payload, err := readInput(*in)
	if err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}
	pp, err := st.GetParams()
	if err != nil {
		return err
	}

	blocks, err := dispersal.Encode(payload, *k, *n, enc, kind, pp, rand.Reader)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		digest, err := st.PutBlock(b)
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", digest)
	}
	log.Info("payload dispersed", "bytes", len(payload), "k", *k, "n", *n, "scheme", kind.String())
	return nil
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}
	pp, err := st.GetParams()
	if err != nil {
		return err
	}
	digests, err := resolveDigests(st, fs.Args())
	if err != nil {
		return err
	}

	bad := 0
	for _, d := range digests {
		b, err := st.GetBlock(d)
		if err != nil {
			return err
		}
		ok, err := dispersal.Verify(b, pp)
		if err != nil {
			return err
		}
		status := "ok"
		if !ok {
			status = "INVALID"
			bad++
		}
		fmt.Printf("%x  %s\n", d[:8], status)
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d blocks failed verification", bad, len(digests))
	}
	return nil
}

func cmdDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	out := fs.String("out", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}
	digests, err := resolveDigests(st, fs.Args())
	if err != nil {
		return err
	}

	blocks := make([]block.Block, 0, len(digests))
	for _, d := range digests {
		b, err := st.GetBlock(d)
		if err != nil {
			return err
		}
		blocks = append(blocks, b)
	}
	payload, err := dispersal.Decode(blocks)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(*out, payload, 0o644)
}

func cmdCombine(args []string) error {
	fs := flag.NewFlagSet("combine", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("combine needs exactly two block digests")
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}

	var parents [2]block.Block
	for i := 0; i < 2; i++ {
		d, err := parseDigest(fs.Arg(i))
		if err != nil {
			return err
		}
		parents[i], err = st.GetBlock(d)
		if err != nil {
			return err
		}
	}
	w0, err := field.Random(rand.Reader)
	if err != nil {
		return err
	}
	w1, err := field.Random(rand.Reader)
	if err != nil {
		return err
	}

	combined, err := dispersal.Combine(parents[0], parents[1], w0, w1)
	if err != nil {
		return err
	}
	digest, err := st.PutBlock(combined)
	if err != nil {
		return err
	}
	fmt.Printf("%x\n", digest)
	return nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}
	digests, err := resolveDigests(st, fs.Args())
	if err != nil {
		return err
	}
	for _, d := range digests {
		b, err := st.GetBlock(d)
		if err != nil {
			return err
		}
		fmt.Println(dispersal.Inspect(b))
	}
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dir, level := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := openStore(*dir, *level)
	if err != nil {
		return err
	}
	digests, err := st.ListBlocks()
	if err != nil {
		return err
	}
	for _, d := range digests {
		fmt.Printf("%x\n", d)
	}
	return nil
}

func encodingKind(name string) (fec.EncodingKind, error) {
	switch name {
	case "vandermonde":
		return fec.Vandermonde, nil
	case "random":
		return fec.RandomMatrix, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q (want vandermonde or random)", name)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseDigest(s string) ([32]byte, error) {
	var d [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return d, fmt.Errorf("invalid block digest %q", s)
	}
	copy(d[:], raw)
	return d, nil
}

// resolveDigests parses positional digest arguments, falling back to every
// block in the store when none are given.
func resolveDigests(st *store.Store, args []string) ([][32]byte, error) {
	if len(args) == 0 {
		return st.ListBlocks()
	}
	out := make([][32]byte, len(args))
	for i, a := range args {
		d, err := parseDigest(a)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
