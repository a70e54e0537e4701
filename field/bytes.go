package field

// Payload chunking. Byte payloads are carried as sequences of field elements,
// 31 bytes per element. 31-byte chunks are always canonical scalars (the
// field order exceeds 2^248), so the mapping is exact and invertible with no
// per-element overflow checks.

// PayloadBytesPerElement is the number of payload bytes packed into one
// field element.
const PayloadBytesPerElement = 31

// ElementsForBytes returns the number of field elements needed to carry a
// payload of n bytes.
func ElementsForBytes(n int) int {
	return (n + PayloadBytesPerElement - 1) / PayloadBytesPerElement
}

// SplitBytes packs a byte payload into field elements, 31 bytes per element,
// big-endian within each chunk. The final chunk is implicitly zero-padded on
// the right; callers record the original byte length to invert the padding.
func SplitBytes(payload []byte) []Element {
	count := ElementsForBytes(len(payload))
	out := make([]Element, count)
	for i := 0; i < count; i++ {
		var chunk [PayloadBytesPerElement]byte
		start := i * PayloadBytesPerElement
		end := start + PayloadBytesPerElement
		if end > len(payload) {
			end = len(payload)
		}
		copy(chunk[:], payload[start:end])
		out[i] = FromBytes(chunk[:])
	}
	return out
}

// JoinBytes is the inverse of SplitBytes: it unpacks elements back into a
// byte slice of exactly 31 bytes per element. Trailing padding is the
// caller's concern.
func JoinBytes(elements []Element) []byte {
	out := make([]byte, 0, len(elements)*PayloadBytesPerElement)
	for _, e := range elements {
		b := e.Bytes()
		// The top byte of a payload-derived element is always zero.
		out = append(out, b[ElementBytes-PayloadBytesPerElement:]...)
	}
	return out
}
