// Package hashid implements the 192-bit content digests the share tree is
// keyed by (TTH) and identifies remote users with (CID).
//
// The original client builds these over the Tiger cipher; no Tiger-hash
// implementation exists anywhere in the retrieval pack. lukechampine.com/blake3
// (pulled in from the unitechio-sfm example's dependency closure) is used as
// the leaf/internal hash function instead, truncated to 24 bytes, keeping the
// same block-hash-tree construction the wire format assumes (§4.13).
package hashid

import (
	"encoding/base32"
	"fmt"
	"io"

	"lukechampine.com/blake3"
)

// Size is the digest length in bytes (192 bits).
const Size = 24

// DefaultLeafSize is the block size hashed at each Merkle leaf, matching the
// original THEX convention of 1024 leaves per file for reasonably sized files.
const DefaultLeafSize = 64 * 1024

var b32 = base32.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZ234567").WithPadding(base32.NoPadding)

// Hash is a 192-bit tree-hash digest (TTH).
type Hash [Size]byte

// CID is a 192-bit client identifier, opaque to this package — never
// computed locally, only parsed from what the client-connection layer hands
// down.
type CID [Size]byte

// String renders the digest as unpadded base32, matching the wire encoding
// used in file lists and Shares.xml (§6.1/§6.2).
func (h Hash) String() string { return b32.EncodeToString(h[:]) }

func (c CID) String() string { return b32.EncodeToString(c[:]) }

// IsZero reports whether h is the zero digest (no TTH computed yet).
func (h Hash) IsZero() bool { return h == Hash{} }

// ParseHash decodes a base32 TTH string produced by String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := b32.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid TTH %q: %w", s, err)
	}
	if len(raw) != Size {
		return h, fmt.Errorf("invalid TTH %q: expected %d bytes, got %d", s, Size, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// ParseCID decodes a base32 CID string.
func ParseCID(s string) (CID, error) {
	var c CID
	raw, err := b32.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("invalid CID %q: %w", s, err)
	}
	if len(raw) != Size {
		return c, fmt.Errorf("invalid CID %q: expected %d bytes, got %d", s, Size, len(raw))
	}
	copy(c[:], raw)
	return c, nil
}

func leafHash(block []byte) Hash {
	sum := blake3.Sum256(append([]byte{0x00}, block...))
	var h Hash
	copy(h[:], sum[:Size])
	return h
}

func nodeHash(left, right Hash) Hash {
	buf := make([]byte, 0, 1+2*Size)
	buf = append(buf, 0x01)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	sum := blake3.Sum256(buf)
	var h Hash
	copy(h[:], sum[:Size])
	return h
}

// ComputeTTH reads r to EOF and returns the tree hash over leafSize-byte
// blocks (DefaultLeafSize when leafSize <= 0). Real path+size+mtime lookups
// against a cache are the hash manager's job (§1 out of scope); this is the
// pure digest function it would call on a cache miss.
func ComputeTTH(r io.Reader, leafSize int) (Hash, error) {
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}

	var leaves []Hash
	buf := make([]byte, leafSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			leaves = append(leaves, leafHash(buf[:n]))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return Hash{}, fmt.Errorf("reading input for TTH: %w", err)
		}
	}

	if len(leaves) == 0 {
		return leafHash(nil), nil
	}

	for len(leaves) > 1 {
		var next []Hash
		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				next = append(next, leaves[i])
				continue
			}
			next = append(next, nodeHash(leaves[i], leaves[i+1]))
		}
		leaves = next
	}

	return leaves[0], nil
}
