// Package hashutil provides the deterministic content-hashing primitives
// shared by every signature type: a fast FNV-128 digest for the small
// comparison-unit hashes that flow through pkg/lcs, a blake2b digest for
// large binary payloads (images, OLE objects, chart parts), and a helper
// that reshapes either digest into a stable, UUID-shaped identity.
//
// Every function here is a pure function of its input bytes: two calls
// with identical input always produce identical output, which is what lets
// the comparers guarantee bitwise-identical change sets across runs.
package hashutil

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Digest is a 16-byte content digest, shaped so it can also be interpreted
// as a UUID when a stable synthetic identifier is needed (see ID).
type Digest [16]byte

// Sum computes the FNV-128 digest of data. This is the default content
// hash for comparison units: paragraphs, table rows, cells, shapes.
// FNV is unkeyed and unceremonious on purpose — these hashes are never
// used as a security boundary, only as an equality oracle.
func Sum(data []byte) Digest {
	h := fnv.New128()
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// SumString hashes a UTF-8 string; a thin convenience over Sum since most
// comparison-unit payloads start life as text.
func SumString(s string) Digest {
	return Sum([]byte(s))
}

// SumLarge computes a blake2b-128 digest, used for large binary payloads
// (embedded images, OLE compound-file streams, chart part XML) where the
// extra collision resistance and the faster large-input throughput of
// blake2b over FNV matter; FNV remains the default for small signature
// units where speed dominates and the input space is already small.
func SumLarge(data []byte) Digest {
	// blake2b.New supports arbitrary output sizes; 16 bytes keeps the
	// result the same shape as Sum's FNV-128 digest everywhere callers
	// compare or combine the two.
	h, err := blake2b.New(16, nil)
	if err != nil {
		// Only returns an error for invalid size/key combinations, which
		// never happens with the fixed arguments above.
		panic(err)
	}
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Combine folds a sequence of digests into one, used to build the
// per-row/per-column content hashes of an SML WorksheetSignature and the
// fingerprint hashes of a PML slide from their constituent shape hashes.
// Order matters: Combine(a, b) != Combine(b, a) in general, which is
// required for document-order-sensitive fingerprints.
func Combine(digests ...Digest) Digest {
	h := fnv.New128()
	var buf [16]byte
	for _, d := range digests {
		copy(buf[:], d[:])
		h.Write(buf[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// ID reshapes a content digest into a deterministic UUID. Unlike
// uuid.New(), which is random and therefore forbidden anywhere a
// comparison result must be reproducible, ID(d) always returns the same
// UUID for the same digest — the same idiom adnsv-go-xl's BlobHash uses
// to turn an FNV-128 sum into a content-addressed identity.
func ID(d Digest) uuid.UUID {
	id, _ := uuid.FromBytes(d[:])
	return id
}

// Uint64 returns the low 8 bytes of the digest as a uint64, for call sites
// that just need a fast, well-distributed map/set key rather than the full
// 128 bits.
func (d Digest) Uint64() uint64 {
	return binary.BigEndian.Uint64(d[8:])
}

func (d Digest) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, b := range d {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
