// Package hash provides domain-separated transcript hashing for the
// protocols, built on BLAKE3.
package hash

import (
	"encoding"
	"encoding/binary"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/zeebo/blake3"

	"github.com/luxfi/consortium/pkg/math/curve"
)

// DigestSize is the size in bytes of Sum output.
const DigestSize = 32

// WriterToHash is implemented by types that know how to commit themselves to
// a transcript under a stable domain.
type WriterToHash interface {
	encoding.BinaryMarshaler
	Domain() string
}

// BytesWithDomain wraps raw bytes with an explicit domain tag.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// Domain implements WriterToHash.
func (b BytesWithDomain) Domain() string { return b.TheDomain }

// MarshalBinary implements encoding.BinaryMarshaler.
func (b BytesWithDomain) MarshalBinary() ([]byte, error) { return b.Bytes, nil }

// Hash is an accumulating transcript. The written data is recorded so the
// state can be cloned at any prefix.
type Hash struct {
	h          *blake3.Hasher
	transcript []byte
}

// New creates a Hash with an optional initial set of writes.
func New(initial ...interface{}) *Hash {
	h := &Hash{h: blake3.New()}
	_ = h.WriteAny(initial...)
	return h
}

// WriteAny commits the given values to the transcript. Supported types are
// []byte, string, uint64, int, saferith naturals, curve scalars and points,
// WriterToHash implementations and plain BinaryMarshalers. Each value is
// length-prefixed so the transcript is unambiguous.
func (h *Hash) WriteAny(values ...interface{}) error {
	for _, v := range values {
		var data []byte
		var domain string
		switch t := v.(type) {
		case []byte:
			data, domain = t, "bytes"
		case string:
			data, domain = []byte(t), "string"
		case uint64:
			data = make([]byte, 8)
			binary.BigEndian.PutUint64(data, t)
			domain = "uint64"
		case int:
			data = make([]byte, 8)
			binary.BigEndian.PutUint64(data, uint64(t))
			domain = "int"
		case *saferith.Nat:
			data, domain = t.Bytes(), "nat"
		case curve.Scalar:
			b, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			data, domain = b, "scalar"
		case curve.Point:
			b, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			data, domain = b, "point"
		case WriterToHash:
			b, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			data, domain = b, t.Domain()
		case encoding.BinaryMarshaler:
			b, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			data, domain = b, "binary"
		default:
			return fmt.Errorf("hash: unsupported type %T", v)
		}
		h.write(domain, data)
	}
	return nil
}

func (h *Hash) write(domain string, data []byte) {
	frame := make([]byte, 0, len(domain)+len(data)+16)
	frame = binary.BigEndian.AppendUint64(frame, uint64(len(domain)))
	frame = append(frame, domain...)
	frame = binary.BigEndian.AppendUint64(frame, uint64(len(data)))
	frame = append(frame, data...)
	_, _ = h.h.Write(frame)
	h.transcript = append(h.transcript, frame...)
}

// Sum returns the current digest without modifying the state.
func (h *Hash) Sum() []byte {
	return h.h.Sum(nil)[:DigestSize]
}

// Scalar derives a scalar from the current state by reading enough XOF output
// to make the reduction bias negligible. The state is unchanged.
func (h *Hash) Scalar(group curve.Curve) curve.Scalar {
	buf := make([]byte, group.SafeScalarBytes())
	d := h.h.Digest()
	_, _ = d.Read(buf)
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf))
}

// Clone returns an independent copy of the state.
func (h *Hash) Clone() *Hash {
	c := &Hash{h: blake3.New()}
	_, _ = c.h.Write(h.transcript)
	c.transcript = append([]byte(nil), h.transcript...)
	return c
}

// Fork clones the state and commits the given values to the copy.
func (h *Hash) Fork(values ...interface{}) *Hash {
	c := h.Clone()
	_ = c.WriteAny(values...)
	return c
}
