package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// HashOutput is the 256-bit persistent digest used throughout the ledger:
// storage keys, coin commitments once upgraded from the field, nullifiers,
// and the tagged-serialization checksum. The blank value is all zeros.
type HashOutput [32]byte

var ZeroHash HashOutput

func (h HashOutput) Bytes() []byte { return h[:] }

func (h HashOutput) String() string { return hex.EncodeToString(h[:]) }

// Short mirrors the teacher's convention of a compact debug form: first and
// last four hex characters.
func (h HashOutput) Short() string {
	full := hex.EncodeToString(h[:])
	return full[:4] + ".." + full[len(full)-4:]
}

func (h HashOutput) Compare(o HashOutput) int { return bytes.Compare(h[:], o[:]) }

func (h HashOutput) Equal(o HashOutput) bool { return h == o }

func (h HashOutput) IsZero() bool { return h == ZeroHash }

// HashOutputFromBytes requires an exact 32-byte slice.
func HashOutputFromBytes(b []byte) (HashOutput, error) {
	var out HashOutput
	if len(b) != 32 {
		return out, wrapErr(KindDecode, "hash_output_length", ErrTruncated)
	}
	copy(out[:], b)
	return out, nil
}

// HashWriter accumulates the canonical byte representation of a value ahead
// of hashing; every storable type's BinaryRepr writes into one of these
// instead of returning an intermediate []byte, so nested composite types
// avoid an allocation per field.
type HashWriter struct {
	buf bytes.Buffer
}

func NewHashWriter() *HashWriter { return &HashWriter{} }

func (w *HashWriter) WriteBytes(b []byte) { w.buf.Write(b) }

func (w *HashWriter) WriteByte(b byte) { w.buf.WriteByte(b) }

func (w *HashWriter) WriteBool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *HashWriter) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *HashWriter) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *HashWriter) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *HashWriter) WriteU128(hi, lo uint64) {
	w.WriteU64(lo)
	w.WriteU64(hi)
}

func (w *HashWriter) WriteHash(h HashOutput) { w.buf.Write(h[:]) }

// WriteLenPrefixed writes a u32 little-endian length followed by the bytes,
// the framing used for every variable-length field in a tagged binary repr.
func (w *HashWriter) WriteLenPrefixed(b []byte) {
	w.WriteU32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *HashWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *HashWriter) Len() int { return w.buf.Len() }

// HashReader is HashWriter's decode-side counterpart: a cursor over a byte
// slice with the same little-endian, length-prefixed framing every
// BinaryRepr writes. Every Read method returns ErrTruncated once the
// cursor runs past the end rather than panicking, so a malformed wire
// value always surfaces as a Decode-kind LedgerError.
type HashReader struct {
	buf []byte
	pos int
}

func NewHashReader(b []byte) *HashReader { return &HashReader{buf: b} }

func (r *HashReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return wrapErr(KindDecode, "truncated_input", ErrTruncated)
	}
	return nil
}

func (r *HashReader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *HashReader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *HashReader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *HashReader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *HashReader) ReadHash() (HashOutput, error) {
	if err := r.need(32); err != nil {
		return HashOutput{}, err
	}
	h, _ := HashOutputFromBytes(r.buf[r.pos : r.pos+32])
	r.pos += 32
	return h, nil
}

func (r *HashReader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *HashReader) ReadLenPrefixed() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

// Done reports whether the reader has consumed the entire buffer - the
// "verify EOF" half of the tagged-deserialize contract.
func (r *HashReader) Done() bool { return r.pos == len(r.buf) }

// HashRepr is implemented by every type storable in the arena or hashable
// into a commitment. BinaryRepr must write exactly BinaryLen() bytes;
// callers use BinaryLen to size a value without serializing it (the cell
// bound check in statevalue.go, per-byte gas in vm_cost.go).
type HashRepr interface {
	BinaryRepr(w *HashWriter)
	BinaryLen() int
}

// PersistentHash is SHA-256 over an arbitrary byte string.
func PersistentHash(data []byte) HashOutput {
	return sha256.Sum256(data)
}

// HashOf computes the canonical byte representation of a HashRepr value
// and its persistent hash in one pass.
func HashOf(v HashRepr) HashOutput {
	w := NewHashWriter()
	v.BinaryRepr(w)
	return PersistentHash(w.Bytes())
}

// PersistentCommit computes hash(opening || binary_repr(T)), the opening
// acting as a blinding factor so the commitment does not leak T by itself.
func PersistentCommit(v HashRepr, opening HashOutput) HashOutput {
	w := NewHashWriter()
	w.WriteHash(opening)
	v.BinaryRepr(w)
	return PersistentHash(w.Bytes())
}

// rawBytes wraps a raw byte slice so it can be hashed directly without a
// dedicated named type when a caller already has a flat byte string.
type rawBytes []byte

func (r rawBytes) BinaryRepr(w *HashWriter) { w.WriteBytes(r) }
func (r rawBytes) BinaryLen() int           { return len(r) }

// HashConcat hashes the concatenation of the binary representations of the
// given values in order — the common "tuple" case for ad hoc composites
// that don't warrant their own named struct.
func HashConcat(vs ...HashRepr) HashOutput {
	w := NewHashWriter()
	for _, v := range vs {
		v.BinaryRepr(w)
	}
	return PersistentHash(w.Bytes())
}
