package core

import "fmt"

// AlignmentAtomKind distinguishes the two atom shapes an AlignedValue can be
// built from.
type AlignmentAtomKind uint8

const (
	AtomBytes AlignmentAtomKind = iota
	AtomCompress
)

// AlignmentAtom is either Bytes{Length} — a fixed-width opaque byte string —
// or Compress — a variable-length string that is hashed/committed whenever
// it is carried as a field element.
type AlignmentAtom struct {
	Kind   AlignmentAtomKind
	Length uint32 // meaningful only for AtomBytes
}

func BytesAtom(length uint32) AlignmentAtom { return AlignmentAtom{Kind: AtomBytes, Length: length} }
func CompressAtom() AlignmentAtom           { return AlignmentAtom{Kind: AtomCompress} }

// Alignment is an ordered sequence of atoms describing how an AlignedValue's
// byte strings map onto its field-view limbs.
type Alignment []AlignmentAtom

func (a Alignment) BinaryRepr(w *HashWriter) {
	w.WriteU32(uint32(len(a)))
	for _, atom := range a {
		w.WriteByte(byte(atom.Kind))
		w.WriteU32(atom.Length)
	}
}

func (a Alignment) BinaryLen() int { return 4 + 5*len(a) }

// AlignedValue pairs an ordered sequence of byte strings with the Alignment
// describing them. Every byte-level producer (persistent hash) and every
// field-level producer (proof circuits) must derive from the same
// Alignment — BytesView and FieldView are the two projections this type
// exposes, and they are built from one shared Strings slice so they can
// never disagree.
type AlignedValue struct {
	Strings   [][]byte
	Alignment Alignment
}

// Validate checks that Strings matches Alignment atom-by-atom: a Bytes atom
// must have a string of exactly its declared length; a Compress atom may
// carry any length (it is committed, not length-checked).
func (v AlignedValue) Validate() error {
	if len(v.Strings) != len(v.Alignment) {
		return wrapErr(KindDecode, "aligned_value_arity", ErrTruncated)
	}
	for i, atom := range v.Alignment {
		if atom.Kind == AtomBytes && uint32(len(v.Strings[i])) != atom.Length {
			return wrapErr(KindDecode, "aligned_value_atom_length", ErrTruncated)
		}
	}
	return nil
}

// BytesView concatenates every string in order; this is what persistent
// hashing operates on.
func (v AlignedValue) BytesView() []byte {
	var out []byte
	for _, s := range v.Strings {
		out = append(out, s...)
	}
	return out
}

func (v AlignedValue) BinaryRepr(w *HashWriter) {
	for _, s := range v.Strings {
		w.WriteLenPrefixed(s)
	}
	v.Alignment.BinaryRepr(w)
}

func (v AlignedValue) BinaryLen() int {
	n := v.Alignment.BinaryLen()
	for _, s := range v.Strings {
		n += 4 + len(s)
	}
	return n
}

// FieldView decodes each string into field elements per its atom: a Bytes
// atom packs its fixed-length string 31 bytes at a time; a Compress atom,
// being variable length, contributes two field elements rather than being
// packed directly: its length, then its persistent hash degraded into the
// field.
func (v AlignedValue) FieldView() ([]Fr, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	var out []Fr
	for i, s := range v.Strings {
		switch v.Alignment[i].Kind {
		case AtomBytes:
			for off := 0; off < len(s); off += 31 {
				end := off + 31
				if end > len(s) {
					end = len(s)
				}
				out = append(out, FrFromBytes(s[off:end]))
			}
		case AtomCompress:
			out = append(out, FrFromUint64(uint64(len(s))))
			out = append(out, DegradeToTransient(PersistentHash(s)))
		default:
			return nil, wrapErr(KindDecode, "unknown_alignment_atom", nil)
		}
	}
	return out, nil
}

// Hash is HashOf(v), the persistent hash of v's BinaryRepr (length-prefixed
// strings followed by the alignment) — the canonical digest used
// wherever an AlignedValue itself needs a H identity (e.g. as a Map key).
func (v AlignedValue) Hash() HashOutput { return HashOf(v) }

func (v AlignedValue) String() string {
	return fmt.Sprintf("AlignedValue{%d strings, %d atoms}", len(v.Strings), len(v.Alignment))
}

// Aligned is implemented by every Go type with a canonical FAB
// representation: it can describe its own Alignment and convert to/from an
// AlignedValue. DynAligned is the type-erased counterpart used where the VM
// or a container stores heterogeneous aligned values (e.g. as StateValue
// cells).
type Aligned interface {
	ToAligned() AlignedValue
}

type DynAligned interface {
	Aligned
	HashRepr
}

// aligned adapter lets any AlignedValue satisfy DynAligned directly.
type alignedAdapter struct{ AlignedValue }

func (a alignedAdapter) ToAligned() AlignedValue    { return a.AlignedValue }
func (a alignedAdapter) BinaryRepr(w *HashWriter)   { a.AlignedValue.BinaryRepr(w) }
func (a alignedAdapter) BinaryLen() int             { return a.AlignedValue.BinaryLen() }

func AsDynAligned(v AlignedValue) DynAligned { return alignedAdapter{v} }

// AlignedBytes builds a single-atom AlignedValue carrying an opaque fixed
// byte string — the common case for hashes, addresses, and other fixed-size
// values.
func AlignedBytes(b []byte) AlignedValue {
	return AlignedValue{Strings: [][]byte{b}, Alignment: Alignment{BytesAtom(uint32(len(b)))}}
}

// AlignedCompress builds a single-atom AlignedValue carrying a variable
// length string (e.g. contract bytecode references, log payloads).
func AlignedCompress(b []byte) AlignedValue {
	return AlignedValue{Strings: [][]byte{b}, Alignment: Alignment{CompressAtom()}}
}

// AlignedConcat concatenates the atoms of several AlignedValues in order —
// the FAB equivalent of tupling.
func AlignedConcat(vs ...AlignedValue) AlignedValue {
	out := AlignedValue{}
	for _, v := range vs {
		out.Strings = append(out.Strings, v.Strings...)
		out.Alignment = append(out.Alignment, v.Alignment...)
	}
	return out
}
