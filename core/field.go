package core

import (
	"encoding/hex"
	"math/big"

	bls12381 "github.com/kilic/bls12-381"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Fr is a scalar of the outer proof curve, the field every transient
// (field-level) hash and commitment operates over. It stores 32 bytes
// little-endian; the top byte is constrained by the underlying prime so at
// most 31 usable bytes are ever packed into one limb (see AlignedValue's
// field view in alignment.go).
type Fr struct {
	el fr.Element
}

// FrFromUint64 lifts a small integer into the field, used throughout for
// token-type tags, array indices, and opcode arguments carried as field
// elements.
func FrFromUint64(v uint64) Fr {
	var f Fr
	f.el.SetUint64(v)
	return f
}

// FrFromBytes interprets up to 31 bytes as a little-endian field element,
// the packing rule AlignedValue.FieldView uses for Bytes atoms.
func FrFromBytes(b []byte) Fr {
	var buf [32]byte
	copy(buf[:], b) // caller guarantees len(b) <= 31
	var f Fr
	f.el.SetBytesLE(buf[:])
	return f
}

func (f Fr) Bytes() []byte {
	b := f.el.Bytes() // big-endian per gnark-crypto convention
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

func (f Fr) Add(o Fr) Fr {
	var r Fr
	r.el.Add(&f.el, &o.el)
	return r
}

func (f Fr) Mul(o Fr) Fr {
	var r Fr
	r.el.Mul(&f.el, &o.el)
	return r
}

func (f Fr) Square() Fr {
	var r Fr
	r.el.Square(&f.el)
	return r
}

func (f Fr) Equal(o Fr) bool { return f.el.Equal(&o.el) }

func (f Fr) IsZero() bool { return f.el.IsZero() }

func (f Fr) String() string { return hex.EncodeToString(f.Bytes()) }

// poseidonRoundConstants derives deterministic round constants for the
// sponge below from repeated persistent hashing of a domain-separated seed.
// The ledger does not rely on any externally-audited Poseidon parameter set
// (out of scope per the purpose statement — the core only specifies how an
// already-vetted field-friendly hash is composed); this sponge is internally
// consistent and deterministic across platforms, which is all §8's hash
// agreement and replay-determinism properties require of it.
func poseidonRoundConstants(n int) []Fr {
	out := make([]Fr, n)
	seed := PersistentHash([]byte("shielded-ledger/poseidon-round-constant"))
	for i := 0; i < n; i++ {
		w := NewHashWriter()
		w.WriteHash(seed)
		w.WriteU32(uint32(i))
		seed = PersistentHash(w.Bytes())
		out[i] = FrFromBytes(seed[:31])
	}
	return out
}

const poseidonRounds = 8

var poseidonRC = poseidonRoundConstants(poseidonRounds)

// poseidonSBox is the usual x^5 S-box over a prime field of this size.
func poseidonSBox(x Fr) Fr {
	x2 := x.Square()
	x4 := x2.Square()
	return x4.Mul(x)
}

// TransientHash is the Poseidon-shaped sponge over the outer scalar field:
// absorb every input limb, applying the S-box and round constant each
// round, and squeeze a single output element. Used for transient_hash,
// Merkle inner nodes, and nullifier/commitment derivation at the field
// level.
func TransientHash(inputs []Fr) Fr {
	state := FrFromUint64(uint64(len(inputs)))
	for _, in := range inputs {
		state = state.Add(in)
		for r := 0; r < poseidonRounds; r++ {
			state = poseidonSBox(state.Add(poseidonRC[r]))
		}
	}
	return state
}

// TransientCommit is Poseidon(opening || field_repr(T)).
func TransientCommit(fieldRepr []Fr, opening Fr) Fr {
	in := make([]Fr, 0, len(fieldRepr)+1)
	in = append(in, opening)
	in = append(in, fieldRepr...)
	return TransientHash(in)
}

// HashToField is a domain-separated Poseidon hash of an arbitrary byte
// string into the scalar field, used whenever a byte-level key (e.g. a
// contract's declared entry-point name) must be folded into a field
// element for use inside a transcript.
func HashToField(domain string, data []byte) Fr {
	h := PersistentHash(append([]byte(domain+":"), data...))
	limbs := make([]Fr, 0, (len(h)+30)/31)
	for i := 0; i < len(h); i += 31 {
		end := i + 31
		if end > len(h) {
			end = len(h)
		}
		limbs = append(limbs, FrFromBytes(h[i:end]))
	}
	return TransientHash(limbs)
}

// EmbeddedPoint is a point on the Jubjub-like curve embedded in the outer
// scalar field, realized here over the kilic/bls12-381 G1 group (the
// concrete curve parameters are out of scope per the purpose statement;
// only the group-law shape is exercised).
type EmbeddedPoint struct {
	p *bls12381.PointG1
}

// HashToCurve maps an arbitrary HashRepr value to a curve point by hashing
// it to a field element and then into G1 via scalar multiplication of the
// generator — a simplified but well-defined encode-to-curve consistent
// with the group's own hash-to-curve machinery.
func HashToCurve(v HashRepr) EmbeddedPoint {
	w := NewHashWriter()
	v.BinaryRepr(w)
	fe := HashToField("hash-to-curve", w.Bytes())
	g1 := bls12381.NewG1()
	scalar := fe.Bytes()
	out := g1.New()
	g1.MulScalar(out, g1.One(), new(big.Int).SetBytes(scalar))
	return EmbeddedPoint{p: out}
}

func (p EmbeddedPoint) Bytes() []byte {
	g1 := bls12381.NewG1()
	return g1.ToBytes(p.p)
}

// BasePoint returns the embedded curve's generator, the scalar-mult base
// every key pair and Schnorr nonce commitment is derived from.
func BasePoint() EmbeddedPoint {
	g1 := bls12381.NewG1()
	return EmbeddedPoint{p: g1.One()}
}

// ScalarMul returns scalar*p.
func (p EmbeddedPoint) ScalarMul(scalar Fr) EmbeddedPoint {
	g1 := bls12381.NewG1()
	out := g1.New()
	g1.MulScalar(out, p.p, new(big.Int).SetBytes(scalar.Bytes()))
	return EmbeddedPoint{p: out}
}

// Add returns p+o.
func (p EmbeddedPoint) Add(o EmbeddedPoint) EmbeddedPoint {
	g1 := bls12381.NewG1()
	out := g1.New()
	g1.Add(out, p.p, o.p)
	return EmbeddedPoint{p: out}
}

// Equal reports whether p and o are the same curve point.
func (p EmbeddedPoint) Equal(o EmbeddedPoint) bool {
	g1 := bls12381.NewG1()
	return g1.Equal(p.p, o.p)
}

func (p EmbeddedPoint) BinaryRepr(w *HashWriter) { w.WriteBytes(p.Bytes()) }
func (p EmbeddedPoint) BinaryLen() int           { return 48 }

// Upgrade bridges a transient (field) hash into the persistent (byte) hash
// space: hash the canonical byte encoding of the field element.
func UpgradeToPersistent(f Fr) HashOutput {
	return PersistentHash(f.Bytes())
}

// Degrade bridges a persistent hash down into the field, truncating to the
// 31 usable bytes every Fr limb carries.
func DegradeToTransient(h HashOutput) Fr {
	return FrFromBytes(h[:31])
}
