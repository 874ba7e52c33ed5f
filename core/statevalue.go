package core

// CellBound is the maximum serialized size, in bytes, of a single Cell's
// AlignedValue payload. Enforced on every write that produces a Cell.
const CellBound = 4096

// MaxLogSize is the VM's compile-time contract-log bound. The source
// material flags this as a candidate for a future LedgerParameters field;
// until that revision lands it stays a constant here too.
const MaxLogSize = 8192

// StateValueKind tags the union StateValue carries.
type StateValueKind uint8

const (
	SVNull StateValueKind = iota
	SVCell
	SVMap
	SVArray
	SVBoundedMerkleTree
)

// StateValue is the VM-visible tagged union every contract-local state
// tree is built from. Exactly one of the payload fields is meaningful,
// selected by Kind. A Cell's AlignedValue must serialize to at most
// CellBound bytes; a Map carries its own SizeAnnotation so its size check
// never requires a full traversal (Array and BoundedMerkleTree carry none).
type StateValue struct {
	Kind StateValueKind

	Cell  AlignedValue
	Map   *MerklePatriciaTrie[SizeAnnotation]
	Array Array
	BMT   *BoundedMerkleTree
}

func NullState() StateValue { return StateValue{Kind: SVNull} }

func CellState(v AlignedValue) (StateValue, error) {
	if v.BinaryLen() > CellBound {
		return StateValue{}, wrapErr(KindResource, "cell_bound_exceeded", ErrCellBoundExceeded)
	}
	return StateValue{Kind: SVCell, Cell: v}, nil
}

func MapState(m *MerklePatriciaTrie[SizeAnnotation]) StateValue {
	return StateValue{Kind: SVMap, Map: m}
}

func ArrayState(a Array) StateValue { return StateValue{Kind: SVArray, Array: a} }

func BMTState(t *BoundedMerkleTree) StateValue { return StateValue{Kind: SVBoundedMerkleTree, BMT: t} }

// Hash is the stable digest of a StateValue node: the tag byte followed by
// the payload's own hash, so distinct kinds never collide even if their
// underlying bytes happen to coincide.
func (v StateValue) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteByte(byte(v.Kind))
	switch v.Kind {
	case SVNull:
	case SVCell:
		w.WriteHash(v.Cell.Hash())
	case SVMap:
		if v.Map != nil {
			w.WriteHash(v.Map.Hash())
		} else {
			w.WriteHash(ZeroHash)
		}
	case SVArray:
		w.WriteHash(v.Array.Hash())
	case SVBoundedMerkleTree:
		if v.BMT != nil {
			w.WriteHash(v.BMT.Root())
		} else {
			w.WriteHash(ZeroHash)
		}
	}
	return PersistentHash(w.Bytes())
}

func (v StateValue) BinaryRepr(w *HashWriter) { w.WriteHash(v.Hash()) }
func (v StateValue) BinaryLen() int           { return 32 }

// TokenType identifies a fungible asset: Shielded(token-address) or
// Unshielded(token-address). NIGHT and the network's native DUST are
// distinguished TokenType values recognized by the dust/unshielded engine.
type TokenTypeKind uint8

const (
	TokenShielded TokenTypeKind = iota
	TokenUnshielded
)

type TokenType struct {
	Kind TokenTypeKind
	ID   HashOutput
}

func (t TokenType) KeyBytes() []byte {
	w := NewHashWriter()
	w.WriteByte(byte(t.Kind))
	w.WriteHash(t.ID)
	return w.Bytes()
}

func (t TokenType) BinaryRepr(w *HashWriter) {
	w.WriteByte(byte(t.Kind))
	w.WriteHash(t.ID)
}
func (t TokenType) BinaryLen() int { return 33 }

func (t TokenType) Less(o TokenType) bool {
	if t.Kind != o.Kind {
		return t.Kind < o.Kind
	}
	return t.ID.Compare(o.ID) < 0
}

var NightTokenType = TokenType{Kind: TokenUnshielded, ID: ZeroHash}
var DustTokenType = TokenType{Kind: TokenUnshielded, ID: PersistentHash([]byte("dust"))}

// VerifierKey is an opaque handle to the ZK verifier key bound to one of a
// contract's declared entry points; the proving backend's internals are
// out of scope, so only the byte handle is modeled here.
type VerifierKey []byte

// MaintenanceAuthority gates a contract's parameter-changing operations
// (a threshold signature scheme over a fixed signer set, in the common
// case).
type MaintenanceAuthority struct {
	Signers   []Address
	Threshold int
}

// ContractState is the tuple (data, operations, balance, maintenance
// authority) identified by its content-derived ContractAddress.
type ContractState struct {
	Data         StateValue
	Operations   Map[stringKey, VerifierKey]
	Balance      Map[TokenType, uint64]
	Maintenance  MaintenanceAuthority
}

type stringKey string

func (s stringKey) KeyBytes() []byte { return []byte(s) }

// Hash is the content digest used to derive a freshly deployed contract's
// ContractAddress (see contracts.go's DeriveContractAddress, which also
// folds in the deployer and a nonce).
func (c ContractState) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteHash(c.Data.Hash())
	w.WriteHash(c.Operations.Hash(func(v VerifierKey) HashOutput { return PersistentHash(v) }))
	w.WriteHash(c.Balance.Hash(func(v uint64) HashOutput {
		hw := NewHashWriter()
		hw.WriteU64(v)
		return PersistentHash(hw.Bytes())
	}))
	return PersistentHash(w.Bytes())
}
