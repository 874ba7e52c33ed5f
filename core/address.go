package core

import "encoding/hex"

// Address is a content-derived 256-bit identifier: a UserAddress is the
// persistent hash of a spending public key; a ContractAddress is the
// persistent hash of a contract's deploy-time content (code commitment,
// initial state, and deployer nonce). Both share one representation so
// UTXO ownership and contract addressing compose uniformly wherever the
// ledger needs "some address" (UnshieldedOffer owners, Recipient sum
// types, ContractState lookups).
type Address HashOutput

type UserAddress = Address
type ContractAddress = Address

var AddressZero Address

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) Short() string {
	full := hex.EncodeToString(a[:])
	return full[:6] + ".." + full[len(full)-6:]
}

func (a Address) KeyBytes() []byte { return a[:] }

func (a Address) BinaryRepr(w *HashWriter) { w.WriteBytes(a[:]) }
func (a Address) BinaryLen() int           { return 32 }

func (a Address) IsZero() bool { return a == AddressZero }

// AddressFromHash lifts a persistent hash directly into an Address — used
// by ContractAddress derivation (DeriveContractAddress) and by tests that
// construct addresses from known digests.
func AddressFromHash(h HashOutput) Address { return Address(h) }
