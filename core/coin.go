package core

import (
	"github.com/sirupsen/logrus"
)

// CoinInfo is a shielded coin's private contents: the asset type, its
// value, and the nonce binding it to one specific commitment. Only the
// commitment (Info.Commit) and, on spend, the nullifier are ever recorded
// on ledger - Info itself lives only in the owner's local wallet state.
type CoinInfo struct {
	Nonce HashOutput
	Type  TokenType
	Value uint64
}

func (c CoinInfo) BinaryRepr(w *HashWriter) {
	w.WriteHash(c.Nonce)
	c.Type.BinaryRepr(w)
	w.WriteU64(c.Value)
}
func (c CoinInfo) BinaryLen() int { return 32 + c.Type.BinaryLen() + 8 }

// Commitment binds a CoinInfo to a specific owner's public key under a
// blinding opening, so the commitment published on ledger reveals neither
// the coin's value nor its owner.
type Commitment HashOutput

func (c CoinInfo) Commit(ownerPubKey HashOutput, opening HashOutput) Commitment {
	w := NewHashWriter()
	w.WriteBytes([]byte("zswap-coin-commit"))
	c.BinaryRepr(w)
	w.WriteHash(ownerPubKey)
	w.WriteHash(opening)
	return Commitment(PersistentHash(w.Bytes()))
}

// Nullifier is the value published to spend a coin: derived from the coin
// and the spender's secret key so it is unlinkable to the commitment
// without that key, yet deterministic so double-spends collide in the
// ledger's nullifier set.
type Nullifier HashOutput

func (c CoinInfo) Nullify(spendSecretKey HashOutput) Nullifier {
	w := NewHashWriter()
	w.WriteBytes([]byte("zswap-coin-nullifier"))
	c.BinaryRepr(w)
	w.WriteHash(spendSecretKey)
	return Nullifier(PersistentHash(w.Bytes()))
}

// CoinManager tracks the minted-supply invariant for one TokenType across
// the ledger's shielded and unshielded pools: every shielded mint and
// unshield/shield conversion passes through it so total issuance never
// silently drifts between the two pools.
type CoinManager struct {
	tokenType   TokenType
	maxSupply   uint64
	totalMinted uint64
}

func NewCoinManager(t TokenType, maxSupply uint64) *CoinManager {
	return &CoinManager{tokenType: t, maxSupply: maxSupply}
}

func (m *CoinManager) TotalMinted() uint64 { return m.totalMinted }

// Mint records newly issued supply for this token type, used at genesis
// and for any subsequent governed issuance schedule.
func (m *CoinManager) Mint(amount uint64) error {
	if amount == 0 {
		return wrapErr(KindSemantic, "mint_amount_zero", ErrInvalidArgs)
	}
	if m.totalMinted+amount < m.totalMinted || m.totalMinted+amount > m.maxSupply {
		return wrapErr(KindResource, "mint_exceeds_cap", ErrArithmeticOverflow)
	}
	m.totalMinted += amount
	logrus.WithFields(logrus.Fields{
		"token": m.tokenType.ID.Short(), "amount": amount, "total": m.totalMinted,
	}).Info("coin: minted")
	return nil
}

func (m *CoinManager) Burn(amount uint64) error {
	if amount > m.totalMinted {
		return wrapErr(KindSemantic, "burn_exceeds_supply", ErrInvalidArgs)
	}
	m.totalMinted -= amount
	logrus.WithFields(logrus.Fields{
		"token": m.tokenType.ID.Short(), "amount": amount, "total": m.totalMinted,
	}).Info("coin: burned")
	return nil
}
