package core

// Wallet key management for the shielded ledger.
//
// Features
// --------
//   - Schnorr key-pairs over the embedded curve (EmbeddedPoint), the same
//     group coin commitments and nullifiers are derived over, so a wallet's
//     signing key and its spending key share one curve.
//   - Hierarchical deterministic derivation (SLIP-0010-style hardened-only
//     HMAC-SHA512 chain, the scheme ed25519 wallets use since the curve has
//     no unhardened child derivation either).
//   - BIP-39 mnemonic utilities (12/24-word recovery phrases).
//   - Address derivation: persistent hash of the public key, matching
//     address.go's content-derived UserAddress.
//
// Import hygiene: wallet depends only on field.go + hash.go + address.go;
// it does not import the ledger, VM, or contract registry.

import (
	crand "crypto/rand"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
)

const (
	hardenedOffset uint32 = 0x80000000
	masterHMACKey         = "shielded wallet seed"
)

func SetWalletLogger(l *log.Logger) { globalLogger = l }

var globalLogger = log.New()

// HDWallet keeps master key material in-memory only. Never persist the
// private fields directly - use an encrypted keystore instead.
//
// Derivation model: SLIP-0010-style hardened children only, path
// m / account' / index'.
type HDWallet struct {
	seed        []byte
	masterKey   []byte
	masterChain []byte
	logger      *log.Logger
}

// Seed returns a copy of the wallet's master seed. Callers should wipe the
// returned slice after use.
func (w *HDWallet) Seed() []byte {
	out := make([]byte, len(w.seed))
	copy(out, w.seed)
	return out
}

// NewRandomWallet generates entropyBits (128/256) of RNG entropy and
// returns a wallet plus its BIP-39 recovery phrase. The caller must wipe
// or securely store the mnemonic.
func NewRandomWallet(entropyBits int) (*HDWallet, string, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return nil, "", fmt.Errorf("wallet: unsupported entropy size %d", entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, "", fmt.Errorf("wallet: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("wallet: mnemonic: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")
	w, err := NewHDWalletFromSeed(seed, globalLogger)
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

// WalletFromMnemonic imports an existing BIP-39 phrase.
func WalletFromMnemonic(mnemonic, passphrase string) (*HDWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("wallet: invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return NewHDWalletFromSeed(seed, globalLogger)
}

func NewHDWalletFromSeed(seed []byte, lg *log.Logger) (*HDWallet, error) {
	if len(seed) < 16 {
		return nil, errors.New("wallet: seed too short")
	}
	I := hmacSHA512([]byte(masterHMACKey), seed)
	w := &HDWallet{seed: seed, masterKey: I[:32], masterChain: I[32:], logger: lg}
	lg.WithField("seed_bytes", len(seed)).Info("wallet: master key initialized")
	return w, nil
}

// derivePrivate returns the key material and chain code for a hardened
// child index. Only hardened derivation is supported since the embedded
// curve, like ed25519, has no safe unhardened child scheme.
func derivePrivate(parentKey, parentChain []byte, index uint32) (key, chain []byte, err error) {
	if index < hardenedOffset {
		return nil, nil, errors.New("wallet: non-hardened derivation unsupported")
	}
	data := make([]byte, 1+32+4)
	copy(data[1:], parentKey)
	binary.BigEndian.PutUint32(data[33:], index)
	I := hmacSHA512(parentChain, data)
	return I[:32], I[32:], nil
}

func hmacSHA512(key, data []byte) []byte {
	h := hmac.New(sha512.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// SigningKey is the Schnorr key pair derived at one (account, index) path:
// a scalar secret and its curve public point.
type SigningKey struct {
	Secret Fr
	Public EmbeddedPoint
}

// PrivateKey derives the Schnorr signing key for path m / account' / index'.
func (w *HDWallet) PrivateKey(account, index uint32) (SigningKey, error) {
	account |= hardenedOffset
	index |= hardenedOffset
	k1, c1, err := derivePrivate(w.masterKey, w.masterChain, account)
	if err != nil {
		return SigningKey{}, err
	}
	k2, _, err := derivePrivate(k1, c1, index)
	if err != nil {
		return SigningKey{}, err
	}
	secret := FrFromBytes(k2[:31])
	return SigningKey{Secret: secret, Public: BasePoint().ScalarMul(secret)}, nil
}

// Address derives the content-derived UserAddress for a signing key's
// public point: the persistent hash of its compressed encoding.
func (k SigningKey) Address() UserAddress {
	return AddressFromHash(PersistentHash(k.Public.Bytes()))
}

// NewAddress derives the (account, index) signing key and returns its
// address.
func (w *HDWallet) NewAddress(account, index uint32) (UserAddress, error) {
	k, err := w.PrivateKey(account, index)
	if err != nil {
		return UserAddress{}, err
	}
	return k.Address(), nil
}

// Signature is a Schnorr signature (R, s) over the embedded curve.
type Signature struct {
	R EmbeddedPoint
	S Fr
}

// Sign produces a Schnorr signature over msg: R = k*G, e =
// HashToField(pub||R||msg), s = k + e*secret, for a fresh random nonce k.
func (k SigningKey) Sign(msg []byte) (Signature, error) {
	nonceBytes := make([]byte, 32)
	if _, err := crand.Read(nonceBytes); err != nil {
		return Signature{}, err
	}
	nonce := FrFromBytes(nonceBytes[:31])
	r := BasePoint().ScalarMul(nonce)
	e := schnorrChallenge(k.Public, r, msg)
	s := nonce.Add(e.Mul(k.Secret))
	return Signature{R: r, S: s}, nil
}

// Verify checks sig against pub and msg: s*G =?= R + e*pub.
func Verify(pub EmbeddedPoint, msg []byte, sig Signature) bool {
	e := schnorrChallenge(pub, sig.R, msg)
	lhs := BasePoint().ScalarMul(sig.S)
	rhs := sig.R.Add(pub.ScalarMul(e))
	return lhs.Equal(rhs)
}

func schnorrChallenge(pub, r EmbeddedPoint, msg []byte) Fr {
	w := NewHashWriter()
	w.WriteBytes([]byte("schnorr-challenge"))
	w.WriteBytes(pub.Bytes())
	w.WriteBytes(r.Bytes())
	w.WriteLenPrefixed(msg)
	return HashToField("schnorr", w.Bytes())
}

// RandomMnemonicEntropy produces cryptographically secure random entropy
// of the given number of bits.
func RandomMnemonicEntropy(bits int) ([]byte, error) {
	if bits%32 != 0 {
		return nil, errors.New("wallet: entropy bits must be a multiple of 32")
	}
	b := make([]byte, bits/8)
	if _, err := crand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Wipe zeroes a byte slice in place (best-effort - the GC may still have
// copied it elsewhere).
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
