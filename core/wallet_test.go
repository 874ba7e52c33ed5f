package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletSignVerifyRoundTrip(t *testing.T) {
	wallet, _, err := NewRandomWallet(128)
	require.NoError(t, err)

	key, err := wallet.PrivateKey(0, 0)
	require.NoError(t, err)

	msg := []byte("a message this key should sign")
	sig, err := key.Sign(msg)
	require.NoError(t, err)

	assert.True(t, Verify(key.Public, msg, sig))
}

func TestWalletVerifyRejectsTamperedMessage(t *testing.T) {
	wallet, _, err := NewRandomWallet(128)
	require.NoError(t, err)

	key, err := wallet.PrivateKey(0, 0)
	require.NoError(t, err)

	sig, err := key.Sign([]byte("original message"))
	require.NoError(t, err)

	assert.False(t, Verify(key.Public, []byte("tampered message"), sig))
}

func TestWalletVerifyRejectsWrongKey(t *testing.T) {
	wallet, _, err := NewRandomWallet(128)
	require.NoError(t, err)

	keyA, err := wallet.PrivateKey(0, 0)
	require.NoError(t, err)
	keyB, err := wallet.PrivateKey(0, 1)
	require.NoError(t, err)

	msg := []byte("shared message")
	sig, err := keyA.Sign(msg)
	require.NoError(t, err)

	assert.False(t, Verify(keyB.Public, msg, sig))
}

func TestWalletDerivationIsDeterministic(t *testing.T) {
	wallet, _, err := NewRandomWallet(128)
	require.NoError(t, err)

	a1, err := wallet.NewAddress(0, 0)
	require.NoError(t, err)
	a2, err := wallet.NewAddress(0, 0)
	require.NoError(t, err)
	b, err := wallet.NewAddress(0, 1)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestWalletFromMnemonicReproducesKeys(t *testing.T) {
	wallet, mnemonic, err := NewRandomWallet(128)
	require.NoError(t, err)
	addr, err := wallet.NewAddress(0, 0)
	require.NoError(t, err)

	reloaded, err := WalletFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	reloadedAddr, err := reloaded.NewAddress(0, 0)
	require.NoError(t, err)

	assert.Equal(t, addr, reloadedAddr)
}
