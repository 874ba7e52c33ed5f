package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeAddressRoundTrip(t *testing.T) {
	addr := AddressFromHash(PersistentHash([]byte("round-trip-address")))
	wire := SerializeAddress(addr)

	got, err := DeserializeAddress(wire)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestSerializeTokenTypeRoundTrip(t *testing.T) {
	tok := TokenType{Kind: TokenShielded, ID: PersistentHash([]byte("a-token"))}
	wire := SerializeTokenType(tok)

	got, err := DeserializeTokenType(wire)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestSerializeCoinInfoRoundTrip(t *testing.T) {
	c := CoinInfo{Nonce: PersistentHash([]byte("nonce")), Type: NightTokenType, Value: 42}
	wire := SerializeCoinInfo(c)

	got, err := DeserializeCoinInfo(wire)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDeserializeRejectsWrongTag(t *testing.T) {
	tok := TokenType{Kind: TokenShielded, ID: ZeroHash}
	wire := SerializeTokenType(tok)

	_, err := DeserializeCoinInfo(wire)
	require.Error(t, err)

	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindDecode, le.Kind)
}

func TestDeserializeRejectsTrailingBytes(t *testing.T) {
	addr := AddressFromHash(PersistentHash([]byte("trailing")))
	wire := append(SerializeAddress(addr), 0xFF)

	_, err := DeserializeAddress(wire)
	require.Error(t, err)
}

func TestDeserializeRejectsTruncatedInput(t *testing.T) {
	addr := AddressFromHash(PersistentHash([]byte("truncated")))
	wire := SerializeAddress(addr)

	_, err := DeserializeAddress(wire[:len(wire)-1])
	require.Error(t, err)
}
