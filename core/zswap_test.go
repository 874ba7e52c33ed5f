package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZswapPoolRejectsDoubleSpend(t *testing.T) {
	pool := NewZswapPool()
	null := Nullifier(PersistentHash([]byte("a-coin")))
	spend := ZswapOffer{Inputs: []Nullifier{null}, Deltas: NewMap[TokenType, int64](), Root: pool.Root()}

	require.NoError(t, pool.Apply(spend))
	err := pool.Apply(spend)
	require.Error(t, err)

	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindWellFormedness, le.Kind)
}

func TestZswapPoolRejectsSpendWithUnknownRoot(t *testing.T) {
	pool := NewZswapPool()
	null := Nullifier(PersistentHash([]byte("a-coin")))
	spend := ZswapOffer{Inputs: []Nullifier{null}, Deltas: NewMap[TokenType, int64](), Root: PersistentHash([]byte("never-a-root"))}

	err := pool.Apply(spend)
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrUnknownMerkleRoot)
}

func TestZswapPoolRejectsUnnormalizedDeltas(t *testing.T) {
	pool := NewZswapPool()
	commit := Commitment(PersistentHash([]byte("a-commitment")))
	deltas := NewMap[TokenType, int64]().Insert(NightTokenType, 0)
	offer := ZswapOffer{Outputs: []Commitment{commit}, Deltas: deltas}

	err := pool.Apply(offer)
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrOfferNotNormalized)
}

func TestZswapPoolRejectsDuplicateCommitment(t *testing.T) {
	pool := NewZswapPool()
	commit := Commitment(PersistentHash([]byte("a-commitment")))
	offer := ZswapOffer{Outputs: []Commitment{commit}, Deltas: NewMap[TokenType, int64]()}

	require.NoError(t, pool.Apply(offer))
	err := pool.Apply(offer)
	require.Error(t, err)
}

func TestZswapPoolRootHistoryTracksRecentRoots(t *testing.T) {
	pool := NewZswapPool()
	genesisRoot := pool.Root()
	assert.True(t, pool.KnownRoot(genesisRoot))

	commit := Commitment(PersistentHash([]byte("advances-the-root")))
	offer := ZswapOffer{Outputs: []Commitment{commit}, Deltas: NewMap[TokenType, int64]()}
	require.NoError(t, pool.Apply(offer))

	newRoot := pool.Root()
	assert.NotEqual(t, genesisRoot, newRoot)
	assert.True(t, pool.KnownRoot(genesisRoot), "prior root should still be recognized within history depth")
	assert.True(t, pool.KnownRoot(newRoot))
}

func TestZswapPoolRejectsUnknownRoot(t *testing.T) {
	pool := NewZswapPool()
	bogus := PersistentHash([]byte("never-a-root"))
	assert.False(t, pool.KnownRoot(bogus))
}
