package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *LedgerState {
	t.Helper()
	return NewLedgerState("test-network", NewMemoryKV(), DefaultLedgerParameters(), nil)
}

func TestApplySystemDistributeReserveMovesValue(t *testing.T) {
	ls := newTestLedger(t)
	ls.ReservePool = 1000
	ls.BlockRewardPool = 0

	tx := NewSystemTransaction(SystemTransaction{Kind: SysDistributeReserve, Nonce: 0, Amount: 250})
	result, err := ls.ApplySystem(tx)
	require.NoError(t, err)
	assert.Equal(t, ApplySuccess, result.Kind)
	assert.Equal(t, uint64(750), ls.ReservePool)
	assert.Equal(t, uint64(250), ls.BlockRewardPool)
}

func TestApplySystemRejectsReplayedNonce(t *testing.T) {
	ls := newTestLedger(t)
	ls.ReservePool = 1000

	tx := NewSystemTransaction(SystemTransaction{Kind: SysDistributeReserve, Nonce: 0, Amount: 100})
	_, err := ls.ApplySystem(tx)
	require.NoError(t, err)

	result, err := ls.ApplySystem(tx)
	require.NoError(t, err)
	assert.Equal(t, ApplyFailure, result.Kind)
}

func TestApplySystemRejectsOverdrawnReserve(t *testing.T) {
	ls := newTestLedger(t)
	ls.ReservePool = 10

	tx := NewSystemTransaction(SystemTransaction{Kind: SysDistributeReserve, Nonce: 0, Amount: 20})
	result, err := ls.ApplySystem(tx)
	require.NoError(t, err)
	assert.Equal(t, ApplyFailure, result.Kind)
	assert.Equal(t, uint64(10), ls.ReservePool)
}

func TestApplySystemUpdateParamsTakesEffect(t *testing.T) {
	ls := newTestLedger(t)
	newParams := DefaultLedgerParameters()
	newParams.MinFeePerUnitGas = 7

	tx := NewSystemTransaction(SystemTransaction{Kind: SysUpdateParams, Nonce: 0, NewParameters: newParams})
	result, err := ls.ApplySystem(tx)
	require.NoError(t, err)
	assert.Equal(t, ApplySuccess, result.Kind)
	assert.Equal(t, uint64(7), ls.Parameters.MinFeePerUnitGas)
	require.Len(t, ls.events, 1)
	assert.Equal(t, EventParamChange, ls.events[0].Kind)
}

func TestApplyClaimRewardsCreditsOwnerAndDecrementsPool(t *testing.T) {
	ls := newTestLedger(t)
	ls.BlockRewardPool = 500
	owner := AddressFromHash(PersistentHash([]byte("validator")))

	tx := NewClaimRewardsTransaction(100, owner, 0, EmbeddedPoint{}, Signature{}, ClaimBlockReward)
	result, err := ls.ApplyClaimRewards(tx)
	require.NoError(t, err)
	assert.Equal(t, ApplySuccess, result.Kind)
	assert.Equal(t, uint64(400), ls.BlockRewardPool)

	utxo, ok := ls.Unshielded.Get(UnshieldedUtxoRef{TxHash: tx.Hash(), Index: 0})
	require.True(t, ok)
	assert.Equal(t, owner, utxo.Owner)
	assert.Equal(t, uint64(100), utxo.Value)
}
