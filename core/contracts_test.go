package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deployEmptyArrayContract(t *testing.T, r *ContractRegistry, entryPoint string, program []Instruction, maint MaintenanceAuthority) ContractAddress {
	t.Helper()
	state := ContractState{
		Data:        ArrayState(NewArray()),
		Operations:  NewMap[stringKey, VerifierKey](),
		Balance:     NewMap[TokenType, uint64](),
		Maintenance: maint,
	}
	addr, err := r.Deploy(AddressZero, 0, state, map[string][]Instruction{entryPoint: program})
	require.NoError(t, err)
	return addr
}

func indexCell(t *testing.T, i byte) StateValue {
	t.Helper()
	sv, err := CellState(AlignedBytes([]byte{i}))
	require.NoError(t, err)
	return sv
}

func TestRegistryDeployRejectsNonZeroBalance(t *testing.T) {
	r := NewContractRegistry(NewMemoryKV())
	state := ContractState{
		Data:       NullState(),
		Operations: NewMap[stringKey, VerifierKey](),
		Balance:    NewMap[TokenType, uint64]().Insert(NightTokenType, 1),
	}
	_, err := r.Deploy(AddressZero, 0, state, nil)
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrMalformedContractDeploy)
}

func TestInvokeCommitsGuaranteedAndRevertsFailedFallible(t *testing.T) {
	r := NewContractRegistry(NewMemoryKV())
	one := indexCell(t, 0)
	program := []Instruction{
		{Op: OpPush, Operand: indexCell(t, 0)},
		{Op: OpPush, Operand: one},
		{Op: OpIns}, // guaranteed: array becomes one element long
		{Op: OpCheckpoint},
		{Op: OpPush, Operand: indexCell(t, 5)}, // fallible: index out of bounds
		{Op: OpPush, Operand: one},
		{Op: OpIns},
	}
	addr := deployEmptyArrayContract(t, r, "run", program, MaintenanceAuthority{})

	guaranteed, fallible, fallibleOK, err := r.Invoke(addr, "run", 1_000_000)
	require.NoError(t, err)
	assert.False(t, fallibleOK)
	assert.Empty(t, fallible.Effects)
	assert.NotEmpty(t, guaranteed.Effects)

	state, ok := r.Get(addr)
	require.True(t, ok)
	require.Equal(t, SVArray, state.Data.Kind)
	assert.Equal(t, 1, state.Data.Array.Len())
}

func TestInvokeCommitsBothPhasesOnSuccess(t *testing.T) {
	r := NewContractRegistry(NewMemoryKV())
	one := indexCell(t, 0)
	program := []Instruction{
		{Op: OpPush, Operand: indexCell(t, 0)},
		{Op: OpPush, Operand: one},
		{Op: OpIns},
		{Op: OpCheckpoint},
		{Op: OpPush, Operand: indexCell(t, 1)},
		{Op: OpPush, Operand: one},
		{Op: OpIns},
	}
	addr := deployEmptyArrayContract(t, r, "run", program, MaintenanceAuthority{})

	_, fallible, fallibleOK, err := r.Invoke(addr, "run", 1_000_000)
	require.NoError(t, err)
	assert.True(t, fallibleOK)
	assert.NotEmpty(t, fallible.Effects)

	state, ok := r.Get(addr)
	require.True(t, ok)
	assert.Equal(t, 2, state.Data.Array.Len())
}

func TestPartitionTranscriptsSplitsProgramAndEffectsAtCheckpoint(t *testing.T) {
	guarded := Instruction{Op: OpPush, Operand: indexCell(t, 0)}
	tail := Instruction{Op: OpPop}
	full := Transcript{
		Program: []Instruction{guarded, {Op: OpCheckpoint}, tail},
		Effects: []Effect{{Kind: EffectWrite}, {Kind: EffectCheckpoint}, {Kind: EffectRead}},
		Version: 1,
	}

	guaranteed, fallible := partitionTranscripts(full)

	assert.Equal(t, []Instruction{guarded}, guaranteed.Program)
	assert.Equal(t, []Instruction{tail}, fallible.Program)
	assert.Equal(t, []Effect{{Kind: EffectWrite}, {Kind: EffectCheckpoint}}, guaranteed.Effects)
	assert.Equal(t, []Effect{{Kind: EffectRead}}, fallible.Effects)

	recombined := append(append([]Instruction{}, guaranteed.Program...), fallible.Program...)
	assert.Equal(t, []Instruction{guarded, tail}, recombined, "concatenating both halves reconstructs the program minus its checkpoint marker")
}

func TestUpdateEntryPointsRequiresMaintenanceAuthorization(t *testing.T) {
	r := NewContractRegistry(NewMemoryKV())
	signer := AddressFromHash(PersistentHash([]byte("maintainer")))
	addr := deployEmptyArrayContract(t, r, "run", nil, MaintenanceAuthority{Signers: []Address{signer}, Threshold: 1})

	err := r.UpdateEntryPoints(addr, signer, map[string][]Instruction{"run2": nil})
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrMaintenanceUnauthorized)

	require.NoError(t, r.GrantMaintenance(signer))
	require.NoError(t, r.UpdateEntryPoints(addr, signer, map[string][]Instruction{"run2": nil}))

	outsider := AddressFromHash(PersistentHash([]byte("outsider")))
	require.NoError(t, r.GrantMaintenance(outsider))
	err = r.UpdateEntryPoints(addr, outsider, map[string][]Instruction{"run3": nil})
	require.Error(t, err)
}
