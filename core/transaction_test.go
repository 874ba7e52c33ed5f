package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractCallWith(addr ContractAddress, in, out uint64, token TokenType, recipient Address) ContractCall {
	return ContractCall{
		Address:           addr,
		EntryPoint:        "run",
		UnshieldedInputs:  NewMap[TokenType, uint64]().Insert(token, in),
		UnshieldedOutputs: NewMap[TokenType, uint64]().Insert(token, out),
		ClaimedSpends: []ClaimedUnshieldedSpend{
			{Type: token, Recipient: recipient, Value: out},
		},
	}
}

func TestCheckContractAccountingAcceptsOfferBackedInputsAndOutputs(t *testing.T) {
	contract := AddressFromHash(PersistentHash([]byte("contract-a")))
	recipient := AddressFromHash(PersistentHash([]byte("recipient")))

	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Offer: UnshieldedOfferTx{
				Outputs: []UnshieldedUtxo{
					{Owner: contract, Type: NightTokenType, Value: 10},
					{Owner: recipient, Type: NightTokenType, Value: 10},
				},
			},
			Calls: []ContractCall{contractCallWith(contract, 10, 10, NightTokenType, recipient)},
		}},
	}

	require.NoError(t, tx.checkContractAccounting())
}

func TestCheckContractAccountingRejectsUnbackedInput(t *testing.T) {
	contract := AddressFromHash(PersistentHash([]byte("contract-a")))
	recipient := AddressFromHash(PersistentHash([]byte("recipient")))

	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Calls: []ContractCall{contractCallWith(contract, 10, 0, NightTokenType, recipient)},
		}},
	}

	err := tx.checkContractAccounting()
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrUnbalancedOffer)
}

func TestCheckContractAccountingRejectsUnclaimedOutput(t *testing.T) {
	contract := AddressFromHash(PersistentHash([]byte("contract-a")))

	call := ContractCall{
		Address:           contract,
		EntryPoint:        "run",
		UnshieldedOutputs: NewMap[TokenType, uint64]().Insert(NightTokenType, 5),
	}
	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Offer: UnshieldedOfferTx{Outputs: []UnshieldedUtxo{{Owner: contract, Type: NightTokenType, Value: 0}}},
			Calls: []ContractCall{call},
		}},
	}

	err := tx.checkContractAccounting()
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, le, ErrUnbalancedOffer)
}

func TestCheckContractAccountingAcceptsContractToContractTransfer(t *testing.T) {
	sender := AddressFromHash(PersistentHash([]byte("contract-sender")))
	receiver := AddressFromHash(PersistentHash([]byte("contract-receiver")))

	senderCall := ContractCall{
		Address:           sender,
		EntryPoint:        "run",
		UnshieldedOutputs: NewMap[TokenType, uint64]().Insert(NightTokenType, 7),
		ClaimedSpends:     []ClaimedUnshieldedSpend{{Type: NightTokenType, Recipient: receiver, Value: 7}},
	}
	receiverCall := ContractCall{
		Address:          receiver,
		EntryPoint:       "run",
		UnshieldedInputs: NewMap[TokenType, uint64]().Insert(NightTokenType, 7),
	}

	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Calls: []ContractCall{senderCall, receiverCall},
		}},
	}

	require.NoError(t, tx.checkContractAccounting())
}

func TestBalancedNetsUnshieldedSpendValues(t *testing.T) {
	ledger := newTestLedger(t)
	owner := AddressFromHash(PersistentHash([]byte("owner")))
	ref := UnshieldedUtxoRef{TxHash: PersistentHash([]byte("source-tx")), Index: 0}
	ledger.Unshielded.Insert(ref, UnshieldedUtxo{Owner: owner, Type: NightTokenType, Value: 100, Created: ref.TxHash})

	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Offer: UnshieldedOfferTx{
				Spends:  []UnshieldedUtxoRef{ref},
				Outputs: []UnshieldedUtxo{{Owner: AddressFromHash(PersistentHash([]byte("dest"))), Type: NightTokenType, Value: 100}},
			},
		}},
	}

	assert.True(t, tx.balanced(ledger))
}

func TestBalancedRejectsUnaccountedSpendValue(t *testing.T) {
	ledger := newTestLedger(t)
	owner := AddressFromHash(PersistentHash([]byte("owner")))
	ref := UnshieldedUtxoRef{TxHash: PersistentHash([]byte("source-tx")), Index: 0}
	ledger.Unshielded.Insert(ref, UnshieldedUtxo{Owner: owner, Type: NightTokenType, Value: 100, Created: ref.TxHash})

	tx := Transaction{
		Kind: TxUser,
		Intents: []Intent{{
			Offer: UnshieldedOfferTx{
				Spends:  []UnshieldedUtxoRef{ref},
				Outputs: []UnshieldedUtxo{{Owner: AddressFromHash(PersistentHash([]byte("dest"))), Type: NightTokenType, Value: 40}},
			},
		}},
	}

	assert.False(t, tx.balanced(ledger), "60 units of unaccounted spend value should leave a nonzero net")
}
