// Gas schedule for the onchain runtime VM.
//
// This file contains the canonical gas-pricing table for every opcode
// recognised by the ledger's stack machine (see vm_opcodes.go). The
// numbers reflect the relative CPU, memory, and storage cost of each
// operation and leave head-room for per-argument dynamic surcharges
// applied by the gas meter at execution time (RunningCost, see
// vm_cost.go).
//
// Unknown / un-priced opcodes fall back to DefaultGasCost, which is set
// deliberately high so a missing entry is loud rather than silently cheap.
// Reads from the table are lock-free and safe for concurrent use.
package core

import "log"

const DefaultGasCost uint64 = 100_000

var gasTable = map[Opcode]uint64{
	OpPush:           2,
	OpPop:            2,
	OpDup:            3,
	OpSwap:           3,
	OpNoop:           1,
	OpIdx:            20,
	OpIns:            50,
	OpRem:            30,
	OpMember:         15,
	OpRead:           10,
	OpLog:            25,
	OpPopeq:          5,
	OpAdd:            5,
	OpSub:            5,
	OpMul:            8,
	OpDiv:            8,
	OpKernelSelf:     5,
	OpKernelClaimZswapCoinSpend:  120,
	OpKernelClaimZswapCoinRecv:   120,
	OpKernelClaimNightDustSpend:  120,
	OpNonceEvolve:    40,
	OpMtInsert:       150,
	OpMtRoot:         60,
	OpCheckpoint:     1,
}

// GasCost returns the base gas cost for a single opcode; dynamic portions
// (per-byte cell fees and a per-log fee) are layered on by the CostModel in
// vm_cost.go.
func GasCost(op Opcode) uint64 {
	if cost, ok := gasTable[op]; ok {
		return cost
	}
	log.Printf("gas_table: missing cost for opcode %s - charging default", op)
	return DefaultGasCost
}
