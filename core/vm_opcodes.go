package core

import "fmt"

// Opcode is a 24-bit deterministic instruction identifier for the onchain
// runtime VM's stack machine, mirroring the teacher dispatcher's
// <category><ordinal> convention so the opcode space stays collision-free
// and self-documenting as new instructions are added.
type Opcode uint32

const (
	OpPush Opcode = 0x010001 + iota
	OpPop
	OpDup
	OpSwap
	OpNoop
	OpIdx
	OpIns
	OpRem
	OpMember
	OpRead
	OpLog
	OpPopeq
)

const (
	OpAdd Opcode = 0x020001 + iota
	OpSub
	OpMul
	OpDiv
)

const (
	OpKernelSelf Opcode = 0x030001 + iota
	OpKernelClaimZswapCoinSpend
	OpKernelClaimZswapCoinRecv
	OpKernelClaimNightDustSpend
	OpNonceEvolve
)

const (
	OpMtInsert Opcode = 0x040001 + iota
	OpMtRoot
)

const (
	// OpCheckpoint marks kernel_checkpoint, the boundary partition_transcripts
	// splits a call's program at.
	OpCheckpoint Opcode = 0x050001
)

var opcodeNames = map[Opcode]string{
	OpPush: "push", OpPop: "pop", OpDup: "dup", OpSwap: "swap", OpNoop: "noop",
	OpIdx: "idx", OpIns: "ins", OpRem: "rem", OpMember: "member", OpRead: "read",
	OpLog: "log", OpPopeq: "popeq",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpKernelSelf: "kernel_self",
	OpKernelClaimZswapCoinSpend: "kernel_claim_zswap_coin_spend",
	OpKernelClaimZswapCoinRecv:  "kernel_claim_zswap_coin_receive",
	OpKernelClaimNightDustSpend: "kernel_claim_night_dust_spend",
	OpNonceEvolve:               "nonce_evolve",
	OpMtInsert:                  "mt_insert",
	OpMtRoot:                    "mt_root",
	OpCheckpoint:                "kernel_checkpoint",
}

func (op Opcode) Hex() string { return fmt.Sprintf("0x%06X", uint32(op)) }

func (op Opcode) Bytes() []byte {
	return []byte{byte(op >> 16), byte(op >> 8), byte(op)}
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return op.Hex()
}

func ParseOpcode(b []byte) (Opcode, error) {
	if len(b) != 3 {
		return 0, wrapErr(KindDecode, "opcode_length", ErrTruncated)
	}
	return Opcode(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])), nil
}

// OpcodeInfo pairs an Opcode with its canonical name, the shape returned by
// Catalogue() for collision-lint tooling and the VM runner's disassembler.
type OpcodeInfo struct {
	Op   Opcode
	Name string
}

// Catalogue returns every registered opcode in a stable (name-sorted)
// order. cmd/opcode-lint calls this at startup to assert there are no
// duplicate opcodes or names before any node trusts the binary.
func Catalogue() []OpcodeInfo {
	out := make([]OpcodeInfo, 0, len(opcodeNames))
	for op, name := range opcodeNames {
		out = append(out, OpcodeInfo{Op: op, Name: name})
	}
	for i := 0; i < len(out)-1; i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Name < out[i].Name {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
