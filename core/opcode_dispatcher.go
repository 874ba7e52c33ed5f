// SPDX-License-Identifier: BUSL-1.1
//
// Opcode dispatcher
// -----------------
//
//   - Every instruction recognised by the onchain runtime VM is assigned a
//     unique 24-bit opcode (see vm_opcodes.go): 0xCCNNNN -> CC = category,
//     NNNN = ordinal.
//
//   - The dispatcher maps opcodes to concrete handlers and charges
//     GasCost() before the handler runs.
//
//   - Collisions are fatal at start-up (Register panics); an opcode with no
//     registered handler fails at Dispatch with an error.
package core

import (
	"fmt"
	"log"
	"sync"
)

// Context is provided by the VM; it gives opcode handlers controlled access
// to message meta-data, state tree, gas meter, and transcript.
type Context interface {
	Call(string) error // unified façade into the executing VM step
	Gas(uint64) error  // deducts gas or returns an error if exhausted
}

// OpcodeFunc is the concrete implementation invoked by the VM.
type OpcodeFunc func(ctx Context) error

var (
	opcodeTable = make(map[Opcode]OpcodeFunc, 32)
	mu          sync.RWMutex
)

// Register binds an opcode to its function handler. It panics on
// duplicates - this should never happen in a CI-tested build.
func Register(op Opcode, fn OpcodeFunc) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := opcodeTable[op]; exists {
		log.Panicf("opcodes: collision on %s already registered", op)
	}
	opcodeTable[op] = fn
}

// Dispatch is called by the VM executor for every instruction.
func Dispatch(ctx Context, op Opcode) error {
	mu.RLock()
	fn, ok := opcodeTable[op]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown opcode %s", op)
	}
	if err := ctx.Gas(GasCost(op)); err != nil {
		return err
	}
	return fn(ctx)
}

// wrap returns a closure that delegates the call to Context.Call(<name>),
// used for instructions whose semantics live entirely in the VM step
// function and only need dispatch-table wiring here.
func wrap(name string) OpcodeFunc {
	return func(ctx Context) error { return ctx.Call(name) }
}

// init wires the catalogue's opcodes into the live dispatch table.
func init() {
	for _, entry := range Catalogue() {
		Register(entry.Op, wrap(entry.Name))
	}
}

// DebugDump returns the full opcode -> name mapping in "<name>=<hex>" form,
// sorted lexicographically by name.
func DebugDump() []string {
	cat := Catalogue()
	out := make([]string, 0, len(cat))
	for _, entry := range cat {
		out = append(out, fmt.Sprintf("%s=%s", entry.Name, entry.Op.Hex()))
	}
	return out
}

// ToBytecode resolves a mnemonic to its raw 3-byte opcode encoding.
func ToBytecode(name string) ([]byte, error) {
	for _, entry := range Catalogue() {
		if entry.Name == name {
			return entry.Op.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("unknown opcode mnemonic %q", name)
}
