package core

import "fmt"

// GasCalculator is implemented by anything that can price a piece of
// bytecode or a named opcode ahead of execution.
type GasCalculator interface {
	Estimate(payload []byte) (uint64, error)
	Calculate(name string, amt uint64) uint64
}

// FlatGasCalculator prices every call at a constant per-unit rate,
// independent of opcode mix. Useful for benchmarking harnesses that want a
// predictable cost curve rather than the real gas table.
type FlatGasCalculator struct{ Price uint64 }

func NewFlatGasCalculator(p uint64) *FlatGasCalculator { return &FlatGasCalculator{Price: p} }

func (f *FlatGasCalculator) Estimate(_ []byte) (uint64, error)     { return 0, nil }
func (f *FlatGasCalculator) Calculate(_ string, amt uint64) uint64 { return f.Price * amt }

// DynamicGasCalculator implements GasCalculator using the live opcode gas
// table. It estimates gas consumption by decoding 3-byte opcodes from a
// payload; each opcode's base cost comes from GasCost.
type DynamicGasCalculator struct{}

func NewDynamicGasCalculator() *DynamicGasCalculator { return &DynamicGasCalculator{} }

// Estimate walks the payload as a sequence of 3-byte opcodes and sums
// GasCost across them. Returns an error if the length isn't a multiple of
// three or an opcode fails to decode.
func (d *DynamicGasCalculator) Estimate(payload []byte) (uint64, error) {
	if len(payload)%3 != 0 {
		return 0, fmt.Errorf("invalid payload length %d", len(payload))
	}
	var total uint64
	for i := 0; i < len(payload); i += 3 {
		op, err := ParseOpcode(payload[i : i+3])
		if err != nil {
			return 0, err
		}
		total += GasCost(op)
	}
	return total, nil
}

// Calculate returns the gas for running the named opcode amt times.
// Unknown names fall back to DefaultGasCost.
func (d *DynamicGasCalculator) Calculate(name string, amt uint64) uint64 {
	for _, entry := range Catalogue() {
		if entry.Name == name {
			return GasCost(entry.Op) * amt
		}
	}
	return DefaultGasCost * amt
}
