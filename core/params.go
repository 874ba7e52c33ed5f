package core

// LedgerParameters bundles every tunable the ledger consults while applying
// transactions. A system transaction may update these in place; the spec
// flags MAX_LOG_SIZE as a candidate for eventual inclusion here too, but
// until that revision lands it stays the compile-time MaxLogSize constant
// in statevalue.go.
type LedgerParameters struct {
	// NightDustRatio is the DUST-per-NIGHT generation ratio, numerator over
	// 1<<32, feeding the decaying generation rate in dust.go.
	NightDustRatio uint64
	// GenerationDecayRate is the per-second fraction (numerator over 1<<32)
	// at which DustGenerationState's cap-approach function closes the gap
	// between the accrued balance and its cap.
	GenerationDecayRate uint64
	// DustGracePeriod is the number of seconds a freshly created NIGHT UTXO
	// generates no DUST, before decay-approach kicks in.
	DustGracePeriod uint64
	// MinFeePerUnitGas is the minimum DUST fee an Intent's fee payment proof
	// must cover per unit of gas its transcripts consume.
	MinFeePerUnitGas uint64
	// MaxIntentTTL bounds how far in the future an Intent's dust_validity_end
	// may be set, relative to the block time it's applied at.
	MaxIntentTTL uint64
}

// DefaultLedgerParameters returns the network's genesis parameter set.
func DefaultLedgerParameters() LedgerParameters {
	return LedgerParameters{
		NightDustRatio:      1 << 32,
		GenerationDecayRate: DustDecayRate,
		DustGracePeriod:     300,
		MinFeePerUnitGas:    1,
		MaxIntentTTL:        86400 * 7,
	}
}
