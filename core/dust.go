package core

import "math"

// DustDecayRate is the default per-second fraction (numerator over 1<<32)
// at which a generating NIGHT balance's accrued DUST allowance closes the
// gap to its cap - the default value for LedgerParameters.GenerationDecayRate.
const DustDecayRate uint64 = 1 << 20 // ~1/4096 per second

// DustGenerationState tracks one NIGHT-holding address's accrued DUST
// balance: the NIGHT balance backing generation, the ledger time it has
// been held continuously since (Since, the spec's "dtime"), the resulting
// accrued allowance, and the ledger time that allowance was last
// recomputed at.
type DustGenerationState struct {
	Owner        Address
	NightBalance uint64
	Since        uint64 // dtime: when NightBalance started being held
	Accrued      uint64
	LastUpdate   uint64 // unix seconds

	// spent is the cumulative amount drawn down by Spend since Since. Advance
	// recomputes the time-implied generated total from scratch every call,
	// so spent has to be tracked and subtracted separately - otherwise the
	// next Advance would recompute Accrued from the formula alone and
	// silently restore whatever Spend had just drawn down.
	spent uint64
}

// SetNightBalance changes the NIGHT balance backing DUST generation. Per
// the "held continuously since dtime" generation rule, a balance change
// restarts the holding clock: accrual resumes from zero against the new
// balance and its cap.
func (d *DustGenerationState) SetNightBalance(balance, now uint64) {
	d.NightBalance = balance
	d.Since = now
	d.LastUpdate = now
	d.Accrued = 0
	d.spent = 0
}

// Advance brings a generation state forward to now, recomputing the
// implied DUST balance as f(t-dtime; params) minus whatever has already
// been spent: f itself is a smooth, exponentially decaying approach toward
// the cap `night_dust_ratio * NightBalance` that never exceeds it and
// never decreases while NightBalance and Since are held fixed, so net of a
// fixed spent total Accrued inherits the same monotonicity. DustGracePeriod
// delays the onset of generation after a balance starts being held;
// GenerationDecayRate controls how quickly the remaining gap to the cap
// closes once generation begins.
func (d *DustGenerationState) Advance(now uint64, params LedgerParameters) error {
	if now < d.LastUpdate {
		return wrapErr(KindSemantic, "dust_time_travel", ErrInvalidArgs)
	}
	d.LastUpdate = now

	cap := dustCap(d.NightBalance, params.NightDustRatio)
	graceEnd := saturatingAdd(d.Since, params.DustGracePeriod)
	if cap == 0 || now < graceEnd {
		d.Accrued = 0
		return nil
	}

	elapsed := now - graceEnd
	rate := float64(params.GenerationDecayRate) / float64(uint64(1)<<32)
	remaining := math.Exp(-rate * float64(elapsed))
	generated := float64(cap) * (1 - remaining)
	switch {
	case generated <= float64(d.spent):
		d.Accrued = 0
	case generated >= float64(cap):
		d.Accrued = cap - d.spent
	default:
		d.Accrued = uint64(generated) - d.spent
	}
	return nil
}

// dustCap is night_dust_ratio * balance, where night_dust_ratio is a
// fixed-point fraction (numerator over 1<<32).
func dustCap(balance, nightDustRatio uint64) uint64 {
	return uint64(float64(balance) * (float64(nightDustRatio) / float64(uint64(1)<<32)))
}

// Spend deducts amount from the accrued DUST balance. Unlike Advance, this
// path uses checked subtraction: a spend that exceeds the available
// balance is a well-formedness violation in the originating transaction,
// not something to silently clamp.
func (d *DustGenerationState) Spend(amount uint64) error {
	if amount > d.Accrued {
		return wrapErr(KindWellFormedness, "insufficient_dust", ErrInsufficientFee)
	}
	d.Accrued -= amount
	d.spent += amount
	return nil
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}
