package core

// ValueStrength distinguishes a VM stack value that was produced by
// honest execution (Strong) from one that was merely asserted by the
// caller and must be checked against committed state before it is trusted
// (Weak). ResultMode does not consult the strength; it is carried in
// VmValue and committed to by VmValue.Hash.
type ValueStrength uint8

const (
	Strong ValueStrength = iota
	Weak
)

// VmValue is a single onchain-VM stack slot: a StateValue paired with the
// strength it carries through the current call's transcript.
type VmValue struct {
	Strength ValueStrength
	State    StateValue
}

func StrongValue(v StateValue) VmValue { return VmValue{Strength: Strong, State: v} }
func WeakValue(v StateValue) VmValue   { return VmValue{Strength: Weak, State: v} }

func (v VmValue) IsStrong() bool { return v.Strength == Strong }

func (v VmValue) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteByte(byte(v.Strength))
	w.WriteHash(v.State.Hash())
	return PersistentHash(w.Bytes())
}
