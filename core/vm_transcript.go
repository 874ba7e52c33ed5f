package core

// Transcript is the durable record of one contract call: the program that
// ran, the effects it produced (in order), and the gas it consumed.
// ContractRegistry.Invoke returns one Transcript for a call's guaranteed
// segment and one for its fallible segment; partitionTranscripts below is how a single
// call's effect log gets split at a kernel_checkpoint boundary into the
// guaranteed prefix and the fallible tail the ledger may revert
// independently (see the fallible-tail DUST semantics decision in the
// design notes).
type Transcript struct {
	Program []Instruction
	Effects []Effect
	Gas     uint64
	Version uint16
}

func (t Transcript) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteU32(uint32(len(t.Program)))
	for _, ins := range t.Program {
		w.WriteBytes(ins.Op.Bytes())
	}
	w.WriteU32(uint32(len(t.Effects)))
	for _, e := range t.Effects {
		w.WriteHash(e.Hash())
	}
	w.WriteU64(t.Gas)
	w.WriteU16(t.Version)
	return PersistentHash(w.Bytes())
}

// splitProgramAtCheckpoint splits program at its first OpCheckpoint
// instruction, dropping that instruction from both halves: before+after
// reconstructs program minus its kernel_checkpoint marker. found is false
// when program has no checkpoint, in which case before is the whole
// program and after is empty.
func splitProgramAtCheckpoint(program []Instruction) (before, after []Instruction, found bool) {
	for i, ins := range program {
		if ins.Op == OpCheckpoint {
			return program[:i], program[i+1:], true
		}
	}
	return program, nil, false
}

// partitionTranscripts splits one already-gathered full call transcript
// into a guaranteed prefix (everything up to and including the first
// kernel_checkpoint effect) and a fallible tail (everything after). A
// program with no checkpoint is entirely guaranteed; its fallible tail is
// empty. This is the replay-side counterpart to ContractRegistry.Invoke,
// which executes the two phases as separate Machine.Run calls directly
// rather than running once and splitting after the fact; a verifier
// re-checking a transcript it received whole (rather than producing one
// live) reaches for this instead.
func partitionTranscripts(full Transcript) (guaranteed, fallible Transcript) {
	idx := len(full.Effects)
	for i, e := range full.Effects {
		if e.Kind == EffectCheckpoint {
			idx = i + 1
			break
		}
	}
	progBefore, progAfter, _ := splitProgramAtCheckpoint(full.Program)

	guaranteed = Transcript{Program: append([]Instruction{}, progBefore...), Effects: append([]Effect{}, full.Effects[:idx]...), Version: full.Version}
	fallible = Transcript{Program: append([]Instruction{}, progAfter...), Effects: append([]Effect{}, full.Effects[idx:]...), Version: full.Version}
	return
}
