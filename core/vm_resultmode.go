package core

// ResultModeKind selects how the stack machine treats reads and effects
// while it executes a call.
type ResultModeKind uint8

const (
	// ResultModeGather runs a call against live contract state, recording
	// every effect (reads, writes, claims) into a fresh Transcript as it
	// goes - the mode a wallet or node uses when first constructing a
	// transaction.
	ResultModeGather ResultModeKind = iota
	// ResultModeVerify replays a previously gathered Transcript against
	// committed state, re-deriving each read and rejecting the call the
	// moment a replayed value disagrees with what the transcript claimed.
	ResultModeVerify
)

// Effect is one entry in a call's Transcript: either a state read/write or
// a kernel claim (coin spend/receive, dust spend, nonce evolution).
type EffectKind uint8

const (
	EffectRead EffectKind = iota
	EffectWrite
	EffectClaimCoinSpend
	EffectClaimCoinReceive
	EffectClaimDustSpend
	EffectNonceEvolve
	EffectMerkleInsert
	EffectCheckpoint
)

type Effect struct {
	Kind  EffectKind
	Path  []byte
	Value VmValue
}

func (e Effect) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteByte(byte(e.Kind))
	w.WriteLenPrefixed(e.Path)
	w.WriteHash(e.Value.Hash())
	return PersistentHash(w.Bytes())
}

// ResultMode holds the single piece of execution-time state the two modes
// disagree about: in Gather mode it accumulates Effects; in Verify mode it
// consumes them one at a time, demanding agreement.
type ResultMode struct {
	Kind    ResultModeKind
	effects []Effect
	cursor  int
}

func NewGatherMode() *ResultMode { return &ResultMode{Kind: ResultModeGather} }

func NewVerifyMode(effects []Effect) *ResultMode {
	return &ResultMode{Kind: ResultModeVerify, effects: effects}
}

// Record appends an effect in Gather mode. In Verify mode it instead pops
// the next expected effect and checks it against e, rejecting the
// transcript on any mismatch.
func (m *ResultMode) Record(e Effect) error {
	switch m.Kind {
	case ResultModeGather:
		m.effects = append(m.effects, e)
		return nil
	case ResultModeVerify:
		if m.cursor >= len(m.effects) {
			return &TranscriptRejected{Reason: "effect_overrun"}
		}
		want := m.effects[m.cursor]
		m.cursor++
		if want.Hash() != e.Hash() {
			return &TranscriptRejected{Reason: "effect_mismatch"}
		}
		return nil
	default:
		return wrapErr(KindInvalidState, "result_mode_kind", ErrInvalidArgs)
	}
}

// Effects returns the accumulated (Gather) or fully-consumed (Verify)
// effect log.
func (m *ResultMode) Effects() []Effect { return m.effects }

// Done reports whether Verify mode has consumed every effect in its
// transcript - a call is only accepted if it consumes exactly the log it
// was given, neither more nor less.
func (m *ResultMode) Done() bool {
	return m.Kind == ResultModeGather || m.cursor == len(m.effects)
}
