package core

// Instruction is one step of a contract call's program: an opcode plus the
// immediate operand that push, popeq, mt_insert and the kernel_claim_* /
// nonce_evolve ops read; idx and ins take their index and value from the
// stack.
type Instruction struct {
	Op      Opcode
	Operand StateValue
}

// Machine is the onchain runtime's stack machine. It executes a program of
// Instructions against a contract's local StateValue tree, charging gas
// through a GasMeter and recording every effect into a ResultMode so the
// call can later be replayed and checked (ResultModeVerify) instead of
// just trusted.
type Machine struct {
	stack  []VmValue
	state  StateValue
	gas    *GasMeter
	cost   CostModel
	mode   *ResultMode
	caller Address
	self   Address
	logs   [][]byte
	logLen int
}

func NewMachine(initial StateValue, self Address, gas *GasMeter, mode *ResultMode) *Machine {
	return &Machine{state: initial, self: self, gas: gas, cost: DefaultCostModel(), mode: mode}
}

func (m *Machine) push(v VmValue) { m.stack = append(m.stack, v) }

func (m *Machine) pop() (VmValue, error) {
	if len(m.stack) == 0 {
		return VmValue{}, wrapErr(KindResource, "stack_underflow", ErrRanOffStack)
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return top, nil
}

// State returns the machine's current contract-local state tree, mutated
// in place by ins/rem/mt_insert across the call.
func (m *Machine) State() StateValue { return m.state }

// Run executes program to completion (or to the first error), returning
// the final Transcript. A program that runs out of gas, underflows the
// stack, or fails a popeq assertion terminates the whole call: the ledger
// never applies partial effects from a single guaranteed segment.
func (m *Machine) Run(program []Instruction) (Transcript, error) {
	for _, ins := range program {
		if err := m.step(ins); err != nil {
			return Transcript{}, err
		}
	}
	if !m.mode.Done() {
		return Transcript{}, &TranscriptRejected{Reason: "effect_underrun"}
	}
	return Transcript{Program: program, Effects: m.mode.Effects(), Gas: m.gas.Spent(), Version: 1}, nil
}

func (m *Machine) step(ins Instruction) error {
	operand := StrongValue(ins.Operand)
	if err := m.gas.Deduct(m.cost.RunningCost(ins.Op, operand)); err != nil {
		return err
	}
	switch ins.Op {
	case OpPush:
		m.push(operand)
	case OpPop:
		if _, err := m.pop(); err != nil {
			return err
		}
	case OpDup:
		if len(m.stack) == 0 {
			return wrapErr(KindResource, "stack_underflow", ErrRanOffStack)
		}
		m.push(m.stack[len(m.stack)-1])
	case OpSwap:
		if len(m.stack) < 2 {
			return wrapErr(KindResource, "stack_underflow", ErrRanOffStack)
		}
		n := len(m.stack)
		m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
	case OpNoop:
		// deliberately does nothing
	case OpIdx:
		idx, err := m.popIndex()
		if err != nil {
			return err
		}
		if m.state.Kind != SVArray {
			return wrapErr(KindSemantic, "idx_on_non_array", ErrTypeError)
		}
		v, ok := m.state.Array.Get(idx)
		if !ok {
			return wrapErr(KindResource, "bounds_exceeded", ErrBoundsExceeded)
		}
		m.push(StrongValue(v))
		if err := m.mode.Record(Effect{Kind: EffectRead, Value: StrongValue(v)}); err != nil {
			return err
		}
	case OpIns:
		v, err := m.pop()
		if err != nil {
			return err
		}
		idx, err := m.popIndex()
		if err != nil {
			return err
		}
		if m.state.Kind != SVArray {
			return wrapErr(KindSemantic, "ins_on_non_array", ErrTypeError)
		}
		arr, err := m.state.Array.Insert(idx, v.State)
		if err != nil {
			return err
		}
		m.state = ArrayState(arr)
		if err := m.mode.Record(Effect{Kind: EffectWrite, Value: v}); err != nil {
			return err
		}
	case OpRem:
		return wrapErr(KindResource, "attempted_array_delete", ErrAttemptedArrayDelete)
	case OpMember:
		v, err := m.pop()
		if err != nil {
			return err
		}
		present := m.memberOf(v.State)
		m.push(StrongValue(boolCell(present)))
	case OpRead:
		m.push(StrongValue(m.state))
		if err := m.mode.Record(Effect{Kind: EffectRead, Value: StrongValue(m.state)}); err != nil {
			return err
		}
	case OpLog:
		v, err := m.pop()
		if err != nil {
			return err
		}
		b := v.State.Hash().Bytes()
		m.logLen += len(b)
		if m.logLen > MaxLogSize {
			return wrapErr(KindResource, "log_bound_exceeded", ErrLogBoundExceeded)
		}
		m.logs = append(m.logs, b)
	case OpPopeq:
		a, err := m.pop()
		if err != nil {
			return err
		}
		if a.State.Hash() != ins.Operand.Hash() {
			return wrapErr(KindSemantic, "popeq_mismatch", ErrReadMismatch)
		}
	case OpAdd, OpSub, OpMul, OpDiv:
		if err := m.arith(ins.Op); err != nil {
			return err
		}
	case OpKernelSelf:
		m.push(StrongValue(addressCell(m.self)))
	case OpKernelClaimZswapCoinSpend:
		if err := m.mode.Record(Effect{Kind: EffectClaimCoinSpend, Value: operand}); err != nil {
			return err
		}
	case OpKernelClaimZswapCoinRecv:
		if err := m.mode.Record(Effect{Kind: EffectClaimCoinReceive, Value: operand}); err != nil {
			return err
		}
	case OpKernelClaimNightDustSpend:
		if err := m.mode.Record(Effect{Kind: EffectClaimDustSpend, Value: operand}); err != nil {
			return err
		}
	case OpNonceEvolve:
		if err := m.mode.Record(Effect{Kind: EffectNonceEvolve, Value: operand}); err != nil {
			return err
		}
	case OpMtInsert:
		if m.state.Kind != SVBoundedMerkleTree {
			return wrapErr(KindSemantic, "mt_insert_on_non_tree", ErrTypeError)
		}
		m.state.BMT.Insert(operand.State.Cell)
		if err := m.mode.Record(Effect{Kind: EffectMerkleInsert, Value: operand}); err != nil {
			return err
		}
	case OpMtRoot:
		if m.state.Kind != SVBoundedMerkleTree {
			return wrapErr(KindSemantic, "mt_root_on_non_tree", ErrTypeError)
		}
		root, err := CellState(AlignedBytes(m.state.BMT.Root().Bytes()))
		if err != nil {
			return err
		}
		m.push(StrongValue(root))
	case OpCheckpoint:
		if err := m.mode.Record(Effect{Kind: EffectCheckpoint}); err != nil {
			return err
		}
	default:
		return wrapErr(KindSemantic, "unknown_opcode", ErrUnknownEntryPoint)
	}
	return nil
}

func (m *Machine) popIndex() (int, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	if v.State.Kind != SVCell || len(v.State.Cell.Strings) == 0 {
		return 0, wrapErr(KindSemantic, "expected_index_cell", ErrExpectedCell)
	}
	b := v.State.Cell.Strings[0]
	var n int
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n, nil
}

func (m *Machine) memberOf(key StateValue) bool {
	if m.state.Kind != SVMap || key.Kind != SVCell {
		return false
	}
	_, ok := m.state.Map.Get(key.Cell)
	return ok
}

func boolCell(b bool) StateValue {
	v := byte(0)
	if b {
		v = 1
	}
	sv, _ := CellState(AlignedBytes([]byte{v}))
	return sv
}

func addressCell(a Address) StateValue {
	sv, _ := CellState(AlignedBytes(a.Bytes()))
	return sv
}

func (m *Machine) arith(op Opcode) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	if a.State.Kind != SVCell || b.State.Kind != SVCell {
		return wrapErr(KindSemantic, "arith_on_non_cell", ErrTypeError)
	}
	av, bv := cellToUint64(a.State.Cell), cellToUint64(b.State.Cell)
	var result uint64
	switch op {
	case OpAdd:
		result = av + bv
		if result < av {
			return wrapErr(KindResource, "arithmetic_overflow", ErrArithmeticOverflow)
		}
	case OpSub:
		if bv > av {
			return wrapErr(KindResource, "arithmetic_overflow", ErrArithmeticOverflow)
		}
		result = av - bv
	case OpMul:
		result = av * bv
		if bv != 0 && result/bv != av {
			return wrapErr(KindResource, "arithmetic_overflow", ErrArithmeticOverflow)
		}
	case OpDiv:
		if bv == 0 {
			return wrapErr(KindSemantic, "division_by_zero", ErrInvalidArgs)
		}
		result = av / bv
	}
	sv, err := CellState(uint64Aligned(result))
	if err != nil {
		return err
	}
	m.push(StrongValue(sv))
	return nil
}

func cellToUint64(v AlignedValue) uint64 {
	if len(v.Strings) == 0 {
		return 0
	}
	var n uint64
	for _, c := range v.Strings[0] {
		n = n<<8 | uint64(c)
	}
	return n
}

func uint64Aligned(n uint64) AlignedValue {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return AlignedBytes(b)
}
