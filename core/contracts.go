package core

// Contract deployment and entry-point invocation.
//
// A deployed contract is addressed by the content hash of its initial
// ContractState plus the deployer and a nonce (DeriveContractAddress),
// never by an externally chosen name - two deployments of byte-identical
// initial state by the same deployer with the same nonce collide
// deliberately, the same way a
// coin commitment collides on byte-identical (nonce, type, value, owner).

import "sync"

// MaintenanceRole is the AccessController role namespace a ContractState's
// MaintenanceAuthority signers must hold before UpdateEntryPoints will act
// on their behalf.
const MaintenanceRole = "contract-maintenance"

// ContractRegistry holds every contract deployed against one ledger
// instance, keyed by its content-derived ContractAddress.
type ContractRegistry struct {
	mu      sync.RWMutex
	byAddr  map[ContractAddress]*ContractState
	entries map[ContractAddress]map[string][]Instruction
	access  *AccessController
}

func NewContractRegistry(kv KV) *ContractRegistry {
	return &ContractRegistry{
		byAddr:  make(map[ContractAddress]*ContractState),
		entries: make(map[ContractAddress]map[string][]Instruction),
		access:  NewAccessController(kv),
	}
}

// Deploy registers a freshly constructed ContractState under its
// content-derived address, rejecting a second deployment at the same
// address (ErrMalformedContractDeploy rather than silently overwriting) and
// any deploy that arrives already holding a nonzero balance - a contract
// must start empty-handed, per Transaction.checkUserWellFormed's pure
// check of the same rule.
func (r *ContractRegistry) Deploy(deployer Address, nonce uint64, state ContractState, entryPoints map[string][]Instruction) (ContractAddress, error) {
	if hasNonZeroBalance(state.Balance) {
		return ContractAddress{}, wrapErr(KindWellFormedness, "deploy_nonzero_balance", ErrMalformedContractDeploy)
	}
	addr := DeriveContractAddress(deployer, nonce, state)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byAddr[addr]; exists {
		return ContractAddress{}, wrapErr(KindWellFormedness, "contract_already_deployed", ErrMalformedContractDeploy)
	}
	r.byAddr[addr] = &state
	r.entries[addr] = entryPoints
	return addr, nil
}

func (r *ContractRegistry) Get(addr ContractAddress) (*ContractState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byAddr[addr]
	return s, ok
}

// Invoke runs the named entry point's program against the contract's
// current state in two phases, split at the first kernel_checkpoint
// instruction (splitProgramAtCheckpoint). The guaranteed prefix's state
// mutation is committed the moment it succeeds - a failure there returns
// err and leaves state untouched, so the caller can reject the whole
// enclosing transaction. The fallible suffix then runs against that
// committed state; on failure only the suffix is rolled back to the
// post-guaranteed snapshot and fallibleOK is false, matching the ledger's
// per-call PartialSuccess semantics. A caller wanting to replay and verify
// rather than execute fresh should build its own Machine with
// ResultModeVerify instead of going through this convenience path.
func (r *ContractRegistry) Invoke(addr ContractAddress, entryPoint string, gasLimit uint64) (guaranteed, fallible Transcript, fallibleOK bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.byAddr[addr]
	if !ok {
		return Transcript{}, Transcript{}, false, wrapErr(KindWellFormedness, "unknown_contract", ErrMissingKey)
	}
	program, ok := r.entries[addr][entryPoint]
	if !ok {
		return Transcript{}, Transcript{}, false, wrapErr(KindWellFormedness, "unknown_entry_point", ErrUnknownEntryPoint)
	}
	guarProgram, fallProgram, _ := splitProgramAtCheckpoint(program)

	meter := NewGasMeter(gasLimit)
	mode := NewGatherMode()
	machine := NewMachine(state.Data, addr, meter, mode)

	guaranteed, err = machine.Run(guarProgram)
	if err != nil {
		return Transcript{}, Transcript{}, false, err
	}
	state.Data = machine.State()
	snapshot := machine.State()
	cut := len(mode.Effects())

	if len(fallProgram) == 0 {
		return guaranteed, Transcript{Version: 1}, true, nil
	}

	fallible, ferr := machine.Run(fallProgram)
	if ferr != nil {
		state.Data = snapshot
		return guaranteed, Transcript{}, false, nil
	}
	fallible.Effects = append([]Effect{}, mode.Effects()[cut:]...)
	fallible.Gas -= guaranteed.Gas
	state.Data = machine.State()
	return guaranteed, fallible, true, nil
}

// GrantMaintenance authorizes signer to act on behalf of any contract that
// lists them in its MaintenanceAuthority - the access-control side of the
// threshold signer set UpdateEntryPoints checks.
func (r *ContractRegistry) GrantMaintenance(signer Address) error {
	return r.access.GrantRole(signer, MaintenanceRole)
}

// UpdateEntryPoints replaces a deployed contract's declared entry points,
// the maintenance-authority-gated operation MaintenanceAuthority exists to
// protect. caller must both hold MaintenanceRole (granted via
// GrantMaintenance) and appear in the contract's current
// MaintenanceAuthority.Signers. Aggregating Threshold-many signer approvals
// into one call is out of scope, matching the VM's ZK proof verification
// omission - a single authorized signer suffices here.
func (r *ContractRegistry) UpdateEntryPoints(addr ContractAddress, caller Address, entryPoints map[string][]Instruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.byAddr[addr]
	if !ok {
		return wrapErr(KindWellFormedness, "unknown_contract", ErrMissingKey)
	}
	if !r.access.HasRole(caller, MaintenanceRole) {
		return wrapErr(KindWellFormedness, "maintenance_unauthorized", ErrMaintenanceUnauthorized)
	}
	authorized := false
	for _, signer := range state.Maintenance.Signers {
		if signer == caller {
			authorized = true
			break
		}
	}
	if !authorized {
		return wrapErr(KindWellFormedness, "maintenance_unauthorized", ErrMaintenanceUnauthorized)
	}
	r.entries[addr] = entryPoints
	return nil
}

// All returns a snapshot of every deployed contract's address set.
func (r *ContractRegistry) All() []ContractAddress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ContractAddress, 0, len(r.byAddr))
	for a := range r.byAddr {
		out = append(out, a)
	}
	return out
}

// DeriveContractAddress content-derives a ContractAddress from its
// deployer, a per-deployer nonce, and the contract's initial state - so
// the address can't be chosen independent of what's actually deployed.
func DeriveContractAddress(deployer Address, nonce uint64, state ContractState) ContractAddress {
	w := NewHashWriter()
	w.WriteBytes([]byte("contract-address"))
	w.WriteBytes(deployer.Bytes())
	w.WriteU64(nonce)
	w.WriteHash(state.Hash())
	return AddressFromHash(PersistentHash(w.Bytes()))
}
