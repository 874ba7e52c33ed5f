package core

import (
	"fmt"
	"sync"
)

// AccessController manages role grants for maintenance-authority style
// permissions (who may submit a contract's maintenance updates, who may
// operate the proof service's admin endpoints) backed directly by a KV
// store. Each KV key is the persistent hash of "access:<addr-hex>:<role>",
// so the KV cannot be scanned by address; ListRoles reports only the roles
// held in this process's cache.
//
// The controller is safe for concurrent use.
type AccessController struct {
	mu    sync.Mutex
	kv    KV
	cache map[Address]map[string]struct{}
}

func NewAccessController(kv KV) *AccessController {
	return &AccessController{kv: kv, cache: make(map[Address]map[string]struct{})}
}

func (ac *AccessController) key(addr Address, role string) HashOutput {
	return PersistentHash([]byte(fmt.Sprintf("access:%s:%s", addr.Hex(), role)))
}

// GrantRole assigns a role to the given address. Returns an error if the
// role is already present.
func (ac *AccessController) GrantRole(addr Address, role string) error {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.hasLocked(addr, role) {
		return wrapErr(KindSemantic, "role_already_granted", ErrInvalidArgs)
	}
	k := ac.key(addr, role)
	if err := ac.kv.Put([]KVPair{{Key: k, Value: []byte{1}}}); err != nil {
		return err
	}
	ac.noteLocked(addr, role)
	return nil
}

// RevokeRole removes a role from the given address. Returns an error if
// the role is not present.
func (ac *AccessController) RevokeRole(addr Address, role string) error {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if !ac.hasLocked(addr, role) {
		if _, ok, _ := ac.kv.Get(ac.key(addr, role)); !ok {
			return wrapErr(KindSemantic, "role_not_found", ErrMissingKey)
		}
	}
	if err := ac.kv.Delete([]HashOutput{ac.key(addr, role)}); err != nil {
		return err
	}
	if roles, ok := ac.cache[addr]; ok {
		delete(roles, role)
		if len(roles) == 0 {
			delete(ac.cache, addr)
		}
	}
	return nil
}

// HasRole reports whether the address has the specified role.
func (ac *AccessController) HasRole(addr Address, role string) bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.hasLocked(addr, role)
}

func (ac *AccessController) hasLocked(addr Address, role string) bool {
	if roles, ok := ac.cache[addr]; ok {
		if _, ok := roles[role]; ok {
			return true
		}
	}
	if _, ok, _ := ac.kv.Get(ac.key(addr, role)); ok {
		ac.noteLocked(addr, role)
		return true
	}
	return false
}

func (ac *AccessController) noteLocked(addr Address, role string) {
	if _, ok := ac.cache[addr]; !ok {
		ac.cache[addr] = make(map[string]struct{})
	}
	ac.cache[addr][role] = struct{}{}
}

// ListRoles returns every role this process has observed granted to addr.
// Because roles are namespaced per-address hashes rather than
// lexicographically ordered keys, this reflects only what has already
// passed through GrantRole/HasRole in this process - callers that need an
// authoritative listing across a cold cache should track role sets
// explicitly at the call site instead of relying on KV enumeration.
func (ac *AccessController) ListRoles(addr Address) []string {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	roles := make([]string, 0, len(ac.cache[addr]))
	for r := range ac.cache[addr] {
		roles = append(roles, r)
	}
	return roles
}
