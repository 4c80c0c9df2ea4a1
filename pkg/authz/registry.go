// Package authz holds each colony's membership: its founder and its admins.
package authz

import (
	"bytes"
	"sort"
	"sync"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Relation is a membership role within a colony.
type Relation string

const (
	RelationFounder Relation = "founder"
	RelationAdmin   Relation = "admin"
)

// Registry records who may administer a colony. The founder is fixed at creation
// and starts as the only admin. The admin set is never allowed to become empty.
type Registry struct {
	mu      sync.RWMutex
	founder contracts.Address
	admins  map[contracts.Address]struct{}
}

func NewRegistry(founder contracts.Address) *Registry {
	return &Registry{
		founder: founder,
		admins:  map[contracts.Address]struct{}{founder: {}},
	}
}

// Check reports whether subject holds relation.
func (r *Registry) Check(relation Relation, subject contracts.Address) bool {
	switch relation {
	case RelationFounder:
		return r.IsFounder(subject)
	case RelationAdmin:
		return r.IsAdmin(subject)
	}
	return false
}

func (r *Registry) Founder() contracts.Address {
	return r.founder
}

func (r *Registry) IsFounder(addr contracts.Address) bool {
	return !addr.IsZero() && addr == r.founder
}

func (r *Registry) IsAdmin(addr contracts.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[addr]
	return ok
}

func (r *Registry) AdminCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins)
}

// Admins lists admins in address order.
func (r *Registry) Admins() []contracts.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contracts.Address, 0, len(r.admins))
	for a := range r.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// CheckAdd reports whether AddAdmin(addr) would succeed.
func (r *Registry) CheckAdd(addr contracts.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkAdd(addr)
}

func (r *Registry) checkAdd(addr contracts.Address) error {
	if addr.IsZero() {
		return colonyerr.New(colonyerr.ErrInvalidArgument, "admin address is unset")
	}
	if _, ok := r.admins[addr]; ok {
		return colonyerr.New(colonyerr.ErrAlreadyAdmin, "%s is already an admin", addr)
	}
	return nil
}

func (r *Registry) AddAdmin(addr contracts.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAdd(addr); err != nil {
		return err
	}
	r.admins[addr] = struct{}{}
	return nil
}

// CheckRemove reports whether RemoveAdmin(addr) would succeed.
func (r *Registry) CheckRemove(addr contracts.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkRemove(addr)
}

func (r *Registry) checkRemove(addr contracts.Address) error {
	if _, ok := r.admins[addr]; !ok {
		return colonyerr.New(colonyerr.ErrNotAdmin, "%s is not an admin", addr)
	}
	if len(r.admins) == 1 {
		return colonyerr.New(colonyerr.ErrLastAdmin, "cannot remove the last admin %s", addr)
	}
	return nil
}

func (r *Registry) RemoveAdmin(addr contracts.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRemove(addr); err != nil {
		return err
	}
	delete(r.admins, addr)
	return nil
}
