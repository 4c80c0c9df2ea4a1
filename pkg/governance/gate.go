package governance

import (
	"fmt"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/crypto"
)

// ChangePayload is what every required signer signs. It binds the change to one
// task of one colony at one nonce, so a signature cannot be replayed once the
// nonce has moved.
type ChangePayload struct {
	Colony   contracts.Address `json:"colony"`
	Task     uint64            `json:"task"`
	Nonce    uint64            `json:"nonce"`
	Function Function          `json:"function"`
	Args     map[string]string `json:"args"`
}

// Digest returns the bytes signers sign.
func (p ChangePayload) Digest() ([]byte, error) {
	if p.Args == nil {
		p.Args = map[string]string{}
	}
	d, err := crypto.CanonicalDigest(p)
	if err != nil {
		return nil, fmt.Errorf("change digest: %w", err)
	}
	return d, nil
}

// Gate checks multi-signature authorization of task changes.
type Gate struct {
	table     *PolicyTable
	recoverer crypto.Recoverer
}

func NewGate(table *PolicyTable, recoverer crypto.Recoverer) *Gate {
	return &Gate{table: table, recoverer: recoverer}
}

// Table returns the policy table the gate enforces.
func (g *Gate) Table() *PolicyTable {
	return g.table
}

// Authorize verifies that signatures holds exactly one valid signature per
// required role, in canonical role order. holders maps each role to its current
// address on the task. It returns the roles that signed.
func (g *Gate) Authorize(payload ChangePayload, facts Facts, holders map[contracts.Role]contracts.Address, signatures [][]byte) ([]contracts.Role, error) {
	roles, err := g.table.Lookup(payload.Function, facts)
	if err != nil {
		return nil, err
	}

	expected := make([]contracts.Address, len(roles))
	for i, role := range roles {
		addr := holders[role]
		if addr.IsZero() {
			return nil, colonyerr.New(colonyerr.ErrForbidden, "%s requires %s but the role is unassigned", payload.Function, role)
		}
		expected[i] = addr
	}

	if len(signatures) != len(expected) {
		return nil, colonyerr.New(colonyerr.ErrSignerCountMismatch,
			"%s needs %d signatures, got %d", payload.Function, len(expected), len(signatures))
	}

	digest, err := payload.Digest()
	if err != nil {
		return nil, err
	}
	for i, sig := range signatures {
		signer, err := g.recoverer.Recover(digest, sig)
		if err != nil {
			e := colonyerr.AtPosition(colonyerr.ErrSignatureMismatch, i+1, "expected %s (%s)", roles[i], expected[i])
			e.Cause = err
			return nil, e
		}
		if signer != expected[i] {
			return nil, colonyerr.AtPosition(colonyerr.ErrSignatureMismatch, i+1,
				"expected %s (%s), recovered %s", roles[i], expected[i], signer)
		}
	}
	return roles, nil
}
