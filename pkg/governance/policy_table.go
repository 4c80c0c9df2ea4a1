// Package governance decides who must sign a task change and checks that they did.
//
// A PolicyTable maps (function, task stage) to the ordered list of roles whose
// signatures are required. Stages are described by CEL predicates over task facts,
// so the table stays pure data and can be replaced from the network profile. The
// Gate resolves those roles to addresses and verifies one signature per role over
// a payload that binds the task's current nonce.
package governance

import (
	"fmt"
	"sort"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Function names a gated task mutation.
type Function string

const (
	SetTaskDomain    Function = "setTaskDomain"
	SetTaskSkill     Function = "setTaskSkill"
	SetTaskPayout    Function = "setTaskPayout"
	SetTaskWorker    Function = "setTaskWorker"
	SetTaskEvaluator Function = "setTaskEvaluator"
	SetTaskBrief     Function = "setTaskBrief"
	SetTaskDueDate   Function = "setTaskDueDate"

	SubmitTaskDeliverable Function = "submitTaskDeliverable"
)

// Facts describe the task state a stage predicate can see.
type Facts struct {
	HasWorker      bool
	HasDeliverable bool
}

func (f Facts) input() map[string]any {
	return map[string]any{
		"has_worker":      f.HasWorker,
		"has_deliverable": f.HasDeliverable,
	}
}

// Rule requires Signers for Function whenever When holds. A Locked rule rejects
// the change outright.
type Rule struct {
	Function Function         `json:"function" yaml:"function"`
	When     string           `json:"when" yaml:"when"`
	Signers  []contracts.Role `json:"signers,omitempty" yaml:"signers,omitempty"`
	Locked   bool             `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// PolicyTable is an ordered, compiled rule list. The first matching rule for a
// function wins.
type PolicyTable struct {
	rules map[Function][]Rule
	eval  *celEvaluator
}

const (
	whenDelivered = "task.has_deliverable"
	whenAssigned  = "task.has_worker"
	whenAlways    = "true"
)

// DefaultRules returns the standard signer matrix: the Manager alone before a
// worker is assigned, Manager and Worker afterwards, and no term edits once work
// is delivered except payout adjustments by Manager and Evaluator. The Worker
// alone signs the deliverable.
func DefaultRules() []Rule {
	var rules []Rule
	for _, fn := range []Function{SetTaskDomain, SetTaskSkill, SetTaskBrief, SetTaskDueDate, SetTaskWorker, SetTaskEvaluator} {
		rules = append(rules,
			Rule{Function: fn, When: whenDelivered, Locked: true},
			Rule{Function: fn, When: whenAssigned, Signers: []contracts.Role{contracts.RoleManager, contracts.RoleWorker}},
			Rule{Function: fn, When: whenAlways, Signers: []contracts.Role{contracts.RoleManager}},
		)
	}
	rules = append(rules,
		Rule{Function: SetTaskPayout, When: whenDelivered, Signers: []contracts.Role{contracts.RoleManager, contracts.RoleEvaluator}},
		Rule{Function: SetTaskPayout, When: whenAssigned, Signers: []contracts.Role{contracts.RoleManager, contracts.RoleWorker}},
		Rule{Function: SetTaskPayout, When: whenAlways, Signers: []contracts.Role{contracts.RoleManager}},
		Rule{Function: SubmitTaskDeliverable, When: whenAlways, Signers: []contracts.Role{contracts.RoleWorker}},
	)
	return rules
}

// NewPolicyTable validates and compiles rules. Signers are put in canonical role order.
func NewPolicyTable(rules []Rule) (*PolicyTable, error) {
	eval, err := newCELEvaluator()
	if err != nil {
		return nil, err
	}
	t := &PolicyTable{rules: make(map[Function][]Rule), eval: eval}
	for i, r := range rules {
		if r.Function == "" {
			return nil, fmt.Errorf("rule %d: function is required", i)
		}
		if r.When == "" {
			r.When = whenAlways
		}
		if _, err := eval.compile(r.When); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Function, err)
		}
		if !r.Locked && len(r.Signers) == 0 {
			return nil, fmt.Errorf("rule %d (%s): unlocked rule needs signers", i, r.Function)
		}
		signers, err := canonicalSigners(r.Signers)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Function, err)
		}
		r.Signers = signers
		t.rules[r.Function] = append(t.rules[r.Function], r)
	}
	return t, nil
}

// MustDefaultPolicyTable compiles DefaultRules and panics on error.
func MustDefaultPolicyTable() *PolicyTable {
	t, err := NewPolicyTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

func canonicalSigners(roles []contracts.Role) ([]contracts.Role, error) {
	seen := make(map[contracts.Role]bool, len(roles))
	out := make([]contracts.Role, 0, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", r)
		}
		if seen[r] {
			return nil, fmt.Errorf("role %s listed twice", r)
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return contracts.RoleRank(out[i]) < contracts.RoleRank(out[j])
	})
	return out, nil
}

// Lookup returns the roles that must sign fn for a task in the given state.
func (t *PolicyTable) Lookup(fn Function, facts Facts) ([]contracts.Role, error) {
	rules, ok := t.rules[fn]
	if !ok {
		return nil, colonyerr.New(colonyerr.ErrUnknownFunction, "no policy for %s", fn)
	}
	for _, r := range rules {
		match, err := t.eval.evaluate(r.When, facts)
		if err != nil {
			return nil, fmt.Errorf("policy for %s: %w", fn, err)
		}
		if !match {
			continue
		}
		if r.Locked {
			return nil, colonyerr.New(colonyerr.ErrTaskLocked, "%s is locked when %s", fn, r.When)
		}
		return append([]contracts.Role(nil), r.Signers...), nil
	}
	return nil, colonyerr.New(colonyerr.ErrUnknownFunction, "no policy for %s matches the task state", fn)
}

// Functions lists every function the table governs, sorted.
func (t *PolicyTable) Functions() []Function {
	out := make([]Function, 0, len(t.rules))
	for fn := range t.rules {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
