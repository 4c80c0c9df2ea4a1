package colony

import (
	"time"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/finance"
	"github.com/Jlo00/colonyNetwork/pkg/governance"
	"github.com/Jlo00/colonyNetwork/pkg/skills"
)

// Phase is a task's lifecycle phase. Cancelled and Finalized are terminal.
type Phase string

const (
	PhaseActive    Phase = "ACTIVE"
	PhaseCancelled Phase = "CANCELLED"
	PhaseFinalized Phase = "FINALIZED"
)

// Task is a unit of commissioned work within a colony.
type Task struct {
	ID     uint64        `json:"id"`
	Phase  Phase         `json:"phase"`
	Domain uint64        `json:"domain"`
	Pot    finance.PotID `json:"pot"`
	// Skills holds global skill ids; 0 marks an unset slot.
	Skills      []skills.ID                                  `json:"skills"`
	Roles       map[contracts.Role]contracts.Address         `json:"roles"`
	Payouts     map[contracts.Role]map[contracts.Token]int64 `json:"payouts,omitempty"`
	Brief       string                                       `json:"brief,omitempty"`
	DueDate     time.Time                                    `json:"due_date,omitempty"`
	Deliverable string                                       `json:"deliverable,omitempty"`
	Nonce       uint64                                       `json:"nonce"`
}

func newTask(id, domain uint64, pot finance.PotID, manager contracts.Address) *Task {
	return &Task{
		ID:     id,
		Phase:  PhaseActive,
		Domain: domain,
		Pot:    pot,
		Skills: []skills.ID{skills.None},
		Roles: map[contracts.Role]contracts.Address{
			contracts.RoleManager:   manager,
			contracts.RoleEvaluator: manager,
		},
		Payouts: make(map[contracts.Role]map[contracts.Token]int64),
	}
}

func (t *Task) Manager() contracts.Address   { return t.Roles[contracts.RoleManager] }
func (t *Task) Worker() contracts.Address    { return t.Roles[contracts.RoleWorker] }
func (t *Task) Evaluator() contracts.Address { return t.Roles[contracts.RoleEvaluator] }

func (t *Task) Active() bool { return t.Phase == PhaseActive }

// Delivered reports whether the worker has submitted a deliverable.
func (t *Task) Delivered() bool { return t.Deliverable != "" }

// Payout returns what role is promised in token.
func (t *Task) Payout(role contracts.Role, token contracts.Token) int64 {
	return t.Payouts[role][token]
}

// payoutTotal sums the promises in token across roles, with role's entry
// replaced by amount.
func (t *Task) payoutTotal(token contracts.Token, role contracts.Role, amount int64) (int64, error) {
	total := finance.NewMoney(amount, token)
	for r, byToken := range t.Payouts {
		if r == role {
			continue
		}
		sum, err := total.Add(finance.NewMoney(byToken[token], token))
		if err != nil {
			return 0, colonyerr.Wrap(colonyerr.ErrBalanceOverflow, err, "task %d payouts in %s", t.ID, token)
		}
		total = sum
	}
	return total.Amount, nil
}

func (t *Task) facts() governance.Facts {
	return governance.Facts{
		HasWorker:      !t.Worker().IsZero(),
		HasDeliverable: t.Delivered(),
	}
}

func (t *Task) clone() Task {
	out := *t
	out.Skills = append([]skills.ID(nil), t.Skills...)
	out.Roles = make(map[contracts.Role]contracts.Address, len(t.Roles))
	for r, a := range t.Roles {
		out.Roles[r] = a
	}
	out.Payouts = make(map[contracts.Role]map[contracts.Token]int64, len(t.Payouts))
	for r, byToken := range t.Payouts {
		m := make(map[contracts.Token]int64, len(byToken))
		for token, amount := range byToken {
			m[token] = amount
		}
		out.Payouts[r] = m
	}
	return out
}
