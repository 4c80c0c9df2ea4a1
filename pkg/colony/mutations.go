package colony

import (
	"strconv"
	"time"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/governance"
	"github.com/Jlo00/colonyNetwork/pkg/skills"
)

// Mutation is a gated change to a task's terms. Args are what signers sign, so
// every field that affects the outcome appears there.
type Mutation interface {
	Function() governance.Function
	Args() map[string]string
	// prepare validates the change against the current state and returns the
	// closure that applies it. Callers hold the network write lock.
	prepare(c *Colony, t *Task) (func(), error)
}

// guarded is implemented by mutations that reject some task states before any
// signature is looked at.
type guarded interface {
	guard(t *Task) error
}

// SetDomain moves a task to another domain of its colony.
type SetDomain struct {
	Domain uint64
}

func (SetDomain) Function() governance.Function { return governance.SetTaskDomain }

func (m SetDomain) Args() map[string]string {
	return map[string]string{"domain": strconv.FormatUint(m.Domain, 10)}
}

func (m SetDomain) prepare(c *Colony, t *Task) (func(), error) {
	if _, ok := c.domain(m.Domain); !ok {
		return nil, colonyerr.New(colonyerr.ErrDomainNotFound, "colony %s has no domain %d", c.address, m.Domain)
	}
	return func() { t.Domain = m.Domain }, nil
}

// SetSkill assigns a global skill to a task.
type SetSkill struct {
	Skill skills.ID
}

func (SetSkill) Function() governance.Function { return governance.SetTaskSkill }

func (m SetSkill) Args() map[string]string {
	return map[string]string{"skill": strconv.FormatUint(uint64(m.Skill), 10)}
}

func (m SetSkill) prepare(c *Colony, t *Task) (func(), error) {
	g := c.net.skills
	if !g.Exists(m.Skill) {
		return nil, colonyerr.New(colonyerr.ErrSkillNotFound, "skill %d does not exist", m.Skill)
	}
	if !g.IsGlobal(m.Skill) {
		return nil, colonyerr.New(colonyerr.ErrNotGlobalSkill, "skill %d is local", m.Skill)
	}
	return func() { t.Skills[0] = m.Skill }, nil
}

// SetPayout promises Amount of Token to the holder of Role. When the task cannot
// cover its promises in Token, the shortfall is reserved from the pool.
type SetPayout struct {
	Role   contracts.Role
	Token  contracts.Token
	Amount int64
}

func (SetPayout) Function() governance.Function { return governance.SetTaskPayout }

func (m SetPayout) Args() map[string]string {
	return map[string]string{
		"role":   string(m.Role),
		"token":  string(m.Token),
		"amount": strconv.FormatInt(m.Amount, 10),
	}
}

func (m SetPayout) prepare(c *Colony, t *Task) (func(), error) {
	if !m.Role.Valid() {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "unknown role %q", m.Role)
	}
	if m.Token == "" {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "payout token is unset")
	}
	if m.Amount < 0 {
		return nil, colonyerr.New(colonyerr.ErrInvalidAmount, "payout must not be negative, got %d", m.Amount)
	}
	total, err := t.payoutTotal(m.Token, m.Role, m.Amount)
	if err != nil {
		return nil, err
	}
	shortfall := total - c.funds.Available(t.Pot, m.Token)
	if shortfall > 0 {
		if err := c.funds.CheckReserve(t.Pot, m.Token, shortfall); err != nil {
			return nil, err
		}
	}
	return func() {
		if shortfall > 0 {
			// Checked above under the same lock.
			_ = c.funds.Reserve(t.Pot, m.Token, shortfall)
		}
		byToken, ok := t.Payouts[m.Role]
		if !ok {
			byToken = make(map[contracts.Token]int64)
			t.Payouts[m.Role] = byToken
		}
		byToken[m.Token] = m.Amount
	}, nil
}

// SetWorker assigns the worker.
type SetWorker struct {
	Worker contracts.Address
}

func (SetWorker) Function() governance.Function { return governance.SetTaskWorker }

func (m SetWorker) Args() map[string]string {
	return map[string]string{"worker": m.Worker.Hex()}
}

func (m SetWorker) prepare(_ *Colony, t *Task) (func(), error) {
	if m.Worker.IsZero() {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "worker address is unset")
	}
	return func() { t.Roles[contracts.RoleWorker] = m.Worker }, nil
}

// SetEvaluator replaces the evaluator, who defaults to the manager.
type SetEvaluator struct {
	Evaluator contracts.Address
}

func (SetEvaluator) Function() governance.Function { return governance.SetTaskEvaluator }

func (m SetEvaluator) Args() map[string]string {
	return map[string]string{"evaluator": m.Evaluator.Hex()}
}

func (m SetEvaluator) prepare(_ *Colony, t *Task) (func(), error) {
	if m.Evaluator.IsZero() {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "evaluator address is unset")
	}
	return func() { t.Roles[contracts.RoleEvaluator] = m.Evaluator }, nil
}

// SetBrief replaces the task description, usually a content hash.
type SetBrief struct {
	Brief string
}

func (SetBrief) Function() governance.Function { return governance.SetTaskBrief }

func (m SetBrief) Args() map[string]string {
	return map[string]string{"brief": m.Brief}
}

func (m SetBrief) prepare(_ *Colony, t *Task) (func(), error) {
	return func() { t.Brief = m.Brief }, nil
}

// SetDueDate sets the due date. The zero time clears it.
type SetDueDate struct {
	DueDate time.Time
}

func (SetDueDate) Function() governance.Function { return governance.SetTaskDueDate }

func (m SetDueDate) Args() map[string]string {
	if m.DueDate.IsZero() {
		return map[string]string{"due_date": ""}
	}
	return map[string]string{"due_date": m.DueDate.UTC().Format(time.RFC3339)}
}

func (m SetDueDate) prepare(_ *Colony, t *Task) (func(), error) {
	due := m.DueDate
	if !due.IsZero() {
		due = due.UTC().Truncate(time.Second)
	}
	return func() { t.DueDate = due }, nil
}

// SubmitDeliverable records the worker's work product, usually a content hash.
// It is accepted once and locks the task's terms.
type SubmitDeliverable struct {
	Deliverable string
}

func (SubmitDeliverable) Function() governance.Function { return governance.SubmitTaskDeliverable }

func (m SubmitDeliverable) Args() map[string]string {
	return map[string]string{"deliverable": m.Deliverable}
}

func (SubmitDeliverable) guard(t *Task) error {
	if t.Delivered() {
		return colonyerr.New(colonyerr.ErrDeliverableAlreadySubmitted, "task %d was delivered", t.ID)
	}
	if t.Worker().IsZero() {
		return colonyerr.New(colonyerr.ErrWorkerNotAssigned, "task %d has no worker", t.ID)
	}
	return nil
}

func (m SubmitDeliverable) prepare(_ *Colony, t *Task) (func(), error) {
	if m.Deliverable == "" {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "deliverable is empty")
	}
	return func() { t.Deliverable = m.Deliverable }, nil
}
