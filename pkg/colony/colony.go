package colony

import (
	"context"
	"strconv"

	"github.com/Jlo00/colonyNetwork/pkg/authz"
	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/finance"
	"github.com/Jlo00/colonyNetwork/pkg/governance"
	"github.com/Jlo00/colonyNetwork/pkg/observability"
	"github.com/Jlo00/colonyNetwork/pkg/skills"
)

// RootDomain is the domain every colony starts with. It owns the pool.
const RootDomain uint64 = 1

// Domain is a division of a colony with its own local skill and pot.
type Domain struct {
	ID      uint64        `json:"id"`
	SkillID skills.ID     `json:"skill_id"`
	PotID   finance.PotID `json:"pot_id"`
}

// Colony is one work organization. All of its methods are serialized by the
// network lock.
type Colony struct {
	net       *Network
	address   contracts.Address
	token     contracts.Token
	tokenInfo contracts.TokenInfo
	registry  *authz.Registry
	funds     *finance.Ledger

	rootSkill   skills.ID
	miningSkill skills.ID

	domains     []Domain // domains[i] has ID i+1
	tasks       []*Task  // tasks[i] has ID i+1
	totalSupply int64
}

func newColony(n *Network, addr, founder contracts.Address, info contracts.TokenInfo, rootSkill skills.ID) *Colony {
	return &Colony{
		net:       n,
		address:   addr,
		token:     contracts.Token(addr.Hex()),
		tokenInfo: info,
		registry:  authz.NewRegistry(founder),
		funds:     finance.NewLedger(RootDomain),
		rootSkill: rootSkill,
		domains:   []Domain{{ID: RootDomain, SkillID: rootSkill, PotID: finance.PoolPot}},
	}
}

func (c *Colony) Address() contracts.Address { return c.address }

// Token is the id of the colony's own token.
func (c *Colony) Token() contracts.Token { return c.token }

func (c *Colony) TokenInfo() contracts.TokenInfo { return c.tokenInfo }

// IsMeta reports whether this is the meta colony.
func (c *Colony) IsMeta() bool {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.net.meta == c
}

// RootSkill is the local skill of the root domain.
func (c *Colony) RootSkill() skills.ID { return c.rootSkill }

// MiningSkill is the meta colony's mining skill, 0 for other colonies.
func (c *Colony) MiningSkill() skills.ID { return c.miningSkill }

func (c *Colony) attrs() []any {
	return []any{"colony", c.address.Hex()}
}

func (c *Colony) requireAdmin(caller contracts.Address) error {
	if !c.registry.IsAdmin(caller) {
		return colonyerr.New(colonyerr.ErrForbidden, "%s is not an admin of %s", caller, c.address)
	}
	return nil
}

func (c *Colony) domain(id uint64) (Domain, bool) {
	if id == 0 || id > uint64(len(c.domains)) {
		return Domain{}, false
	}
	return c.domains[id-1], true
}

func (c *Colony) task(id uint64) (*Task, error) {
	if id == 0 || id > uint64(len(c.tasks)) {
		return nil, colonyerr.New(colonyerr.ErrTaskNotFound, "colony %s has no task %d", c.address, id)
	}
	return c.tasks[id-1], nil
}

func (c *Colony) activeTask(id uint64) (*Task, error) {
	t, err := c.task(id)
	if err != nil {
		return nil, err
	}
	if !t.Active() {
		return nil, colonyerr.New(colonyerr.ErrTaskNotActive, "task %d is %s", id, t.Phase)
	}
	return t, nil
}

// AddAdmin grants admin rights. Only admins may call it.
func (c *Colony) AddAdmin(ctx context.Context, caller, admin contracts.Address) (err error) {
	ctx, end := c.net.track(ctx, "colony.admin.add", observability.ColonyOperation(c.address.Hex())...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if err := c.registry.CheckAdd(admin); err != nil {
		return err
	}
	if err := c.net.record(ctx, KindAdminAdded, c.address, caller, map[string]interface{}{"admin": admin.Hex()}); err != nil {
		return err
	}
	return c.registry.AddAdmin(admin)
}

// RemoveAdmin revokes admin rights. The last admin cannot be removed.
func (c *Colony) RemoveAdmin(ctx context.Context, caller, admin contracts.Address) (err error) {
	ctx, end := c.net.track(ctx, "colony.admin.remove", observability.ColonyOperation(c.address.Hex())...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if err := c.registry.CheckRemove(admin); err != nil {
		return err
	}
	if err := c.net.record(ctx, KindAdminRemoved, c.address, caller, map[string]interface{}{"admin": admin.Hex()}); err != nil {
		return err
	}
	return c.registry.RemoveAdmin(admin)
}

func (c *Colony) Founder() contracts.Address {
	return c.registry.Founder()
}

func (c *Colony) IsAdmin(addr contracts.Address) bool {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.registry.IsAdmin(addr)
}

func (c *Colony) AdminCount() int {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.registry.AdminCount()
}

// Admins lists the admins in address order.
func (c *Colony) Admins() []contracts.Address {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.registry.Admins()
}

// MintTokens issues amount of the colony token into the pool.
func (c *Colony) MintTokens(ctx context.Context, caller contracts.Address, amount int64) (err error) {
	ctx, end := c.net.track(ctx, "colony.tokens.mint",
		observability.AttrColony.String(c.address.Hex()), observability.AttrToken.String(string(c.token)))
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if err := c.funds.CheckContribute(finance.PoolPot, c.token, amount); err != nil {
		return err
	}
	supply, err := finance.NewMoney(c.totalSupply, c.token).Add(finance.NewMoney(amount, c.token))
	if err != nil {
		return err
	}
	data := map[string]interface{}{"amount": strconv.FormatInt(amount, 10), "total_supply": strconv.FormatInt(supply.Amount, 10)}
	if err := c.net.record(ctx, KindTokensMinted, c.address, caller, data); err != nil {
		return err
	}
	if err := c.funds.Contribute(finance.PoolPot, c.token, amount); err != nil {
		return err
	}
	c.totalSupply = supply.Amount
	return nil
}

// TotalSupply is the amount of colony token minted so far.
func (c *Colony) TotalSupply() int64 {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.totalSupply
}

// AddDomain adds a domain under parent, which must be the root domain. The new
// domain gets a local skill under the root skill and a pot of its own.
func (c *Colony) AddDomain(ctx context.Context, caller contracts.Address, parent uint64) (id uint64, err error) {
	ctx, end := c.net.track(ctx, "colony.domain.add",
		observability.AttrColony.String(c.address.Hex()), observability.AttrDomain.Int64(int64(parent)))
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return 0, err
	}
	if parent != RootDomain {
		return 0, colonyerr.New(colonyerr.ErrNotRootParent, "domains nest only under the root domain, got parent %d", parent)
	}
	g := c.net.skills
	if err := g.CheckAdd(c.rootSkill, false); err != nil {
		return 0, err
	}

	id = uint64(len(c.domains) + 1)
	data := map[string]interface{}{
		"domain": id,
		"skill":  uint64(g.Count() + 1),
		"pot":    uint64(c.funds.PotCount() + 1),
	}
	if err := c.net.record(ctx, KindDomainAdded, c.address, caller, data); err != nil {
		return 0, err
	}
	skill, err := g.Add(c.rootSkill, false)
	if err != nil {
		return 0, err
	}
	pot := c.funds.OpenPot(finance.DomainOwner(id))
	c.domains = append(c.domains, Domain{ID: id, SkillID: skill, PotID: pot})
	return id, nil
}

// Domain returns the domain with the given id.
func (c *Colony) Domain(id uint64) (Domain, bool) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.domain(id)
}

func (c *Colony) DomainCount() int {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return len(c.domains)
}

// AddGlobalSkill adds a global skill under parent. Only the meta colony's
// founder may call it.
func (c *Colony) AddGlobalSkill(ctx context.Context, caller contracts.Address, parent skills.ID) (id skills.ID, err error) {
	ctx, end := c.net.track(ctx, "colony.skill.add_global",
		observability.AttrColony.String(c.address.Hex()), observability.AttrSkill.Int64(int64(parent)))
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if c.net.meta != c {
		return skills.None, colonyerr.New(colonyerr.ErrForbidden, "%s is not the meta colony", c.address)
	}
	if !c.registry.IsFounder(caller) {
		return skills.None, colonyerr.New(colonyerr.ErrUnauthorized, "%s is not the meta colony founder", caller)
	}
	return c.net.addSkill(ctx, c.address, parent, true)
}

// SetNetworkFeeInverse changes the network fee. Only the meta colony's founder
// may call it.
func (c *Colony) SetNetworkFeeInverse(ctx context.Context, caller contracts.Address, v uint64) (err error) {
	ctx, end := c.net.track(ctx, "colony.network.set_fee", observability.ColonyOperation(c.address.Hex())...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if c.net.meta != c {
		return colonyerr.New(colonyerr.ErrForbidden, "%s is not the meta colony", c.address)
	}
	if !c.registry.IsFounder(caller) {
		return colonyerr.New(colonyerr.ErrUnauthorized, "%s is not the meta colony founder", caller)
	}
	return c.net.setFeeInverse(ctx, c.address, v)
}

// MakeTask creates a task in domain. The caller becomes its manager and evaluator.
func (c *Colony) MakeTask(ctx context.Context, caller contracts.Address, domain uint64) (id uint64, err error) {
	ctx, end := c.net.track(ctx, "colony.task.make",
		observability.AttrColony.String(c.address.Hex()), observability.AttrDomain.Int64(int64(domain)))
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return 0, err
	}
	if _, ok := c.domain(domain); !ok {
		return 0, colonyerr.New(colonyerr.ErrDomainNotFound, "colony %s has no domain %d", c.address, domain)
	}

	id = uint64(len(c.tasks) + 1)
	data := map[string]interface{}{"task": id, "domain": domain, "manager": caller.Hex()}
	if err := c.net.record(ctx, KindTaskCreated, c.address, caller, data); err != nil {
		return 0, err
	}
	pot := c.funds.OpenPot(finance.TaskOwner(id))
	c.tasks = append(c.tasks, newTask(id, domain, pot, caller))
	return id, nil
}

// Task returns a copy of the task with the given id.
func (c *Colony) Task(id uint64) (Task, error) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	t, err := c.task(id)
	if err != nil {
		return Task{}, err
	}
	return t.clone(), nil
}

func (c *Colony) TaskCount() int {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return len(c.tasks)
}

// ContributeToTask records funds brought into a task from outside the colony,
// native currency or any token.
func (c *Colony) ContributeToTask(ctx context.Context, caller contracts.Address, taskID uint64, token contracts.Token, amount int64) (err error) {
	ctx, end := c.net.track(ctx, "colony.task.contribute",
		append(observability.TaskOperation(c.address.Hex(), taskID, ""), observability.AttrToken.String(string(token)))...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	t, err := c.activeTask(taskID)
	if err != nil {
		return err
	}
	if err := c.funds.CheckContribute(t.Pot, token, amount); err != nil {
		return err
	}
	data := map[string]interface{}{"task": taskID, "token": string(token), "amount": strconv.FormatInt(amount, 10)}
	if err := c.net.record(ctx, KindTaskFunded, c.address, caller, data); err != nil {
		return err
	}
	return c.funds.Contribute(t.Pot, token, amount)
}

// ContributeFromPool earmarks amount of the pool for a task.
func (c *Colony) ContributeFromPool(ctx context.Context, caller contracts.Address, taskID uint64, token contracts.Token, amount int64) (err error) {
	ctx, end := c.net.track(ctx, "colony.task.reserve",
		append(observability.TaskOperation(c.address.Hex(), taskID, ""), observability.AttrToken.String(string(token)))...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	t, err := c.activeTask(taskID)
	if err != nil {
		return err
	}
	if err := c.funds.CheckReserve(t.Pot, token, amount); err != nil {
		return err
	}
	data := map[string]interface{}{"task": taskID, "token": string(token), "amount": strconv.FormatInt(amount, 10)}
	if err := c.net.record(ctx, KindTaskReserved, c.address, caller, data); err != nil {
		return err
	}
	return c.funds.Reserve(t.Pot, token, amount)
}

// MoveFundsBetweenPots moves spendable funds from one pot to another. Task pots
// only receive; a task pot must belong to an active task.
func (c *Colony) MoveFundsBetweenPots(ctx context.Context, caller contracts.Address, from, to finance.PotID, token contracts.Token, amount int64) (err error) {
	ctx, end := c.net.track(ctx, "colony.funds.move",
		observability.AttrColony.String(c.address.Hex()), observability.AttrToken.String(string(token)))
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if err := c.funds.CheckTransfer(from, to, token, amount); err != nil {
		return err
	}
	if dst, ok := c.funds.Pot(to); ok && dst.Owner.Kind == finance.OwnerTask {
		if _, err := c.activeTask(dst.Owner.ID); err != nil {
			return err
		}
	}
	data := map[string]interface{}{
		"from":   uint64(from),
		"to":     uint64(to),
		"token":  string(token),
		"amount": strconv.FormatInt(amount, 10),
	}
	if err := c.net.record(ctx, KindFundsMoved, c.address, caller, data); err != nil {
		return err
	}
	return c.funds.Transfer(from, to, token, amount)
}

func (c *Colony) payload(t *Task, m Mutation) governance.ChangePayload {
	return governance.ChangePayload{
		Colony:   c.address,
		Task:     t.ID,
		Nonce:    t.Nonce,
		Function: m.Function(),
		Args:     m.Args(),
	}
}

// TaskChangeDigest returns the bytes each required signer signs to authorize m
// on the task at its current nonce.
func (c *Colony) TaskChangeDigest(taskID uint64, m Mutation) ([]byte, error) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	t, err := c.task(taskID)
	if err != nil {
		return nil, err
	}
	return c.payload(t, m).Digest()
}

// RequiredSigners lists, in signing order, the roles that must sign m for the
// task in its current state.
func (c *Colony) RequiredSigners(taskID uint64, m Mutation) ([]contracts.Role, error) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	t, err := c.task(taskID)
	if err != nil {
		return nil, err
	}
	return c.net.table.Lookup(m.Function(), t.facts())
}

// ExecuteTaskChange applies m once signatures carry one valid signature per
// required role, in canonical role order. The task nonce advances on success.
func (c *Colony) ExecuteTaskChange(ctx context.Context, taskID uint64, m Mutation, signatures [][]byte) (err error) {
	ctx, end := c.net.track(ctx, "colony.task.change",
		observability.TaskOperation(c.address.Hex(), taskID, string(m.Function()))...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	t, err := c.activeTask(taskID)
	if err != nil {
		return err
	}
	if g, ok := m.(guarded); ok {
		if err := g.guard(t); err != nil {
			return err
		}
	}
	payload := c.payload(t, m)
	signers, err := c.net.gate.Authorize(payload, t.facts(), t.Roles, signatures)
	if err != nil {
		return err
	}
	apply, err := m.prepare(c, t)
	if err != nil {
		return err
	}

	roles := make([]string, len(signers))
	for i, r := range signers {
		roles[i] = string(r)
	}
	data := map[string]interface{}{
		"task":     taskID,
		"nonce":    t.Nonce,
		"function": string(m.Function()),
		"args":     m.Args(),
		"signers":  roles,
	}
	kind := KindTaskChanged
	if m.Function() == governance.SubmitTaskDeliverable {
		kind = KindTaskDelivered
	}
	if err := c.net.record(ctx, kind, c.address, contracts.ZeroAddress, data); err != nil {
		return err
	}
	apply()
	t.Nonce++
	c.net.logger.DebugContext(ctx, "task nonce advanced", append(c.attrs(), "task", taskID, "nonce", t.Nonce)...)
	return nil
}

// SubmitTaskDeliverable records the worker's deliverable. It goes through the
// same signature gate as other task changes and can be submitted once.
func (c *Colony) SubmitTaskDeliverable(ctx context.Context, taskID uint64, deliverable string, signatures [][]byte) error {
	return c.ExecuteTaskChange(ctx, taskID, SubmitDeliverable{Deliverable: deliverable}, signatures)
}

// CompleteAndPayTask settles everything the task holds to payee, less the
// network fee, and finalizes the task. A task holding nothing finalizes without
// settlements.
func (c *Colony) CompleteAndPayTask(ctx context.Context, caller contracts.Address, taskID uint64, payee contracts.Address) (settlements []finance.Settlement, err error) {
	ctx, end := c.net.track(ctx, "colony.task.complete", observability.TaskOperation(c.address.Hex(), taskID, "")...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	t, err := c.task(taskID)
	if err != nil {
		return nil, err
	}
	if caller != t.Manager() {
		return nil, colonyerr.New(colonyerr.ErrForbidden, "only the manager of task %d may complete it", taskID)
	}
	if !t.Active() {
		return nil, colonyerr.New(colonyerr.ErrTaskNotActive, "task %d is %s", taskID, t.Phase)
	}
	if payee.IsZero() {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "payee is unset")
	}

	requests := make([]finance.SettleRequest, 0)
	credits := make([]finance.Credit, 0)
	quoted := make([]map[string]interface{}, 0)
	for _, token := range c.funds.Tokens(t.Pot) {
		req := finance.SettleRequest{
			Pot:        t.Pot,
			Token:      token,
			Payee:      payee,
			Treasury:   c.net.treasury,
			FeeInverse: c.net.feeInverse,
		}
		q, err := c.funds.Quote(req)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
		credits = append(credits, q.Credits()...)
		quoted = append(quoted, map[string]interface{}{
			"token":  string(token),
			"amount": strconv.FormatInt(q.Amount, 10),
			"payout": strconv.FormatInt(q.Payout, 10),
			"fee":    strconv.FormatInt(q.Fee, 10),
		})
	}
	if err := c.net.accounts.CheckCredit(credits...); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"task":        taskID,
		"payee":       payee.Hex(),
		"fee_inverse": c.net.feeInverse,
		"settlements": quoted,
	}
	if err := c.net.record(ctx, KindTaskFinalized, c.address, caller, data); err != nil {
		return nil, err
	}

	for _, req := range requests {
		s, err := c.funds.Settle(req, c.net.accounts)
		if err != nil {
			return settlements, err
		}
		settlements = append(settlements, s)
		c.net.logger.InfoContext(ctx, "task settled", append(c.attrs(),
			"task", taskID, "token", s.Token, "amount", s.Amount, "payout", s.Payout, "fee", s.Fee, "settlement", s.ID)...)
	}
	t.Phase = PhaseFinalized
	return settlements, nil
}

// CancelTask ends the task without payment. Reservations return to the pool;
// funds contributed directly stay in the task pot.
func (c *Colony) CancelTask(ctx context.Context, caller contracts.Address, taskID uint64) (err error) {
	ctx, end := c.net.track(ctx, "colony.task.cancel", observability.TaskOperation(c.address.Hex(), taskID, "")...)
	defer end(&err)

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	t, err := c.task(taskID)
	if err != nil {
		return err
	}
	if caller != t.Manager() {
		return colonyerr.New(colonyerr.ErrForbidden, "only the manager of task %d may cancel it", taskID)
	}
	if !t.Active() {
		return colonyerr.New(colonyerr.ErrTaskNotActive, "task %d is %s", taskID, t.Phase)
	}
	if err := c.net.record(ctx, KindTaskCancelled, c.address, caller, map[string]interface{}{"task": taskID}); err != nil {
		return err
	}
	released := c.funds.Release(t.Pot)
	t.Phase = PhaseCancelled
	for token, amount := range released {
		c.net.logger.DebugContext(ctx, "reservation released", append(c.attrs(), "task", taskID, "token", token, "amount", amount)...)
	}
	return nil
}

// PotBalance returns the direct balance of a pot.
func (c *Colony) PotBalance(pot finance.PotID, token contracts.Token) int64 {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.funds.Balance(pot, token)
}

// Pot returns a snapshot of a pot, reservations included.
func (c *Colony) Pot(pot finance.PotID) (finance.Pot, bool) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.funds.Pot(pot)
}

// PoolBalance returns the balance of the root domain's pot.
func (c *Colony) PoolBalance(token contracts.Token) int64 {
	return c.PotBalance(finance.PoolPot, token)
}

// ReservedBalance returns how much of the pool is earmarked for tasks.
func (c *Colony) ReservedBalance(token contracts.Token) int64 {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.funds.Reserved(token)
}

// TaskFunds returns what a task could settle in token: its direct balance plus
// its reservation.
func (c *Colony) TaskFunds(taskID uint64, token contracts.Token) (int64, error) {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	t, err := c.task(taskID)
	if err != nil {
		return 0, err
	}
	return c.funds.Available(t.Pot, token), nil
}

// CheckInvariant verifies the colony's accounting.
func (c *Colony) CheckInvariant() error {
	c.net.mu.RLock()
	defer c.net.mu.RUnlock()
	return c.funds.CheckInvariant()
}
