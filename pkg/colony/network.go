// Package colony ties the skill graph, the funding ledgers and task governance
// into one network of colonies.
//
// Every state-changing call takes the network lock, validates completely, writes
// a journal entry and only then applies the change. A call that returns an error
// has changed nothing. Queries take the read side of the same lock.
package colony

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/crypto"
	"github.com/Jlo00/colonyNetwork/pkg/finance"
	"github.com/Jlo00/colonyNetwork/pkg/governance"
	"github.com/Jlo00/colonyNetwork/pkg/ledger"
	"github.com/Jlo00/colonyNetwork/pkg/mining"
	"github.com/Jlo00/colonyNetwork/pkg/observability"
	"github.com/Jlo00/colonyNetwork/pkg/skills"
)

// DefaultFeeInverse charges a 1% network fee on settlements.
const DefaultFeeInverse uint64 = 100

// Journal record kinds.
const (
	KindColonyCreated     = "colony.created"
	KindSkillAdded        = "skill.added"
	KindFeeChanged        = "network.fee_changed"
	KindMiningInitialised = "mining.initialised"
	KindMiningAdvanced    = "mining.advanced"
	KindAdminAdded        = "colony.admin_added"
	KindAdminRemoved      = "colony.admin_removed"
	KindTokensMinted      = "colony.tokens_minted"
	KindDomainAdded       = "colony.domain_added"
	KindFundsMoved        = "colony.funds_moved"
	KindTaskCreated       = "task.created"
	KindTaskFunded        = "task.funded"
	KindTaskReserved      = "task.reserved"
	KindTaskChanged       = "task.changed"
	KindTaskDelivered     = "task.delivered"
	KindTaskFinalized     = "task.finalized"
	KindTaskCancelled     = "task.cancelled"
)

// Network is the registry of colonies and the owner of the shared skill graph,
// the fee setting, and the accounts that settlements pay into.
type Network struct {
	mu sync.RWMutex

	skills     *skills.Graph
	accounts   *finance.Accounts
	colonies   map[contracts.Address]*Colony
	order      []*Colony
	meta       *Colony
	feeInverse uint64
	treasury   contracts.Address

	miningInitialised bool
	miningCycle       uint64

	journal   *ledger.Journal
	scheduler mining.Scheduler
	table     *governance.PolicyTable
	recoverer crypto.Recoverer
	gate      *governance.Gate
	obs       *observability.Provider
	logger    *slog.Logger
}

// Option configures a Network.
type Option func(*Network)

// WithJournal records mutations in j instead of an in-memory journal.
func WithJournal(j *ledger.Journal) Option {
	return func(n *Network) { n.journal = j }
}

// WithScheduler sends mining cycle signals to s.
func WithScheduler(s mining.Scheduler) Option {
	return func(n *Network) { n.scheduler = s }
}

func WithObservability(p *observability.Provider) Option {
	return func(n *Network) { n.obs = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Network) { n.logger = l }
}

// WithPolicyTable replaces the default signer table.
func WithPolicyTable(t *governance.PolicyTable) Option {
	return func(n *Network) { n.table = t }
}

// WithRecoverer replaces the ed25519 signature recoverer.
func WithRecoverer(r crypto.Recoverer) Option {
	return func(n *Network) { n.recoverer = r }
}

// WithFeeInverse sets the initial fee inverse. Zero is ignored.
func WithFeeInverse(v uint64) Option {
	return func(n *Network) {
		if v > 0 {
			n.feeInverse = v
		}
	}
}

// NewNetwork creates a network holding only the global root skill.
func NewNetwork(opts ...Option) *Network {
	n := &Network{
		skills:     skills.NewGraph(),
		accounts:   finance.NewAccounts(),
		colonies:   make(map[contracts.Address]*Colony),
		feeInverse: DefaultFeeInverse,
		treasury:   crypto.DeriveAddress("treasury"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.journal == nil {
		n.journal = ledger.NewMemoryJournal()
	}
	if n.scheduler == nil {
		n.scheduler = mining.NewMemoryScheduler()
	}
	if n.table == nil {
		n.table = governance.MustDefaultPolicyTable()
	}
	if n.recoverer == nil {
		n.recoverer = crypto.NewEd25519Recoverer()
	}
	if n.obs == nil {
		n.obs = observability.Disabled()
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.logger = n.logger.With("component", "colony")
	n.gate = governance.NewGate(n.table, n.recoverer)

	n.skills.AddRoot(true)
	return n
}

// track opens a span for op and returns the function that closes it. The
// closer logs the outcome: Info on success, Debug with the error code on rejection.
func (n *Network) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, done := n.obs.TrackOperation(ctx, op, attrs...)
	return ctx, func(errp *error) {
		err := *errp
		done(err)

		args := make([]any, 0, len(attrs)+2)
		args = append(args, "operation", op)
		for _, kv := range attrs {
			args = append(args, slog.Any(string(kv.Key), kv.Value.AsInterface()))
		}
		if err != nil {
			n.logger.DebugContext(ctx, "operation rejected", append(args, "code", colonyerr.CodeOf(err), "error", err)...)
			return
		}
		n.logger.InfoContext(ctx, "operation applied", args...)
	}
}

// record appends a journal entry. Callers hold the write lock and apply the
// mutation only if record succeeds.
func (n *Network) record(ctx context.Context, kind string, colony, author contracts.Address, data map[string]interface{}) error {
	rec := ledger.Record{Kind: kind, Data: data}
	if !colony.IsZero() {
		rec.Colony = colony.Hex()
	}
	if !author.IsZero() {
		rec.Author = author.Hex()
	}
	if _, err := n.journal.Append(ctx, rec); err != nil {
		return fmt.Errorf("journal %s: %w", kind, err)
	}
	return nil
}

// CreateMetaColony creates the colony that governs global skills and the network
// fee. Its local root skill is followed by the mining skill.
func (n *Network) CreateMetaColony(ctx context.Context, founder contracts.Address, token contracts.TokenInfo) (c *Colony, err error) {
	ctx, end := n.track(ctx, "colony.network.create_meta_colony")
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.meta != nil {
		return nil, colonyerr.New(colonyerr.ErrMetaColonyExists, "meta colony is %s", n.meta.address)
	}
	c, err = n.createColony(ctx, founder, token, true)
	if err != nil {
		return nil, err
	}
	n.meta = c
	return c, nil
}

// CreateColony creates a colony founded by founder.
func (n *Network) CreateColony(ctx context.Context, founder contracts.Address, token contracts.TokenInfo) (c *Colony, err error) {
	ctx, end := n.track(ctx, "colony.network.create_colony")
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.createColony(ctx, founder, token, false)
}

func (n *Network) createColony(ctx context.Context, founder contracts.Address, token contracts.TokenInfo, meta bool) (*Colony, error) {
	if founder.IsZero() {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "colony founder is unset")
	}
	if token.Symbol == "" {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "colony token needs a symbol")
	}
	addr := crypto.DeriveAddress(fmt.Sprintf("colony/%d", len(n.order)+1))

	rootSkill := skills.ID(n.skills.Count() + 1)
	data := map[string]interface{}{
		"founder":    founder.Hex(),
		"meta":       meta,
		"token":      token.Symbol,
		"root_skill": uint64(rootSkill),
	}
	if err := n.record(ctx, KindColonyCreated, addr, founder, data); err != nil {
		return nil, err
	}

	c := newColony(n, addr, founder, token, n.skills.AddRoot(false))
	if meta {
		miningSkill, err := n.skills.Add(c.rootSkill, false)
		if err != nil {
			return nil, err
		}
		c.miningSkill = miningSkill
	}
	n.colonies[addr] = c
	n.order = append(n.order, c)
	return c, nil
}

// Colony returns the colony at addr.
func (n *Network) Colony(addr contracts.Address) (*Colony, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.colonies[addr]
	if !ok {
		return nil, colonyerr.New(colonyerr.ErrColonyNotFound, "no colony at %s", addr)
	}
	return c, nil
}

// MetaColony returns the meta colony, or nil before it exists.
func (n *Network) MetaColony() *Colony {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.meta
}

// Colonies lists every colony in creation order.
func (n *Network) Colonies() []*Colony {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Colony(nil), n.order...)
}

// AddSkill adds a skill under parent on behalf of caller. Global skills may only
// be added by the meta colony. Local skills may only be added by the colony that
// owns the local tree parent belongs to.
func (n *Network) AddSkill(ctx context.Context, caller contracts.Address, parent skills.ID, global bool) (id skills.ID, err error) {
	ctx, end := n.track(ctx, "colony.network.add_skill",
		observability.AttrSkill.Int64(int64(parent)), attribute.Bool("colony.skill.global", global))
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addSkill(ctx, caller, parent, global)
}

func (n *Network) addSkill(ctx context.Context, caller contracts.Address, parent skills.ID, global bool) (skills.ID, error) {
	if global {
		if n.meta == nil || caller != n.meta.address {
			return skills.None, colonyerr.New(colonyerr.ErrForbidden, "only the meta colony adds global skills")
		}
		if err := n.skills.CheckAdd(parent, true); err != nil {
			return skills.None, err
		}
	} else {
		c, ok := n.colonies[caller]
		if !ok {
			return skills.None, colonyerr.New(colonyerr.ErrForbidden, "local skills are added by colonies, %s is not one", caller)
		}
		if err := n.skills.CheckAdd(parent, false); err != nil {
			return skills.None, err
		}
		if n.skills.Root(parent) != c.rootSkill {
			return skills.None, colonyerr.New(colonyerr.ErrForbidden, "skill %d is outside the local tree of %s", parent, caller)
		}
	}

	data := map[string]interface{}{
		"skill":  uint64(n.skills.Count() + 1),
		"parent": uint64(parent),
		"global": global,
	}
	if err := n.record(ctx, KindSkillAdded, caller, contracts.ZeroAddress, data); err != nil {
		return skills.None, err
	}
	return n.skills.Add(parent, global)
}

// SetFeeInverse changes the network fee. Only the meta colony may call it.
func (n *Network) SetFeeInverse(ctx context.Context, caller contracts.Address, v uint64) (err error) {
	ctx, end := n.track(ctx, "colony.network.set_fee_inverse", attribute.Int64("colony.fee_inverse", int64(v)))
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.setFeeInverse(ctx, caller, v)
}

func (n *Network) setFeeInverse(ctx context.Context, caller contracts.Address, v uint64) error {
	if n.meta == nil || caller != n.meta.address {
		return colonyerr.New(colonyerr.ErrUnauthorized, "caller must be the meta colony")
	}
	if v == 0 {
		return colonyerr.New(colonyerr.ErrFeeCannotBeZero, "fee inverse must be positive")
	}
	data := map[string]interface{}{"fee_inverse": v, "previous": n.feeInverse}
	if err := n.record(ctx, KindFeeChanged, caller, contracts.ZeroAddress, data); err != nil {
		return err
	}
	n.feeInverse = v
	return nil
}

// FeeInverse returns the current fee inverse. The fee on a settlement of x is x / FeeInverse().
func (n *Network) FeeInverse() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.feeInverse
}

// InitialiseReputationMining opens the first mining cycle.
func (n *Network) InitialiseReputationMining(ctx context.Context) (err error) {
	ctx, end := n.track(ctx, "colony.network.initialise_mining")
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.miningInitialised {
		return colonyerr.New(colonyerr.ErrMiningAlreadyInitialised, "mining cycle %d is open", n.miningCycle)
	}
	if err := n.scheduler.InitialiseCycle(ctx, 1); err != nil {
		return fmt.Errorf("signal mining cycle 1: %w", err)
	}
	if err := n.record(ctx, KindMiningInitialised, contracts.ZeroAddress, contracts.ZeroAddress, map[string]interface{}{"cycle": 1}); err != nil {
		return err
	}
	n.miningInitialised = true
	n.miningCycle = 1
	return nil
}

// StartNextCycle advances reputation mining by one cycle.
func (n *Network) StartNextCycle(ctx context.Context) (err error) {
	ctx, end := n.track(ctx, "colony.network.advance_mining")
	defer end(&err)

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.miningInitialised {
		return colonyerr.New(colonyerr.ErrMiningNotInitialised, "mining has not been initialised")
	}
	next := n.miningCycle + 1
	if err := n.scheduler.AdvanceCycle(ctx, next); err != nil {
		return fmt.Errorf("signal mining cycle %d: %w", next, err)
	}
	if err := n.record(ctx, KindMiningAdvanced, contracts.ZeroAddress, contracts.ZeroAddress, map[string]interface{}{"cycle": next}); err != nil {
		return err
	}
	n.miningCycle = next
	return nil
}

// MiningCycle returns the open mining cycle, 0 before initialisation.
func (n *Network) MiningCycle() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.miningCycle
}

// Skill returns a copy of the skill with the given id.
func (n *Network) Skill(id skills.ID) (skills.Skill, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.skills.Get(id)
}

func (n *Network) SkillCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.skills.Count()
}

// ParentSkillID returns the index-th ancestor of id, nearest first, or 0.
func (n *Network) ParentSkillID(id skills.ID, index int) skills.ID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.skills.ParentAt(id, index)
}

// ChildSkillID returns the index-th child of id in insertion order, or 0.
func (n *Network) ChildSkillID(id skills.ID, index int) skills.ID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.skills.ChildAt(id, index)
}

// TreasuryAddress is where settlement fees are paid.
func (n *Network) TreasuryAddress() contracts.Address {
	return n.treasury
}

// BalanceOf returns what addr has received from settlements.
func (n *Network) BalanceOf(addr contracts.Address, token contracts.Token) int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.accounts.BalanceOf(addr, token)
}

// Holdings lists every settled balance of addr.
func (n *Network) Holdings(addr contracts.Address) []finance.Money {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.accounts.Holdings(addr)
}

// Journal returns the journal mutations are recorded in.
func (n *Network) Journal() *ledger.Journal {
	return n.journal
}

// PolicyTable returns the signer table task changes are checked against.
func (n *Network) PolicyTable() *governance.PolicyTable {
	return n.table
}
