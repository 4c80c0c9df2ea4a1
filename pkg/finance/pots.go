package finance

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// PotID identifies a funding pot within one colony. The pool is always pot 1.
type PotID uint64

// PoolPot is the pot owned by the root domain. Reservations are drawn against it.
const PoolPot PotID = 1

type OwnerKind string

const (
	OwnerDomain OwnerKind = "DOMAIN"
	OwnerTask   OwnerKind = "TASK"
)

// Owner is the single entity a pot belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   uint64    `json:"id"`
}

func DomainOwner(id uint64) Owner { return Owner{Kind: OwnerDomain, ID: id} }
func TaskOwner(id uint64) Owner   { return Owner{Kind: OwnerTask, ID: id} }

// Pot is a read-only view of a funding pot.
type Pot struct {
	ID       PotID                     `json:"id"`
	Owner    Owner                     `json:"owner"`
	Balances map[contracts.Token]int64 `json:"balances"`
	Reserved map[contracts.Token]int64 `json:"reserved,omitempty"`
}

type pot struct {
	id       PotID
	owner    Owner
	balances map[contracts.Token]int64
}

// Settlement records funds paid out of a task pot.
type Settlement struct {
	ID              string            `json:"id"`
	Pot             PotID             `json:"pot"`
	Token           contracts.Token   `json:"token"`
	Amount          int64             `json:"amount"`
	Payout          int64             `json:"payout"`
	Fee             int64             `json:"fee"`
	FromReservation int64             `json:"from_reservation"`
	Payee           contracts.Address `json:"payee"`
	Treasury        contracts.Address `json:"treasury"`
}

// SettleRequest describes a settlement. Amount 0 settles everything available.
type SettleRequest struct {
	Pot        PotID
	Token      contracts.Token
	Amount     int64
	Payee      contracts.Address
	Treasury   contracts.Address
	FeeInverse uint64
}

// Ledger tracks the pots of one colony and the reservations earmarked against the
// pool for tasks. Invariant: for every token, the total reserved never exceeds the
// pool balance. Every method validates completely before mutating, so a failed
// call leaves the ledger unchanged. It is safe for concurrent use.
type Ledger struct {
	mu            sync.RWMutex
	pots          []*pot // pots[i] has ID i+1
	reservations  map[PotID]map[contracts.Token]int64
	reservedTotal map[contracts.Token]int64
}

// NewLedger creates a ledger whose first pot, the pool, belongs to the root domain.
func NewLedger(rootDomain uint64) *Ledger {
	l := &Ledger{
		reservations:  make(map[PotID]map[contracts.Token]int64),
		reservedTotal: make(map[contracts.Token]int64),
	}
	l.open(DomainOwner(rootDomain))
	return l
}

// OpenPot creates an empty pot for owner.
func (l *Ledger) OpenPot(owner Owner) PotID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open(owner)
}

func (l *Ledger) open(owner Owner) PotID {
	id := PotID(len(l.pots) + 1)
	l.pots = append(l.pots, &pot{id: id, owner: owner, balances: make(map[contracts.Token]int64)})
	return id
}

func (l *Ledger) lookup(id PotID) (*pot, error) {
	if id == 0 || uint64(id) > uint64(len(l.pots)) {
		return nil, colonyerr.New(colonyerr.ErrPotNotFound, "pot %d does not exist", id)
	}
	return l.pots[id-1], nil
}

func (l *Ledger) taskPot(id PotID) (*pot, error) {
	p, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	if p.owner.Kind != OwnerTask {
		return nil, colonyerr.New(colonyerr.ErrInvalidArgument, "pot %d is not owned by a task", id)
	}
	return p, nil
}

// unreserved is the part of the pool balance not earmarked for any task.
func (l *Ledger) unreserved(token contracts.Token) int64 {
	return l.pots[PoolPot-1].balances[token] - l.reservedTotal[token]
}

// held is what a pot could pay out for token: its own balance plus any
// reservation against the pool.
func (l *Ledger) held(p *pot, token contracts.Token) (int64, error) {
	return addAmounts(p.balances[token], l.reservations[p.id][token])
}

// checkInflow rejects an inflow that would leave a pot holding more than an
// int64 can count.
func (l *Ledger) checkInflow(p *pot, token contracts.Token, amount int64) error {
	have, err := l.held(p, token)
	if err != nil {
		return err
	}
	if _, err := addAmounts(have, amount); err != nil {
		return colonyerr.Wrap(colonyerr.ErrBalanceOverflow, err, "pot %d cannot take %d more %s", p.id, amount, token)
	}
	return nil
}

func (l *Ledger) spendable(p *pot, token contracts.Token) int64 {
	if p.id == PoolPot {
		return l.unreserved(token)
	}
	return p.balances[token]
}

// Contribute records an external inflow into a pot.
func (l *Ledger) Contribute(id PotID, token contracts.Token, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkContribute(id, token, amount); err != nil {
		return err
	}
	l.pots[id-1].balances[token] += amount
	return nil
}

// CheckContribute reports whether Contribute would succeed.
func (l *Ledger) CheckContribute(id PotID, token contracts.Token, amount int64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkContribute(id, token, amount)
}

func (l *Ledger) checkContribute(id PotID, token contracts.Token, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := l.lookup(id)
	if err != nil {
		return err
	}
	return l.checkInflow(p, token, amount)
}

// Transfer moves spendable funds between two pots. Funds leave a task pot only
// through Settle, and reserved pool funds cannot be moved.
func (l *Ledger) Transfer(from, to PotID, token contracts.Token, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkTransfer(from, to, token, amount); err != nil {
		return err
	}
	l.pots[from-1].balances[token] -= amount
	l.pots[to-1].balances[token] += amount
	return nil
}

// CheckTransfer reports whether Transfer would succeed.
func (l *Ledger) CheckTransfer(from, to PotID, token contracts.Token, amount int64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkTransfer(from, to, token, amount)
}

func (l *Ledger) checkTransfer(from, to PotID, token contracts.Token, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	src, err := l.lookup(from)
	if err != nil {
		return err
	}
	dst, err := l.lookup(to)
	if err != nil {
		return err
	}
	if src.id == dst.id {
		return colonyerr.New(colonyerr.ErrInvalidArgument, "cannot transfer pot %d to itself", from)
	}
	if src.owner.Kind == OwnerTask {
		return colonyerr.New(colonyerr.ErrInvalidArgument, "funds leave task pot %d only by settlement", from)
	}
	if have := l.spendable(src, token); amount > have {
		return colonyerr.New(colonyerr.ErrInsufficientPool,
			"pot %d has %d %s spendable, %d requested", from, have, token, amount)
	}
	return l.checkInflow(dst, token, amount)
}

// Reserve earmarks amount of the pool's unreserved balance for the task owning taskPot.
func (l *Ledger) Reserve(taskPot PotID, token contracts.Token, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkReserve(taskPot, token, amount); err != nil {
		return err
	}
	r, ok := l.reservations[taskPot]
	if !ok {
		r = make(map[contracts.Token]int64)
		l.reservations[taskPot] = r
	}
	r[token] += amount
	l.reservedTotal[token] += amount
	return nil
}

// CheckReserve reports whether Reserve would succeed.
func (l *Ledger) CheckReserve(taskPot PotID, token contracts.Token, amount int64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkReserve(taskPot, token, amount)
}

func (l *Ledger) checkReserve(taskPot PotID, token contracts.Token, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := l.taskPot(taskPot)
	if err != nil {
		return err
	}
	if free := l.unreserved(token); amount > free {
		return colonyerr.New(colonyerr.ErrInsufficientPool,
			"pool has %d %s unreserved, %d requested", free, token, amount)
	}
	return l.checkInflow(p, token, amount)
}

// Release returns every reservation held for taskPot to the pool.
func (l *Ledger) Release(taskPot PotID) map[contracts.Token]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	released := l.reservations[taskPot]
	for token, amount := range released {
		l.reservedTotal[token] -= amount
	}
	delete(l.reservations, taskPot)
	return released
}

// Quote returns what Settle would pay for the request without changing the ledger.
func (l *Ledger) Quote(req SettleRequest) (Settlement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.quote(req)
}

func (l *Ledger) quote(req SettleRequest) (Settlement, error) {
	if req.FeeInverse == 0 {
		return Settlement{}, colonyerr.New(colonyerr.ErrFeeCannotBeZero, "settlement needs a fee inverse")
	}
	p, err := l.taskPot(req.Pot)
	if err != nil {
		return Settlement{}, err
	}
	reserved := l.reservations[p.id][req.Token]
	available, err := l.held(p, req.Token)
	if err != nil {
		return Settlement{}, err
	}
	if available == 0 {
		return Settlement{}, colonyerr.New(colonyerr.ErrNothingToSettle, "pot %d holds no %s", p.id, req.Token)
	}
	amount := req.Amount
	switch {
	case amount == 0:
		amount = available
	case amount < 0 || amount > available:
		return Settlement{}, colonyerr.New(colonyerr.ErrInvalidAmount,
			"cannot settle %d %s from pot %d holding %d", amount, req.Token, p.id, available)
	}
	payout, fee := SplitFee(amount, req.FeeInverse)
	return Settlement{
		Pot:             p.id,
		Token:           req.Token,
		Amount:          amount,
		Payout:          payout,
		Fee:             fee,
		FromReservation: min(reserved, amount),
		Payee:           req.Payee,
		Treasury:        req.Treasury,
	}, nil
}

// Credits returns the payments the settlement makes.
func (s Settlement) Credits() []Credit {
	return []Credit{
		{To: s.Payee, Token: s.Token, Amount: s.Payout},
		{To: s.Treasury, Token: s.Token, Amount: s.Fee},
	}
}

// Settle pays funds out of a task pot: amount - fee to the payee and the fee to the
// treasury. Reserved pool funds are drawn first. Any reservation left for the token
// afterwards is returned to the pool. If the sink refuses the credits the ledger
// is unchanged.
func (l *Ledger) Settle(req SettleRequest, sink Sink) (Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.quote(req)
	if err != nil {
		return Settlement{}, err
	}
	if err := sink.Credit(s.Credits()...); err != nil {
		return Settlement{}, err
	}
	s.ID = uuid.NewString()

	reserved := l.reservations[s.Pot][s.Token]
	l.pots[PoolPot-1].balances[s.Token] -= s.FromReservation
	l.reservedTotal[s.Token] -= reserved
	if r := l.reservations[s.Pot]; r != nil {
		delete(r, s.Token)
		if len(r) == 0 {
			delete(l.reservations, s.Pot)
		}
	}
	l.pots[s.Pot-1].balances[s.Token] -= s.Amount - s.FromReservation
	return s, nil
}

// Balance returns the direct balance of a pot. Unknown pots hold nothing.
func (l *Ledger) Balance(id PotID, token contracts.Token) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup(id)
	if err != nil {
		return 0
	}
	return p.balances[token]
}

// Available returns what a task pot could settle for token: its own balance plus
// its reservation against the pool. Inflows that would push the sum past
// math.MaxInt64 are rejected, so it always fits.
func (l *Ledger) Available(taskPot PotID, token contracts.Token) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup(taskPot)
	if err != nil {
		return 0
	}
	have, err := l.held(p, token)
	if err != nil {
		return math.MaxInt64
	}
	return have
}

// Pool returns the pool balance for token, reserved funds included.
func (l *Ledger) Pool(token contracts.Token) int64 {
	return l.Balance(PoolPot, token)
}

// Reserved returns the total reserved against the pool for token.
func (l *Ledger) Reserved(token contracts.Token) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reservedTotal[token]
}

// ReservedFor returns the amount of token reserved for taskPot.
func (l *Ledger) ReservedFor(taskPot PotID, token contracts.Token) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reservations[taskPot][token]
}

// Unreserved returns the pool balance not earmarked for any task.
func (l *Ledger) Unreserved(token contracts.Token) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unreserved(token)
}

// Tokens lists, in order, every token a task pot could settle.
func (l *Ledger) Tokens(taskPot PotID) []contracts.Token {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup(taskPot)
	if err != nil {
		return nil
	}
	seen := make(map[contracts.Token]struct{})
	for token, amount := range p.balances {
		if amount > 0 {
			seen[token] = struct{}{}
		}
	}
	for token, amount := range l.reservations[taskPot] {
		if amount > 0 {
			seen[token] = struct{}{}
		}
	}
	out := make([]contracts.Token, 0, len(seen))
	for token := range seen {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pot returns a snapshot of a pot.
func (l *Ledger) Pot(id PotID) (Pot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup(id)
	if err != nil {
		return Pot{}, false
	}
	view := Pot{ID: p.id, Owner: p.owner, Balances: make(map[contracts.Token]int64, len(p.balances))}
	for token, amount := range p.balances {
		view.Balances[token] = amount
	}
	if r := l.reservations[id]; len(r) > 0 {
		view.Reserved = make(map[contracts.Token]int64, len(r))
		for token, amount := range r {
			view.Reserved[token] = amount
		}
	}
	return view, true
}

// PotCount returns the number of pots opened so far.
func (l *Ledger) PotCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pots)
}

// CheckInvariant verifies the accounting invariants of the ledger.
func (l *Ledger) CheckInvariant() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sums := make(map[contracts.Token]int64)
	for potID, r := range l.reservations {
		for token, amount := range r {
			if amount < 0 {
				return fmt.Errorf("pot %d holds negative reservation %d %s", potID, amount, token)
			}
			sums[token] += amount
		}
	}
	for token, total := range l.reservedTotal {
		if sums[token] != total {
			return fmt.Errorf("reserved total %d %s does not match per-task sum %d", total, token, sums[token])
		}
		if pool := l.pots[PoolPot-1].balances[token]; total > pool {
			return fmt.Errorf("reserved %d %s exceeds pool %d", total, token, pool)
		}
	}
	for _, p := range l.pots {
		for token, amount := range p.balances {
			if amount < 0 {
				return fmt.Errorf("pot %d holds negative balance %d %s", p.id, amount, token)
			}
		}
		for token := range l.reservations[p.id] {
			if _, err := l.held(p, token); err != nil {
				return fmt.Errorf("pot %d: %w", p.id, err)
			}
		}
	}
	return nil
}
