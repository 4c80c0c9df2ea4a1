package finance

import (
	"sort"
	"sync"

	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Credit is one payment into an account.
type Credit struct {
	To     contracts.Address
	Token  contracts.Token
	Amount int64
}

// Sink receives funds leaving a colony. Credit applies all credits or none.
type Sink interface {
	Credit(credits ...Credit) error
}

// Accounts holds the token balances of addresses outside any colony: payees and
// the network treasury. It is safe for concurrent use.
type Accounts struct {
	mu       sync.RWMutex
	balances map[contracts.Address]map[contracts.Token]int64
}

func NewAccounts() *Accounts {
	return &Accounts{balances: make(map[contracts.Address]map[contracts.Token]int64)}
}

type accountKey struct {
	addr  contracts.Address
	token contracts.Token
}

// Credit adds every credit to its account. If any resulting balance would
// overflow, nothing is credited.
func (a *Accounts) Credit(credits ...Credit) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, err := a.project(credits)
	if err != nil {
		return err
	}
	for k, amount := range next {
		b, ok := a.balances[k.addr]
		if !ok {
			b = make(map[contracts.Token]int64)
			a.balances[k.addr] = b
		}
		b[k.token] = amount
	}
	return nil
}

// CheckCredit reports whether Credit would succeed.
func (a *Accounts) CheckCredit(credits ...Credit) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, err := a.project(credits)
	return err
}

// project returns the balances the credits would produce. Credits to the same
// account accumulate.
func (a *Accounts) project(credits []Credit) (map[accountKey]int64, error) {
	next := make(map[accountKey]int64, len(credits))
	for _, c := range credits {
		if c.Amount == 0 {
			continue
		}
		if err := checkAmount(c.Amount); err != nil {
			return nil, err
		}
		k := accountKey{addr: c.To, token: c.Token}
		cur, ok := next[k]
		if !ok {
			cur = a.balances[c.To][c.Token]
		}
		sum, err := addAmounts(cur, c.Amount)
		if err != nil {
			return nil, err
		}
		next[k] = sum
	}
	return next, nil
}

// BalanceOf returns the balance of addr in token.
func (a *Accounts) BalanceOf(addr contracts.Address, token contracts.Token) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[addr][token]
}

// Holdings lists every non-zero balance of addr, ordered by token.
func (a *Accounts) Holdings(addr contracts.Address) []Money {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Money, 0, len(a.balances[addr]))
	for token, amount := range a.balances[addr] {
		if amount != 0 {
			out = append(out, NewMoney(amount, token))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
