package finance

import (
	"fmt"
	"math"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Money is an amount of one token in minor units. Integer math only.
type Money struct {
	Amount int64           `json:"amount"`
	Token  contracts.Token `json:"token"`
}

// NewMoney creates a new Money instance.
func NewMoney(amount int64, token contracts.Token) Money {
	return Money{Amount: amount, Token: token}
}

// Add adds two amounts of the same token. Returns error on token mismatch or overflow.
func (m Money) Add(other Money) (Money, error) {
	if m.Token != other.Token {
		return Money{}, fmt.Errorf("token mismatch: %s vs %s", m.Token, other.Token)
	}
	sum, err := addAmounts(m.Amount, other.Amount)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: sum, Token: m.Token}, nil
}

// Sub subtracts other from m. Returns error on token mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if m.Token != other.Token {
		return Money{}, fmt.Errorf("token mismatch: %s vs %s", m.Token, other.Token)
	}
	return Money{Amount: m.Amount - other.Amount, Token: m.Token}, nil
}

// IsZero returns true if the amount is 0.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsPositive returns true if the amount is > 0.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Token)
}

func addAmounts(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, colonyerr.New(colonyerr.ErrBalanceOverflow, "%d + %d overflows", a, b)
	}
	return a + b, nil
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return colonyerr.New(colonyerr.ErrInvalidAmount, "amount must be positive, got %d", amount)
	}
	return nil
}

// SplitFee divides amount into the payee's share and the network fee.
// fee = amount / feeInverse, so amounts below feeInverse carry no fee.
func SplitFee(amount int64, feeInverse uint64) (payout, fee int64) {
	if feeInverse == 0 || amount <= 0 {
		return amount, 0
	}
	fee = int64(uint64(amount) / feeInverse)
	return amount - fee, fee
}
