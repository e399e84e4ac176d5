package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a registered participant on the venue. Balance
// and BuyingPower move together on every fill: buys debit gross+fees
// from both, sells credit gross-fees to both.
type Account struct {
	AccountID   string
	Balance     decimal.Decimal
	BuyingPower decimal.Decimal
	CreatedAt   time.Time
	Mu          sync.Mutex // per-account lock for balance mutations
}

// Debit removes the given amount from both balance and buying power.
// Post-fill buying power may legitimately go below what the risk check
// assumed, because market orders fill with slippage.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
	a.BuyingPower = a.BuyingPower.Sub(amount)
}

// Credit adds the given amount to both balance and buying power.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.BuyingPower = a.BuyingPower.Add(amount)
}

// Snapshot returns a copy of the account's monetary fields. The caller
// must hold Mu or otherwise guarantee no concurrent mutation.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		AccountID:   a.AccountID,
		Balance:     a.Balance,
		BuyingPower: a.BuyingPower,
		CreatedAt:   a.CreatedAt,
	}
}

// AccountSnapshot is an immutable copy of an account's state, safe to
// hand to callers and notification payloads.
type AccountSnapshot struct {
	AccountID   string
	Balance     decimal.Decimal
	BuyingPower decimal.Decimal
	CreatedAt   time.Time
}
