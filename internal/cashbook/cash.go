// Package cashbook implements the CashBook: per-currency balances, cross
// rates against the account currency, and the forex/cfd subscription
// bookkeeping needed to keep those rates fresh (spec §4.6). Grounded on
// the teacher's internal/broker position/account bookkeeping
// (_examples/newthinker-atlas/internal/broker/position.go), generalized
// from a single-account-currency ledger to a multi-currency one with
// explicit cross-rate tracking.
package cashbook

import (
	"fmt"
	"sync"

	"github.com/quantrail/corebook/internal/money"
)

// Cash is one currency's balance and its rate against the account
// currency (spec §3 "CashBook").
type Cash struct {
	Currency string
	Amount   money.Decimal
	Rate     money.Decimal // against account currency; the account currency's own entry is always 1
	// Inverted records whether Rate updates arrive as price(BASEquote) and
	// must be divided rather than multiplied. Nothing in this package sets
	// it: EnsureCurrencyDataFeed reports inversion through
	// FeedResult.Inverted, and ApplyRateUpdate reads that flag instead.
	Inverted bool
}

// ErrAccountCurrencyRateFixed is returned when code attempts to change the
// account currency's rate away from 1.
var ErrAccountCurrencyRateFixed = fmt.Errorf("cashbook: account currency rate is fixed at 1")

// CashBook is a mapping from currency to Cash. Exactly one entry exists
// for the account currency, with rate fixed at 1 (spec §3, invariant
// checked in TESTABLE PROPERTIES §8).
type CashBook struct {
	mu              sync.RWMutex
	accountCurrency string
	entries         map[string]*Cash
}

// New creates a CashBook seeded with the account currency at rate 1 and
// zero balance.
func New(accountCurrency string) *CashBook {
	cb := &CashBook{
		accountCurrency: accountCurrency,
		entries:         make(map[string]*Cash),
	}
	cb.entries[accountCurrency] = &Cash{Currency: accountCurrency, Amount: money.Zero, Rate: money.One}
	return cb
}

// AccountCurrency returns the book's fixed account currency.
func (cb *CashBook) AccountCurrency() string {
	return cb.accountCurrency
}

// Get returns a copy of currency's Cash entry, or false if no entry
// exists yet.
func (cb *CashBook) Get(currency string) (Cash, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	c, ok := cb.entries[currency]
	if !ok {
		return Cash{}, false
	}
	return *c, true
}

// Ensure creates a zero-balance, zero-rate entry for currency if one does
// not already exist, returning the (possibly pre-existing) entry.
func (cb *CashBook) Ensure(currency string) Cash {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	c, ok := cb.entries[currency]
	if !ok {
		c = &Cash{Currency: currency, Amount: money.Zero, Rate: money.Zero}
		cb.entries[currency] = c
	}
	return *c
}

// SetRate updates currency's cross rate against the account currency. The
// account currency's own rate can never be changed from 1 (spec §3).
func (cb *CashBook) SetRate(currency string, rate money.Decimal) error {
	if currency == cb.accountCurrency {
		if !rate.Equal(money.One) {
			return ErrAccountCurrencyRateFixed
		}
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	c, ok := cb.entries[currency]
	if !ok {
		c = &Cash{Currency: currency}
		cb.entries[currency] = c
	}
	c.Rate = rate
	return nil
}

// AddAmount adds delta (signed) to currency's balance, creating the entry
// (at rate 0, pending a data feed) if it does not yet exist. Per spec §5,
// this is the CashBook's per-currency atomic balance update lock.
func (cb *CashBook) AddAmount(currency string, delta money.Decimal) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	c, ok := cb.entries[currency]
	if !ok {
		c = &Cash{Currency: currency, Rate: money.Zero}
		cb.entries[currency] = c
	}
	c.Amount = c.Amount.Add(delta)
}

// Convert converts amount from src to dst as amount * rate(src) /
// rate(dst): both rates are recorded against the account currency, so
// dividing by the destination rate undoes that currency's own
// conversion-to-account-currency factor rather than applying it twice.
// This keeps convert(x, A, B) then convert(result, B, A) exact for any
// pair of currencies, not just when one side is the account currency.
func (cb *CashBook) Convert(amount money.Decimal, src, dst string) (money.Decimal, error) {
	if src == dst {
		return amount, nil
	}
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	srcEntry, ok := cb.entries[src]
	if !ok || money.IsZero(srcEntry.Rate) {
		return money.Zero, fmt.Errorf("cashbook: no usable rate for source currency %q", src)
	}
	dstEntry, ok := cb.entries[dst]
	if !ok || money.IsZero(dstEntry.Rate) {
		return money.Zero, fmt.Errorf("cashbook: no usable rate for destination currency %q", dst)
	}

	return amount.Mul(srcEntry.Rate).Div(dstEntry.Rate), nil
}

// TotalInAccountCurrency sums every entry's balance converted to the
// account currency, used by the portfolio-value invariant (spec §8).
func (cb *CashBook) TotalInAccountCurrency() money.Decimal {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	total := money.Zero
	for _, c := range cb.entries {
		if money.IsZero(c.Rate) {
			continue
		}
		total = total.Add(c.Amount.Mul(c.Rate))
	}
	return total
}

// Currencies returns every currency with an entry in the book.
func (cb *CashBook) Currencies() []string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	out := make([]string, 0, len(cb.entries))
	for cur := range cb.entries {
		out = append(out, cur)
	}
	return out
}
