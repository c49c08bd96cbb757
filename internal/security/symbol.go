// Package security implements the Security arena: tradable instruments are
// created once at subscription and never destroyed during a run (spec §3).
// In keeping with the arena-index model spec §9 mandates in place of the
// original codebase's Security↔Portfolio↔Order cyclic references, Securities
// live in a flat container indexed by core.SymbolId; nothing in this engine
// holds a live pointer to a Security across a goroutine boundary without
// going through the Arena.
package security

import (
	"fmt"

	"github.com/quantrail/corebook/internal/core"
)

// SymbolId is the arena-index type for Securities (spec §9). It is the
// canonical core.SymbolId, not a parallel type, so every component that
// indexes a Security arena and every component that indexes an Order or
// Holding arena share one id space.
type SymbolId = core.SymbolId

// Type tags the kind of tradable instrument (spec §3).
type Type string

const (
	TypeEquity Type = "Equity"
	TypeForex  Type = "Forex"
	TypeCfd    Type = "Cfd"
	TypeOption Type = "Option"
	TypeBase   Type = "Base"
)

// Market tags the venue a symbol trades on.
type Market string

// Symbol is the opaque identity of a tradable instrument: a ticker, a
// security-type tag, and a market tag (spec §3).
type Symbol struct {
	Ticker string
	Type   Type
	Market Market
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s:%s:%s", s.Market, s.Type, s.Ticker)
}

// IsForex reports whether this symbol trades on the Forex market.
func (s Symbol) IsForex() bool {
	return s.Type == TypeForex
}

// BaseQuote splits a 6-character Forex ticker like "EURUSD" into its base
// and quote three-letter currency codes. Returns ok=false for tickers that
// aren't exactly 6 characters.
func (s Symbol) BaseQuote() (base, quote string, ok bool) {
	if len(s.Ticker) != 6 {
		return "", "", false
	}
	return s.Ticker[:3], s.Ticker[3:], true
}
