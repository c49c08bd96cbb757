package security

import (
	"sync"

	"github.com/quantrail/corebook/internal/money"
)

// Security is a tradable instrument (spec §3). Created once at
// subscription; never destroyed during a run. All fields that change at
// runtime (Price, Tradable, HasData) are guarded by the owning Arena's
// lock — callers never hold a bare *Security across a blocking call.
type Security struct {
	Symbol Symbol

	Price          money.Decimal
	QuoteCurrency  string // three-letter currency code
	Properties     Properties
	Tradable       bool
	HasData        bool
	ExchangeHours  Hours
	// DailyResolutionOnly reports whether every data subscription for this
	// symbol is at daily resolution, the condition the Order Router uses
	// to decide whether a plain market order must be rewritten as
	// MarketOnOpen while the exchange is closed (spec §4.1).
	DailyResolutionOnly bool

	FeeModel        ModelID
	MarginModel     ModelID
	SettlementModel ModelID
	FillModel       ModelID
}

// Arena is the flat, index-addressed container of all subscribed
// Securities. It replaces the original codebase's cyclic Security <->
// Portfolio references (spec §9): callers look a Security up by
// core.SymbolId and never retain the pointer past the call that produced
// it.
type Arena struct {
	mu    sync.RWMutex
	bySym map[Symbol]idEntry
	byID  []*Security // index 0 is always nil; ids start at 1
}

type idEntry struct {
	id SymbolId
}

// NewArena creates an empty Security arena.
func NewArena() *Arena {
	return &Arena{
		bySym: make(map[Symbol]idEntry),
		byID:  make([]*Security, 1),
	}
}

// Subscribe registers sec and returns its assigned SymbolId. Re-subscribing
// an already-known Symbol returns the existing id and leaves the stored
// Security untouched (the original record of record, mutated via Update*,
// is what every other component references).
func (a *Arena) Subscribe(sec Security) SymbolId {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.bySym[sec.Symbol]; ok {
		return e.id
	}

	id := SymbolId(len(a.byID))
	a.byID = append(a.byID, &sec)
	a.bySym[sec.Symbol] = idEntry{id: id}
	return id
}

// Lookup resolves a Symbol to its SymbolId.
func (a *Arena) Lookup(sym Symbol) (SymbolId, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.bySym[sym]
	return e.id, ok
}

// Get returns a copy of the Security at id. The bool is false for an
// unknown or zero id.
func (a *Arena) Get(id SymbolId) (Security, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(a.byID) || a.byID[id] == nil {
		return Security{}, false
	}
	return *a.byID[id], true
}

// UpdatePrice sets the current price for id. No-op for an unknown id.
func (a *Arena) UpdatePrice(id SymbolId, price money.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s := a.at(id); s != nil {
		s.Price = price
	}
}

// UpdateTradable sets the tradability flag for id.
func (a *Arena) UpdateTradable(id SymbolId, tradable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s := a.at(id); s != nil {
		s.Tradable = tradable
	}
}

// UpdateHasData sets the data-presence flag for id.
func (a *Arena) UpdateHasData(id SymbolId, hasData bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s := a.at(id); s != nil {
		s.HasData = hasData
	}
}

// Symbols returns every SymbolId currently subscribed, in assignment order.
func (a *Arena) Symbols() []SymbolId {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]SymbolId, 0, len(a.byID)-1)
	for i := 1; i < len(a.byID); i++ {
		if a.byID[i] != nil {
			ids = append(ids, SymbolId(i))
		}
	}
	return ids
}

// at returns the internal pointer for id; caller must hold a.mu.
func (a *Arena) at(id SymbolId) *Security {
	if int(id) <= 0 || int(id) >= len(a.byID) {
		return nil
	}
	return a.byID[id]
}
