package core

import "fmt"

// SymbolId indexes the Security arena. The zero value never denotes a live
// security; arenas mint ids starting at 1.
type SymbolId int32

// InvalidSymbolId is the zero value, returned by lookups that miss.
const InvalidSymbolId SymbolId = 0

func (id SymbolId) String() string {
	return fmt.Sprintf("sym#%d", int32(id))
}

// Valid reports whether id was actually minted by an arena.
func (id SymbolId) Valid() bool {
	return id != InvalidSymbolId
}

// OrderId indexes the Order and OrderTicket arenas owned by the
// Transaction Manager. Monotonically increasing, never reused, never
// decremented — see spec §4.9 (ordersCount is the total ever-submitted).
type OrderId int64

// InvalidOrderId is the zero value, returned by lookups that miss.
const InvalidOrderId OrderId = 0

func (id OrderId) String() string {
	return fmt.Sprintf("ord#%d", int64(id))
}

// Valid reports whether id was actually assigned by the Transaction Manager.
func (id OrderId) Valid() bool {
	return id != InvalidOrderId
}
