package security

import "github.com/quantrail/corebook/internal/money"

// Properties holds the static lot/contract properties of a symbol
// (spec §3: "symbol properties (lot size, contract multiplier, pip size)").
type Properties struct {
	// LotSize is the smallest trading unit for the symbol.
	LotSize money.Decimal
	// ContractMultiplier scales quantity to notional value (e.g. futures).
	ContractMultiplier money.Decimal
	// PipSize is the minimum meaningful price increment for Forex symbols.
	PipSize money.Decimal
}

// DefaultEquityProperties returns the properties typical of a cash equity:
// one-share lots, unit contract multiplier, no pip concept.
func DefaultEquityProperties() Properties {
	return Properties{
		LotSize:            money.One,
		ContractMultiplier: money.One,
		PipSize:            money.Zero,
	}
}

// DefaultForexProperties returns the properties typical of a spot Forex
// pair: a 1,000-unit micro-lot and a 0.0001 pip size.
func DefaultForexProperties() Properties {
	return Properties{
		LotSize:            money.NewFromInt(1000),
		ContractMultiplier: money.One,
		PipSize:            money.NewFromFloat(0.0001),
	}
}
