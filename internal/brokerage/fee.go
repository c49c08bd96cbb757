package brokerage

import (
	"fmt"

	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// FeeModel computes the fee charged for a fill, given the fill quantity
// and price. Concrete variants are resolved by their security.ModelID
// (spec §9's "tagged variants whose dispatch is exhaustive").
type FeeModel interface {
	Fee(fillQty, fillPrice money.Decimal) money.Decimal
}

// FixedFeeModel charges a flat per-order fee regardless of size, keyed to
// security.FeeModelFixed.
type FixedFeeModel struct {
	Amount money.Decimal
}

func (m FixedFeeModel) Fee(_, _ money.Decimal) money.Decimal {
	return m.Amount
}

// PercentageFeeModel charges Rate × notional (fillQty × fillPrice), keyed
// to security.FeeModelPercentage.
type PercentageFeeModel struct {
	Rate money.Decimal
}

func (m PercentageFeeModel) Fee(fillQty, fillPrice money.Decimal) money.Decimal {
	notional := money.Abs(fillQty).Mul(fillPrice)
	return notional.Mul(m.Rate)
}

// FeeRegistry resolves a security.ModelID to a concrete FeeModel instance.
// Exhaustive dispatch (spec §9): an unregistered id is a configuration
// error, not a silent zero-fee fallback.
type FeeRegistry struct {
	models map[security.ModelID]FeeModel
}

// NewFeeRegistry creates a registry seeded with the given model instances.
func NewFeeRegistry(models map[security.ModelID]FeeModel) *FeeRegistry {
	return &FeeRegistry{models: models}
}

// DefaultFeeRegistry returns a registry with a zero fixed fee and a
// zero-rate percentage fee, suitable as a starting configuration that
// callers override per security.
func DefaultFeeRegistry() *FeeRegistry {
	return NewFeeRegistry(map[security.ModelID]FeeModel{
		security.FeeModelFixed:      FixedFeeModel{Amount: money.Zero},
		security.FeeModelPercentage: PercentageFeeModel{Rate: money.Zero},
	})
}

// Resolve looks up id's FeeModel. An unknown id is an error: every
// Security's FeeModel field must name a registered variant.
func (r *FeeRegistry) Resolve(id security.ModelID) (FeeModel, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("brokerage: no fee model registered for %q", id)
	}
	return m, nil
}

// Set installs or replaces the FeeModel for id.
func (r *FeeRegistry) Set(id security.ModelID, model FeeModel) {
	r.models[id] = model
}
