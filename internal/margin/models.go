// Package margin implements the three pluggable margin model variants
// (spec §4.7) and the marginRemaining/margin-call algorithms that sit on
// top of them. Grounded on the teacher's risk/margin checks
// (_examples/newthinker-atlas/internal/broker/risk.go), generalized from
// a single fixed-ratio check into the tagged-variant dispatch spec §9
// requires (Constant, PDT, Null), resolved through a Registry keyed by
// security.ModelID exactly as internal/brokerage.FeeRegistry resolves fee
// models.
package margin

import (
	"fmt"

	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// Direction is the side of a hypothetical order being margin-checked.
type Direction int

const (
	DirectionBuy Direction = iota
	DirectionSell
)

// Model computes initial and maintenance margin ratios for a holding,
// given whether the exchange is currently open (the PDT model's ratios
// depend on it).
type Model interface {
	InitialMarginRatio(exchangeOpen bool) money.Decimal
	MaintenanceMarginRatio(exchangeOpen bool) money.Decimal
}

// ConstantModel is a fixed initial/maintenance ratio, independent of
// exchange hours. Leverage = 1 / maintenance ratio.
type ConstantModel struct {
	InitialRatio     money.Decimal
	MaintenanceRatio money.Decimal
}

func (m ConstantModel) InitialMarginRatio(_ bool) money.Decimal     { return m.InitialRatio }
func (m ConstantModel) MaintenanceMarginRatio(_ bool) money.Decimal { return m.MaintenanceRatio }

// Leverage returns 1/maintenance, the model's implied leverage.
func (m ConstantModel) Leverage() money.Decimal {
	if money.IsZero(m.MaintenanceRatio) {
		return money.Zero
	}
	return money.One.Div(m.MaintenanceRatio)
}

// PDTModel (Pattern Day Trading) applies a correction factor to both
// ratios when the exchange is closed: ratios widen by openLeverage /
// closedLeverage, defaulting to 4x open / 2x closed (spec §4.7).
type PDTModel struct {
	OpenLeverage   money.Decimal
	ClosedLeverage money.Decimal
	Base           ConstantModel
}

// DefaultPDTModel returns a PDTModel with 4x open / 2x closed leverage
// over 25% base initial and maintenance ratios, i.e. effective ratios of
// 25% while the exchange is open and 50% while it is closed.
func DefaultPDTModel() PDTModel {
	return PDTModel{
		OpenLeverage:   money.NewFromInt(4),
		ClosedLeverage: money.NewFromInt(2),
		Base: ConstantModel{
			InitialRatio:     money.NewFromFloat(0.25),
			MaintenanceRatio: money.NewFromFloat(0.25),
		},
	}
}

func (m PDTModel) correction(exchangeOpen bool) money.Decimal {
	if exchangeOpen || money.IsZero(m.ClosedLeverage) {
		return money.One
	}
	return m.OpenLeverage.Div(m.ClosedLeverage)
}

func (m PDTModel) InitialMarginRatio(exchangeOpen bool) money.Decimal {
	return m.Base.InitialRatio.Mul(m.correction(exchangeOpen))
}

func (m PDTModel) MaintenanceMarginRatio(exchangeOpen bool) money.Decimal {
	return m.Base.MaintenanceRatio.Mul(m.correction(exchangeOpen))
}

// NullModel is a fixed-leverage model for instruments (options, and
// similar) whose initial and maintenance margin are identical constants.
type NullModel struct {
	Ratio money.Decimal
}

func (m NullModel) InitialMarginRatio(_ bool) money.Decimal     { return m.Ratio }
func (m NullModel) MaintenanceMarginRatio(_ bool) money.Decimal { return m.Ratio }

// Registry resolves a security.ModelID to a concrete Model instance,
// exhaustive dispatch per spec §9.
type Registry struct {
	models map[security.ModelID]Model
}

// NewRegistry creates a registry seeded with the given model instances.
func NewRegistry(models map[security.ModelID]Model) *Registry {
	return &Registry{models: models}
}

// DefaultRegistry returns a registry with a standard 50% constant ratio,
// the default PDT split, and a 100% null model.
func DefaultRegistry() *Registry {
	return NewRegistry(map[security.ModelID]Model{
		security.MarginModelConstant: ConstantModel{
			InitialRatio:     money.NewFromFloat(0.5),
			MaintenanceRatio: money.NewFromFloat(0.25),
		},
		security.MarginModelPDT:  DefaultPDTModel(),
		security.MarginModelNull: NullModel{Ratio: money.One},
	})
}

// Resolve looks up id's Model. An unknown id is an error.
func (r *Registry) Resolve(id security.ModelID) (Model, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("margin: no model registered for %q", id)
	}
	return m, nil
}
