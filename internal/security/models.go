package security

// ModelID names a pluggable model variant attached to a Security. Spec §9
// models FillModel, FeeModel, SlippageModel, MarginModel, SettlementModel,
// and VolatilityModel as "tagged variants whose dispatch is exhaustive;
// strategies select a variant by identifier at initialization." The
// concrete model implementations live in the packages that consume them
// (internal/margin, internal/settlement) to avoid a security -> margin ->
// portfolio -> security import cycle; Security itself only carries the
// identifier used to look a model instance up in the owning registry.
type ModelID string

const (
	// Margin model identifiers, resolved by internal/margin.Registry.
	MarginModelConstant ModelID = "margin.constant"
	MarginModelPDT      ModelID = "margin.pattern_day_trading"
	MarginModelNull     ModelID = "margin.null"

	// Settlement model identifiers, resolved by internal/settlement.Registry.
	SettlementModelImmediate ModelID = "settlement.immediate"
	SettlementModelDelayed   ModelID = "settlement.delayed"

	// Fee model identifiers, resolved by internal/brokerage.FeeRegistry.
	FeeModelFixed      ModelID = "fee.fixed"
	FeeModelPercentage ModelID = "fee.percentage"

	// Fill/slippage/volatility model identifiers are carried for
	// completeness of the tagged-variant surface named in spec §9; the
	// core's scope (order lifecycle, not simulation) does not need a
	// concrete implementation beyond the identity/no-slippage default.
	FillModelImmediate     ModelID = "fill.immediate"
	SlippageModelNone      ModelID = "slippage.none"
	VolatilityModelHistory ModelID = "volatility.historical"
)
