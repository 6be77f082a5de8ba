package token

// FieldKey names one merged token attribute. Keys double as JSON keys in
// emitted reports, so they stay snake_case.
type FieldKey string

const (
	// Structural fields readable straight from the ledger.
	FieldName        FieldKey = "name"
	FieldSymbol      FieldKey = "symbol"
	FieldDecimals    FieldKey = "decimals"
	FieldTotalSupply FieldKey = "total_supply"

	// Market / liquidity fields.
	FieldPriceUSD        FieldKey = "price_usd"
	FieldPriceChange24h  FieldKey = "price_change_24h"
	FieldVolume24h       FieldKey = "volume_24h"
	FieldMarketCap       FieldKey = "market_cap"
	FieldFDV             FieldKey = "fdv"
	FieldLiquidityUSD    FieldKey = "liquidity_usd"
	FieldLiquidityLocked FieldKey = "liquidity_locked"
	FieldLockPlatform    FieldKey = "liquidity_lock_platform"
	FieldTokenAgeDays    FieldKey = "token_age_days"

	// Security / tax fields.
	FieldBuyTax          FieldKey = "buy_tax"
	FieldSellTax         FieldKey = "sell_tax"
	FieldHoneypot        FieldKey = "is_honeypot"
	FieldTradingDisabled FieldKey = "trading_disabled"
	FieldMintable        FieldKey = "is_mintable"
	FieldPausable        FieldKey = "is_pausable"
	FieldBlacklist       FieldKey = "has_blacklist"
	FieldProxyContract   FieldKey = "is_proxy"
	FieldHolderCount     FieldKey = "holder_count"
	FieldTopHoldersRatio FieldKey = "top_holders_ratio"
	FieldContractClogPct FieldKey = "contract_holding_pct"
	FieldBurnPct         FieldKey = "burn_percentage"

	// Verification / deployer fields.
	FieldVerified         FieldKey = "is_verified"
	FieldCreatorAddress   FieldKey = "creator_address"
	FieldCreatorPct       FieldKey = "creator_holding_pct"
	FieldDeployerCreation FieldKey = "deployer_contracts_created"
)

// FieldCategory groups keys for merge precedence.
type FieldCategory string

const (
	CategoryStructural   FieldCategory = "structural"
	CategoryMarket       FieldCategory = "market"
	CategorySecurity     FieldCategory = "security"
	CategoryVerification FieldCategory = "verification"
)

var fieldCategories = map[FieldKey]FieldCategory{
	FieldName:        CategoryStructural,
	FieldSymbol:      CategoryStructural,
	FieldDecimals:    CategoryStructural,
	FieldTotalSupply: CategoryStructural,

	FieldPriceUSD:        CategoryMarket,
	FieldPriceChange24h:  CategoryMarket,
	FieldVolume24h:       CategoryMarket,
	FieldMarketCap:       CategoryMarket,
	FieldFDV:             CategoryMarket,
	FieldLiquidityUSD:    CategoryMarket,
	FieldLiquidityLocked: CategoryMarket,
	FieldLockPlatform:    CategoryMarket,
	FieldTokenAgeDays:    CategoryMarket,

	FieldBuyTax:          CategorySecurity,
	FieldSellTax:         CategorySecurity,
	FieldHoneypot:        CategorySecurity,
	FieldTradingDisabled: CategorySecurity,
	FieldMintable:        CategorySecurity,
	FieldPausable:        CategorySecurity,
	FieldBlacklist:       CategorySecurity,
	FieldProxyContract:   CategorySecurity,
	FieldHolderCount:     CategorySecurity,
	FieldTopHoldersRatio: CategorySecurity,
	FieldContractClogPct: CategorySecurity,
	FieldBurnPct:         CategorySecurity,

	FieldVerified:         CategoryVerification,
	FieldCreatorAddress:   CategoryVerification,
	FieldCreatorPct:       CategoryVerification,
	FieldDeployerCreation: CategoryVerification,
}

// CategoryOf returns the merge category of a key. Unknown keys merge as
// structural so a new provider field still gets deterministic precedence.
func CategoryOf(key FieldKey) FieldCategory {
	if c, ok := fieldCategories[key]; ok {
		return c
	}
	return CategoryStructural
}

// RequiredFields is the denominator of the completeness ratio.
func RequiredFields() []FieldKey {
	return []FieldKey{
		FieldName,
		FieldSymbol,
		FieldDecimals,
		FieldTotalSupply,
		FieldPriceUSD,
		FieldLiquidityUSD,
		FieldBuyTax,
		FieldSellTax,
		FieldVerified,
		FieldHoneypot,
	}
}
