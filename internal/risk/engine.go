// Package risk turns a merged token record into a tiered assessment. The
// engine is a pure function of the record and the configured thresholds:
// no I/O, no clock, and a missing field is valid input rather than an error.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
)

// Tier is the overall classification, ordered from safest to worst.
type Tier string

const (
	TierSafe     Tier = "safe"
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierHoneypot Tier = "honeypot"
)

var tierOrder = map[Tier]int{
	TierSafe:     0,
	TierLow:      1,
	TierMedium:   2,
	TierHigh:     3,
	TierHoneypot: 4,
}

// Worse reports whether t is a worse classification than other.
func (t Tier) Worse(other Tier) bool { return tierOrder[t] > tierOrder[other] }

// FactorTag names one contributing signal in an assessment.
type FactorTag string

const (
	FactorHoneypotFlag     FactorTag = "honeypot_flag"
	FactorTradingDisabled  FactorTag = "trading_disabled"
	FactorExtremeTax       FactorTag = "extreme_tax"
	FactorNoLiquidity      FactorTag = "no_liquidity"
	FactorHighTax          FactorTag = "high_tax"
	FactorLowLiquidity     FactorTag = "low_liquidity"
	FactorMintable         FactorTag = "mintable"
	FactorPausable         FactorTag = "pausable"
	FactorBlacklist        FactorTag = "blacklist"
	FactorHolderConc       FactorTag = "holder_concentration"
	FactorCreatorConc      FactorTag = "creator_concentration"
	FactorSerialDeployer   FactorTag = "serial_deployer"
	FactorUnverified       FactorTag = "unverified_contract"
	FactorFewHolders       FactorTag = "few_holders"
	FactorYoungToken       FactorTag = "young_token"
	FactorProxyContract    FactorTag = "proxy_contract"
	FactorInsufficientData FactorTag = "insufficient_data"
)

// Assessment is the engine's immutable output.
type Assessment struct {
	Tier            Tier        `json:"tier"`
	Factors         []FactorTag `json:"factors"`
	Warnings        []string    `json:"warnings"`
	Recommendations []string    `json:"recommendations"`
}

var recommendations = map[Tier][]string{
	TierSafe: {
		"No risk signals detected; standard due diligence still applies.",
	},
	TierLow: {
		"Minor signals present; review the listed factors before trading.",
	},
	TierMedium: {
		"Several risk signals present; trade only small amounts you can afford to lose.",
		"Verify the contract and liquidity lock independently before buying.",
	},
	TierHigh: {
		"Multiple severe risk signals; avoid this token.",
		"If already holding, consider exiting while liquidity remains.",
	},
	TierHoneypot: {
		"Do not buy: selling is likely impossible or prohibitively taxed.",
		"If already holding, attempt a minimal test sell before anything else.",
	},
}

// Engine evaluates records against fixed thresholds.
type Engine struct {
	cfg config.RiskConfig
}

func NewEngine(cfg config.RiskConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Assess classifies a record. Honeypot conditions short-circuit everything
// else; otherwise contributing factors accumulate into a tier, and a record
// flagged as low-data is capped at medium with an explicit warning so thin
// evidence can never present as safe.
func (e *Engine) Assess(record *token.TokenRecord) Assessment {
	a := &assessment{}

	if e.honeypotRules(record, a) {
		a.tier = TierHoneypot
		return a.finish()
	}

	severe, minor := e.factorRules(record, a)
	switch {
	case severe >= 3:
		a.tier = TierHigh
	case severe >= 1:
		a.tier = TierMedium
	case minor >= 1:
		a.tier = TierLow
	default:
		a.tier = TierSafe
	}

	if record.LowData {
		// Thin evidence pins the tier to medium: never falsely safe, never
		// a confident high built on missing fields.
		a.tier = TierMedium
		a.add(FactorInsufficientData, fmt.Sprintf(
			"low confidence: only %.0f%% of required fields are populated", record.Completeness*100))
	}
	return a.finish()
}

// honeypotRules checks the disqualifying conditions. All matching conditions
// are recorded, not just the first, so the warnings explain the full picture.
func (e *Engine) honeypotRules(record *token.TokenRecord, a *assessment) bool {
	hit := false

	if flagged, ok := record.BoolField(token.FieldHoneypot); ok && flagged {
		a.add(FactorHoneypotFlag, "security scan flags this token as a honeypot")
		hit = true
	}
	if disabled, ok := record.BoolField(token.FieldTradingDisabled); ok && disabled {
		a.add(FactorTradingDisabled, "trading is disabled: holders cannot sell")
		hit = true
	}
	if sum, ok := taxSum(record); ok && sum.GreaterThanOrEqual(decimal.NewFromFloat(e.cfg.HardTaxCeilingPct)) {
		a.add(FactorExtremeTax, fmt.Sprintf(
			"combined buy+sell tax of %s%% is at or above the %.0f%% ceiling", sum.String(), e.cfg.HardTaxCeilingPct))
		hit = true
	}
	if noLiquidityWithSupply(record) {
		a.add(FactorNoLiquidity, "no tradable liquidity despite a non-zero supply")
		hit = true
	}
	return hit
}

// factorRules accumulates the non-disqualifying signals. Absence of a field
// never contributes; only present values crossing a threshold count.
func (e *Engine) factorRules(record *token.TokenRecord, a *assessment) (severe, minor int) {
	if sum, ok := taxSum(record); ok && sum.GreaterThanOrEqual(decimal.NewFromFloat(e.cfg.SoftTaxThresholdPct)) {
		a.add(FactorHighTax, fmt.Sprintf("combined buy+sell tax is %s%%", sum.String()))
		severe++
	}
	if liq, ok := record.DecimalField(token.FieldLiquidityUSD); ok && liq.IsPositive() &&
		liq.LessThan(decimal.NewFromFloat(e.cfg.MinLiquidityUSD)) {
		a.add(FactorLowLiquidity, fmt.Sprintf("liquidity of $%s is below the $%.0f floor", liq.StringFixed(0), e.cfg.MinLiquidityUSD))
		severe++
	}
	if v, ok := record.BoolField(token.FieldMintable); ok && v {
		a.add(FactorMintable, "owner can mint new tokens and dilute holders")
		severe++
	}
	if v, ok := record.BoolField(token.FieldPausable); ok && v {
		a.add(FactorPausable, "owner can pause transfers at any time")
		severe++
	}
	if v, ok := record.BoolField(token.FieldBlacklist); ok && v {
		a.add(FactorBlacklist, "contract can blacklist individual wallets")
		severe++
	}
	if ratio, ok := record.DecimalField(token.FieldTopHoldersRatio); ok &&
		ratio.GreaterThan(decimal.NewFromFloat(e.cfg.TopHoldersRatioMaxPct)) {
		a.add(FactorHolderConc, fmt.Sprintf("top holders control %s%% of the supply", ratio.StringFixed(1)))
		severe++
	}
	if pct, ok := record.DecimalField(token.FieldCreatorPct); ok &&
		pct.GreaterThan(decimal.NewFromFloat(e.cfg.CreatorHoldingMaxPct)) {
		a.add(FactorCreatorConc, fmt.Sprintf("creator still holds %s%% of the supply", pct.StringFixed(1)))
		severe++
	}
	if n, ok := record.IntField(token.FieldDeployerCreation); ok && n > e.cfg.DeployerCreationsMax {
		a.add(FactorSerialDeployer, fmt.Sprintf("deployer has created %d other contracts", n))
		severe++
	}

	if v, ok := record.BoolField(token.FieldVerified); ok && !v {
		a.add(FactorUnverified, "contract source code is not verified")
		minor++
	}
	if n, ok := record.IntField(token.FieldHolderCount); ok && n < e.cfg.MinHolderCount {
		a.add(FactorFewHolders, fmt.Sprintf("only %d holders", n))
		minor++
	}
	if days, ok := record.IntField(token.FieldTokenAgeDays); ok && days <= e.cfg.YoungTokenMaxDays {
		a.add(FactorYoungToken, fmt.Sprintf("token is only %d days old", days))
		minor++
	}
	if v, ok := record.BoolField(token.FieldProxyContract); ok && v {
		a.add(FactorProxyContract, "proxy contract: implementation can be swapped")
		minor++
	}
	return severe, minor
}

func taxSum(record *token.TokenRecord) (decimal.Decimal, bool) {
	buy, okB := record.DecimalField(token.FieldBuyTax)
	sell, okS := record.DecimalField(token.FieldSellTax)
	if !okB && !okS {
		return decimal.Zero, false
	}
	return buy.Add(sell), true
}

func noLiquidityWithSupply(record *token.TokenRecord) bool {
	supply, ok := record.DecimalField(token.FieldTotalSupply)
	if !ok || !supply.IsPositive() {
		return false
	}
	liq, ok := record.DecimalField(token.FieldLiquidityUSD)
	return !ok || !liq.IsPositive()
}

// assessment accumulates factors and warnings in evaluation order.
type assessment struct {
	tier     Tier
	factors  []FactorTag
	warnings []string
}

func (a *assessment) add(tag FactorTag, warning string) {
	a.factors = append(a.factors, tag)
	a.warnings = append(a.warnings, warning)
}

func (a *assessment) finish() Assessment {
	out := Assessment{
		Tier:            a.tier,
		Factors:         a.factors,
		Warnings:        a.warnings,
		Recommendations: recommendations[a.tier],
	}
	if out.Factors == nil {
		out.Factors = []FactorTag{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}
