// Package scoring turns one token's holder list and market snapshot into a
// classified TokenSignal. The engine is pure: identical inputs produce
// identical output, which the cache layer relies on for idempotent reads.
package scoring

import (
	"fmt"
	"math"
	"time"

	"solana-signals/internal/domain"
)

// Combined score weights. Fixed constants, not configurable at call time.
const (
	WeightSmartMoney = 0.35
	WeightMomentum   = 0.40
	WeightPattern    = 0.25
)

// Fixed pattern contributions to the pattern sub-score.
const (
	patternScoreBreakout     = 85
	patternScoreAccumulation = 80
	patternScoreDistribution = 20
	patternScoreNone         = 50
)

// Engine computes signals. Now is injectable so tests produce stable
// timestamps.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine using wall-clock time.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock creates an Engine with a custom clock.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Evaluate computes the full signal for one token. holders may be empty and
// snap fields may be zero; evaluation never fails, it only scores lower.
func (e *Engine) Evaluate(tokenAddress string, holders []domain.Holder, snap *domain.MarketSnapshot) *domain.TokenSignal {
	smartCount, whaleCount, netFlow := holderCounts(holders)
	buying := netFlow > 0
	selling := netFlow < 0

	volumeRatio, volumeTrend := volumeShape(snap)
	netPressure := snap.BuyPressure*2 - 100

	pattern := classifyPattern(snap, volumeTrend, netPressure)

	sm := smartMoneyScore(len(holders), smartCount, whaleCount, buying, selling)
	mom := momentumScore(volumeTrend, netPressure, snap.PriceChange24h, snap.RSI)
	pat := patternContribution(pattern)
	combined := CombinedScore(sm, mom, pat)

	sig := &domain.TokenSignal{
		TokenAddress:      tokenAddress,
		Symbol:            snap.Symbol,
		Name:              snap.Name,
		SignalType:        domain.ClassifySignal(combined),
		Confidence:        confidence(sm, mom, pat),
		CombinedScore:     combined,
		SmartMoneyScore:   sm,
		MomentumScore:     mom,
		PatternScore:      pat,
		Pattern:           pattern,
		SmartMoneyCount:   smartCount,
		WhaleCount:        whaleCount,
		SmartMoneyBuying:  buying,
		SmartMoneySelling: selling,
		VolumeTrend:       volumeTrend,
		VolumeRatio:       volumeRatio,
		BuyPressure:       snap.BuyPressure,
		NetPressure:       netPressure,
		PriceMomentum24h:  snap.PriceChange24h,
		RSI:               snap.RSI,
		TrendDirection:    trendDirection(snap.PriceChange24h),
		CurrentPrice:      snap.Price,
		SuggestedEntry:    snap.Price,
		ComputedAt:        e.now().UnixMilli(),
	}

	applyTradeHints(sig, pattern, snap.Price)
	annotate(sig, pattern)
	return sig
}

// holderCounts tallies labeled wallets and their net recent flow.
func holderCounts(holders []domain.Holder) (smart, whale int, netFlow float64) {
	for _, h := range holders {
		switch h.Label {
		case domain.LabelSmart:
			smart++
			netFlow += h.NetDelta
		case domain.LabelWhale:
			whale++
			netFlow += h.NetDelta
		}
	}
	return smart, whale, netFlow
}

// volumeShape returns the volume ratio and its trend. A zero baseline makes
// the ratio undefined: contribution is neutral, never a division error.
func volumeShape(snap *domain.MarketSnapshot) (float64, domain.VolumeTrend) {
	if snap.VolumeBaseline <= 0 {
		return 0, domain.VolumeStable
	}
	ratio := snap.VolumeNow / snap.VolumeBaseline
	return ratio, domain.TrendForRatio(ratio)
}

// smartMoneyScore scores smart-money presence and direction. Zero holders
// means no holder information at all: the sub-score contributes nothing.
func smartMoneyScore(totalHolders, smartCount, whaleCount int, buying, selling bool) int {
	if totalHolders == 0 {
		return 0
	}

	score := 50
	score += minInt(5*smartCount, 15)
	score += minInt(3*whaleCount, 9)
	if buying {
		score += 10
	}
	if selling {
		score -= 10
	}
	return clamp(score)
}

// momentumScore scores volume and price momentum.
func momentumScore(trend domain.VolumeTrend, netPressure, priceChange24h, rsi float64) int {
	score := 50

	switch trend {
	case domain.VolumeSpiking:
		score += 20
	case domain.VolumeIncreasing:
		score += 10
	case domain.VolumeDecreasing:
		score -= 10
	}

	switch {
	case priceChange24h > 20:
		score += 15
	case priceChange24h > 10:
		score += 10
	case priceChange24h < -20:
		score -= 15
	case priceChange24h < -10:
		score -= 10
	}

	switch {
	case rsi > 0 && rsi < 30:
		score += 10 // oversold, potential reversal up
	case rsi > 70:
		score -= 10 // overbought, potential reversal down
	}

	switch {
	case priceChange24h > 5:
		score += 5
	case priceChange24h < -5:
		score -= 5
	}

	// Net pressure contributes up to +/-10.
	score += int(math.Round(clampFloat(netPressure/5, -10, 10)))

	return clamp(score)
}

// classifyPattern maps the price/volume shape to one pattern.
func classifyPattern(snap *domain.MarketSnapshot, trend domain.VolumeTrend, netPressure float64) domain.Pattern {
	elevated := trend == domain.VolumeSpiking || trend == domain.VolumeIncreasing

	switch {
	case trend == domain.VolumeSpiking && snap.PriceChange24h > 10:
		return domain.PatternBreakout
	case elevated && netPressure > 20 && snap.RSI <= 45:
		return domain.PatternAccumulation
	case elevated && netPressure < -20:
		return domain.PatternDistribution
	case snap.RSI > 70 && snap.PriceChange24h < 0:
		return domain.PatternDistribution
	default:
		return domain.PatternNone
	}
}

func patternContribution(p domain.Pattern) int {
	switch p {
	case domain.PatternBreakout:
		return patternScoreBreakout
	case domain.PatternAccumulation:
		return patternScoreAccumulation
	case domain.PatternDistribution:
		return patternScoreDistribution
	default:
		return patternScoreNone
	}
}

// CombinedScore applies the fixed weights and clamps to [0,100].
func CombinedScore(smartMoney, momentum, pattern int) int {
	combined := WeightSmartMoney*float64(smartMoney) +
		WeightMomentum*float64(momentum) +
		WeightPattern*float64(pattern)
	return clamp(int(math.Round(combined)))
}

// confidence reflects how much the three sub-scores agree.
func confidence(scores ...int) int {
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	spread := hi - lo
	switch {
	case spread < 20:
		return 85
	case spread < 40:
		return 70
	default:
		return 55
	}
}

func trendDirection(priceChange24h float64) string {
	switch {
	case priceChange24h > 5:
		return "up"
	case priceChange24h < -5:
		return "down"
	default:
		return "sideways"
	}
}

// applyTradeHints fills stop/target/risk-reward for actionable buy signals.
func applyTradeHints(sig *domain.TokenSignal, pattern domain.Pattern, price float64) {
	if price <= 0 {
		return
	}
	if sig.SignalType != domain.SignalStrongBuy && sig.SignalType != domain.SignalBuy {
		return
	}

	switch pattern {
	case domain.PatternBreakout:
		sig.SuggestedStop = price * 0.92
		sig.SuggestedTarget = price * 1.20
	case domain.PatternAccumulation:
		sig.SuggestedStop = price * 0.88
		sig.SuggestedTarget = price * 1.15
	default:
		sig.SuggestedStop = price * 0.95
		sig.SuggestedTarget = price * 1.10
	}

	risk := price - sig.SuggestedStop
	reward := sig.SuggestedTarget - price
	if risk > 0 {
		sig.RiskReward = fmt.Sprintf("1:%.1f", reward/risk)
	}
}

// annotate fills the narrative fields from the computed facts.
func annotate(sig *domain.TokenSignal, pattern domain.Pattern) {
	if sig.SmartMoneyBuying && sig.SmartMoneyCount > 0 {
		sig.KeyInsights = append(sig.KeyInsights,
			fmt.Sprintf("%d smart money wallets accumulating", sig.SmartMoneyCount))
		sig.GreenFlags = append(sig.GreenFlags, "Smart money buying")
	}
	if sig.SmartMoneySelling {
		sig.RedFlags = append(sig.RedFlags, "Smart money selling")
	}

	if sig.VolumeTrend == domain.VolumeSpiking {
		sig.KeyInsights = append(sig.KeyInsights,
			fmt.Sprintf("Volume spike detected (%.1fx average)", sig.VolumeRatio))
		sig.GreenFlags = append(sig.GreenFlags,
			fmt.Sprintf("Volume spike (%.1fx)", sig.VolumeRatio))
	}
	if sig.NetPressure > 30 {
		sig.KeyInsights = append(sig.KeyInsights,
			fmt.Sprintf("Strong buy pressure (%.0f%%)", sig.BuyPressure))
	} else if sig.NetPressure < -30 {
		sig.RedFlags = append(sig.RedFlags,
			fmt.Sprintf("Strong sell pressure (%.0f%%)", 100-sig.BuyPressure))
	}

	switch sig.TrendDirection {
	case "up":
		sig.GreenFlags = append(sig.GreenFlags,
			fmt.Sprintf("Uptrend (+%.1f%%)", sig.PriceMomentum24h))
	case "down":
		sig.RedFlags = append(sig.RedFlags,
			fmt.Sprintf("Downtrend (%.1f%%)", sig.PriceMomentum24h))
	}

	if sig.RSI > 0 && sig.RSI < 30 {
		sig.GreenFlags = append(sig.GreenFlags, "Oversold (potential bounce)")
	} else if sig.RSI > 70 {
		sig.RedFlags = append(sig.RedFlags, "Overbought (potential pullback)")
	}

	switch pattern {
	case domain.PatternBreakout, domain.PatternAccumulation:
		sig.KeyInsights = append(sig.KeyInsights,
			fmt.Sprintf("%s pattern detected", pattern))
		sig.GreenFlags = append(sig.GreenFlags, fmt.Sprintf("%s pattern", pattern))
	case domain.PatternDistribution:
		sig.RedFlags = append(sig.RedFlags, "Distribution pattern")
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
