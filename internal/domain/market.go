package domain

// HolderLabel classifies a holder wallet.
type HolderLabel string

const (
	LabelWhale     HolderLabel = "whale"
	LabelSmart     HolderLabel = "smart"
	LabelUnlabeled HolderLabel = "unlabeled"
)

// Holder is one wallet position in a token, as reported by the holder-data
// provider.
type Holder struct {
	WalletAddress string      `json:"wallet_address"`
	Balance       float64     `json:"balance"`
	PctHeld       float64     `json:"pct_held"`
	NetDelta      float64     `json:"net_delta"` // recent balance change, positive = accumulating
	Label         HolderLabel `json:"label"`
}

// VolumeTrend describes how current volume compares to its baseline.
type VolumeTrend string

const (
	VolumeSpiking    VolumeTrend = "spiking"
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeStable     VolumeTrend = "stable"
	VolumeDecreasing VolumeTrend = "decreasing"
)

// Volume ratio thresholds for trend classification.
const (
	VolumeSpikeRatio      = 3.0
	VolumeIncreasingRatio = 1.5
	VolumeDecreasingRatio = 0.7
)

// TrendForRatio classifies a volumeNow/volumeBaseline ratio.
// A zero or negative baseline yields VolumeStable (ratio undefined).
func TrendForRatio(ratio float64) VolumeTrend {
	switch {
	case ratio >= VolumeSpikeRatio:
		return VolumeSpiking
	case ratio >= VolumeIncreasingRatio:
		return VolumeIncreasing
	case ratio <= VolumeDecreasingRatio:
		return VolumeDecreasing
	default:
		return VolumeStable
	}
}

// MarketSnapshot is one point-in-time market observation for a token, as
// reported by the market-data provider.
type MarketSnapshot struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	VolumeNow      float64 `json:"volume_now"`
	VolumeBaseline float64 `json:"volume_baseline"`
	PriceChange24h float64 `json:"price_change_24h"`
	RSI            float64 `json:"rsi"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
	BuyPressure    float64 `json:"buy_pressure"` // 0-100, share of volume on the buy side
}

// Pattern is the recent price/volume shape classification.
type Pattern string

const (
	PatternAccumulation Pattern = "accumulation"
	PatternDistribution Pattern = "distribution"
	PatternBreakout     Pattern = "breakout"
	PatternNone         Pattern = "none"
)
