package domain

// SignalType is the discrete trade-recommendation class derived from the
// combined score.
type SignalType string

const (
	SignalStrongBuy SignalType = "strong_buy"
	SignalBuy       SignalType = "buy"
	SignalWatch     SignalType = "watch"
	SignalAvoid     SignalType = "avoid"
)

// Signal type thresholds on the combined score.
const (
	StrongBuyThreshold = 80
	BuyThreshold       = 60
	WatchThreshold     = 40
)

// ClassifySignal maps a combined score to its signal type.
func ClassifySignal(combined int) SignalType {
	switch {
	case combined >= StrongBuyThreshold:
		return SignalStrongBuy
	case combined >= BuyThreshold:
		return SignalBuy
	case combined >= WatchThreshold:
		return SignalWatch
	default:
		return SignalAvoid
	}
}

// ScoreBand is the display band used by the dashboard for visual scanning.
// Intentionally a different scale from SignalType: banding answers "how does
// this card look", classification answers "what trade does this suggest".
type ScoreBand string

const (
	BandHigh   ScoreBand = "high"
	BandMedium ScoreBand = "medium"
	BandLow    ScoreBand = "low"
)

// BandForScore maps a combined score to its display band.
func BandForScore(combined int) ScoreBand {
	switch {
	case combined >= 75:
		return BandHigh
	case combined >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// TokenSignal is one immutable evaluation of a token. Re-evaluation produces
// a new record superseding the old one in cache; records are never mutated.
type TokenSignal struct {
	TokenAddress string     `json:"token_address"`
	Symbol       string     `json:"symbol"`
	Name         string     `json:"name"`
	SignalType   SignalType `json:"signal_type"`
	Confidence   int        `json:"confidence"`

	// Component scores (0-100)
	CombinedScore   int `json:"combined_score"`
	SmartMoneyScore int `json:"smart_money_score"`
	MomentumScore   int `json:"momentum_score"`
	PatternScore    int `json:"pattern_score"`

	// Pattern is the detected price/volume shape behind PatternScore.
	Pattern Pattern `json:"pattern"`

	// Holder facts
	SmartMoneyCount   int  `json:"smart_money_count"`
	WhaleCount        int  `json:"whale_count"`
	SmartMoneyBuying  bool `json:"smart_money_buying"`
	SmartMoneySelling bool `json:"smart_money_selling"`

	// Market facts
	VolumeTrend      VolumeTrend `json:"volume_trend"`
	VolumeRatio      float64     `json:"volume_ratio"`
	BuyPressure      float64     `json:"buy_pressure"`
	NetPressure      float64     `json:"net_pressure"`
	PriceMomentum24h float64     `json:"price_momentum_24h"`
	RSI              float64     `json:"rsi"`
	TrendDirection   string      `json:"trend_direction"`

	// Trade hints
	CurrentPrice    float64 `json:"current_price"`
	SuggestedEntry  float64 `json:"suggested_entry"`
	SuggestedStop   float64 `json:"suggested_stop"`
	SuggestedTarget float64 `json:"suggested_target"`
	RiskReward      string  `json:"risk_reward"`

	// Narrative
	KeyInsights []string `json:"key_insights"`
	GreenFlags  []string `json:"green_flags"`
	RedFlags    []string `json:"red_flags"`

	ComputedAt int64 `json:"computed_at"` // Unix timestamp in milliseconds
}

// Band returns the display band for the signal's combined score.
func (s *TokenSignal) Band() ScoreBand {
	return BandForScore(s.CombinedScore)
}
