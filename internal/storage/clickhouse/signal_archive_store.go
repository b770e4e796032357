package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-signals/internal/domain"
	"solana-signals/internal/observability"
	"solana-signals/internal/storage"
)

// SignalArchiveStore implements storage.SignalArchiveStore using ClickHouse.
// The archive is append-only MergeTree data; occasional duplicate rows from
// retried batches are tolerated and collapse in analytics queries.
type SignalArchiveStore struct {
	conn *Conn
}

// NewSignalArchiveStore creates a new SignalArchiveStore.
func NewSignalArchiveStore(conn *Conn) *SignalArchiveStore {
	return &SignalArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalArchiveStore = (*SignalArchiveStore)(nil)

// InsertBulk archives a batch of computed signals.
func (s *SignalArchiveStore) InsertBulk(ctx context.Context, signals []*domain.TokenSignal) (err error) {
	if len(signals) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_signals", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_signals (
			token_address, computed_at, symbol, name, signal_type, confidence,
			combined_score, smart_money_score, momentum_score, pattern_score,
			smart_money_count, whale_count, smart_money_buying, smart_money_selling,
			volume_trend, volume_ratio, buy_pressure, net_pressure,
			price_momentum_24h, rsi, trend_direction, current_price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sig := range signals {
		err = batch.Append(
			sig.TokenAddress, uint64(sig.ComputedAt), sig.Symbol, sig.Name,
			string(sig.SignalType), uint8(sig.Confidence),
			uint8(sig.CombinedScore), uint8(sig.SmartMoneyScore),
			uint8(sig.MomentumScore), uint8(sig.PatternScore),
			uint16(sig.SmartMoneyCount), uint16(sig.WhaleCount),
			sig.SmartMoneyBuying, sig.SmartMoneySelling,
			string(sig.VolumeTrend), sig.VolumeRatio, sig.BuyPressure, sig.NetPressure,
			sig.PriceMomentum24h, sig.RSI, sig.TrendDirection, sig.CurrentPrice,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves the most recent archived signals for a token, newest
// first.
func (s *SignalArchiveStore) GetByToken(ctx context.Context, tokenAddress string, limit int) (_ []*domain.TokenSignal, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "select_signals", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT token_address, computed_at, symbol, name, signal_type, confidence,
		       combined_score, smart_money_score, momentum_score, pattern_score,
		       smart_money_count, whale_count, smart_money_buying, smart_money_selling,
		       volume_trend, volume_ratio, buy_pressure, net_pressure,
		       price_momentum_24h, rsi, trend_direction, current_price
		FROM token_signals
		WHERE token_address = ?
		ORDER BY computed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query archived signals: %w", err)
	}
	defer rows.Close()

	var signals []*domain.TokenSignal
	for rows.Next() {
		var sig domain.TokenSignal
		var computedAt uint64
		var confidence, combined, smart, momentum, pattern uint8
		var smartCount, whaleCount uint16
		var signalType, volumeTrend string

		err := rows.Scan(
			&sig.TokenAddress, &computedAt, &sig.Symbol, &sig.Name,
			&signalType, &confidence,
			&combined, &smart, &momentum, &pattern,
			&smartCount, &whaleCount,
			&sig.SmartMoneyBuying, &sig.SmartMoneySelling,
			&volumeTrend, &sig.VolumeRatio, &sig.BuyPressure, &sig.NetPressure,
			&sig.PriceMomentum24h, &sig.RSI, &sig.TrendDirection, &sig.CurrentPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archived signal row: %w", err)
		}

		sig.ComputedAt = int64(computedAt)
		sig.SignalType = domain.SignalType(signalType)
		sig.Confidence = int(confidence)
		sig.CombinedScore = int(combined)
		sig.SmartMoneyScore = int(smart)
		sig.MomentumScore = int(momentum)
		sig.PatternScore = int(pattern)
		sig.SmartMoneyCount = int(smartCount)
		sig.WhaleCount = int(whaleCount)
		sig.VolumeTrend = domain.VolumeTrend(volumeTrend)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived signal rows: %w", err)
	}

	return signals, nil
}
