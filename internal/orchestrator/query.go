package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// Status values reported when no cycle record explains the state.
const (
	StatusUnknown = "unknown"
	StatusError   = "error"
)

// StatusReport describes the holder snapshot and the latest refresh cycle.
type StatusReport struct {
	TotalHolders   int                   `json:"totalHolders"`
	LastUpdated    int64                 `json:"lastUpdated,omitempty"`
	IsUpdating     bool                  `json:"isUpdating"`
	LastStatus     string                `json:"lastStatus"`
	LastError      string                `json:"lastError,omitempty"`
	LastSource     domain.SnapshotSource `json:"lastSource,omitempty"`
	TokenAddress   string                `json:"tokenAddress"`
	UpdateInterval string                `json:"updateInterval"`
}

// Status reports the current snapshot size and the latest cycle outcome.
// Store failures are reported in the result with LastStatus "error".
func (o *Orchestrator) Status(ctx context.Context) StatusReport {
	report := StatusReport{
		IsUpdating:     o.IsRefreshing(),
		LastStatus:     StatusUnknown,
		TokenAddress:   o.mint,
		UpdateInterval: o.refreshInterval.String(),
	}

	count, err := o.holders.Count(ctx)
	if err != nil {
		return o.statusError(report, fmt.Errorf("count holders: %w", err))
	}
	report.TotalHolders = count

	latest, err := o.updates.Latest(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return report
	case err != nil:
		return o.statusError(report, fmt.Errorf("latest update: %w", err))
	}

	report.LastUpdated = latest.LastUpdated
	report.LastStatus = string(latest.Status)
	report.LastError = latest.Error
	report.LastSource = latest.Source
	return report
}

func (o *Orchestrator) statusError(report StatusReport, err error) StatusReport {
	o.logger.Error("status query failed", zap.Error(err))
	report.TotalHolders = 0
	report.LastStatus = StatusError
	report.LastError = err.Error()
	return report
}

// Holders returns up to limit holders ordered by rank. limit <= 0 returns all.
func (o *Orchestrator) Holders(ctx context.Context, limit int) ([]*domain.Holder, error) {
	return o.holders.List(ctx, limit)
}

// Transactions returns stored transactions matching filter, newest first.
func (o *Orchestrator) Transactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter.From > 0 && filter.To > 0 && filter.From > filter.To {
		return nil, fmt.Errorf("%w: from %d after to %d", storage.ErrInvalidInput, filter.From, filter.To)
	}
	if filter.Direction != "" && !filter.Direction.IsValid() {
		return nil, fmt.Errorf("%w: direction %q", storage.ErrInvalidInput, filter.Direction)
	}
	return o.transactions.Query(ctx, filter)
}

// Stats aggregates stored transactions.
type Stats struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalBuys         int             `json:"total_buys"`
	TotalSells        int             `json:"total_sells"`
	TotalTransfers    int             `json:"total_transfers"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	PriceDirection    string          `json:"price_direction"`  // up | down
	PriceChange       float64         `json:"price_change"`     // |buys-sells| / max(buys,sells) * 100
	MarketSentiment   string          `json:"market_sentiment"` // bullish | bearish
	ProtocolUsage     []ProtocolCount `json:"protocol_usage"`
	TokenAddress      string          `json:"token_address"`
	GeneratedAt       time.Time       `json:"timestamp"`
}

// ProtocolCount is the number of transactions routed through a protocol.
type ProtocolCount struct {
	Protocol string `json:"protocol"`
	Count    int    `json:"count"`
}

// Stats aggregates the transactions matching filter. Limit is ignored.
func (o *Orchestrator) Stats(ctx context.Context, filter domain.TransactionFilter) (*Stats, error) {
	filter.Limit = 0
	txs, err := o.Transactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	return aggregate(txs, o.mint, o.now()), nil
}

func aggregate(txs []*domain.Transaction, mint string, now time.Time) *Stats {
	s := &Stats{
		TotalTransactions: len(txs),
		TotalVolume:       decimal.Zero,
		TokenAddress:      mint,
		GeneratedAt:       now.UTC(),
		ProtocolUsage:     []ProtocolCount{},
	}

	byProtocol := make(map[string]int)
	for _, tx := range txs {
		switch tx.Direction {
		case domain.DirectionBuy:
			s.TotalBuys++
		case domain.DirectionSell:
			s.TotalSells++
		case domain.DirectionTransfer:
			s.TotalTransfers++
		}
		s.TotalVolume = s.TotalVolume.Add(tx.Amount)
		byProtocol[tx.Protocol]++
	}

	for name, n := range byProtocol {
		s.ProtocolUsage = append(s.ProtocolUsage, ProtocolCount{Protocol: name, Count: n})
	}
	sort.Slice(s.ProtocolUsage, func(i, j int) bool {
		if s.ProtocolUsage[i].Count != s.ProtocolUsage[j].Count {
			return s.ProtocolUsage[i].Count > s.ProtocolUsage[j].Count
		}
		return s.ProtocolUsage[i].Protocol < s.ProtocolUsage[j].Protocol
	})

	s.PriceDirection, s.MarketSentiment = "down", "bearish"
	if s.TotalBuys > s.TotalSells {
		s.PriceDirection, s.MarketSentiment = "up", "bullish"
	}
	if peak := max(s.TotalBuys, s.TotalSells); peak > 0 {
		diff := s.TotalBuys - s.TotalSells
		if diff < 0 {
			diff = -diff
		}
		s.PriceChange = float64(diff) / float64(peak) * 100
	}
	return s
}
