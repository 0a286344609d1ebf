package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-holder-tracker/internal/observability"
)

// MonitorResult summarizes one monitor pass.
type MonitorResult struct {
	Addresses       int // holders scanned
	FailedAddresses int // holders whose transactions could not be fetched
	Fetched         int // raw transactions fetched
	Recorded        int // transactions classified and upserted
	Skipped         int // transactions not touching the tracked mint
	RecordErrors    int // transactions that failed to persist
	Errors          []string
}

// RunMonitor fetches recent transactions for the top holders, classifies
// them against each holder and upserts the accepted records. Failures for
// one address or one record are counted and never abort the pass.
func (o *Orchestrator) RunMonitor(ctx context.Context) MonitorResult {
	var result MonitorResult

	top, err := o.holders.List(ctx, o.monitorWallets)
	if err != nil {
		o.logger.Error("monitor: list holders failed", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("list holders: %v", err))
		return result
	}
	result.Addresses = len(top)
	if len(top) == 0 {
		o.logger.Info("monitor: no holders to scan")
		return result
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(o.monitorConcurrency)

	for _, h := range top {
		address := h.Address
		g.Go(func() error {
			r := o.monitorAddress(ctx, address)
			mu.Lock()
			merge(&result, r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	observability.RecordMonitorPass(result.FailedAddresses, o.now().UnixMilli())
	o.logger.Info("monitor pass completed",
		zap.Int("addresses", result.Addresses),
		zap.Int("failed_addresses", result.FailedAddresses),
		zap.Int("fetched", result.Fetched),
		zap.Int("recorded", result.Recorded),
		zap.Int("skipped", result.Skipped),
		zap.Int("record_errors", result.RecordErrors))

	return result
}

// monitorAddress processes one holder. The result's Addresses is unused.
func (o *Orchestrator) monitorAddress(ctx context.Context, address string) (r MonitorResult) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("monitor: address panicked", zap.String("address", address), zap.Any("panic", p))
			r.FailedAddresses = 1
			r.Errors = append(r.Errors, fmt.Sprintf("%s: panic: %v", address, p))
		}
	}()

	actx, cancel := context.WithTimeout(ctx, o.addressTimeout)
	defer cancel()

	raws, err := o.gateway.FetchRecentTransactions(actx, address, o.monitorSignatures)
	if err != nil {
		o.logger.Warn("monitor: fetch recent transactions failed",
			zap.String("address", address),
			zap.Error(err))
		r.FailedAddresses = 1
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", address, err))
		return r
	}
	r.Fetched = len(raws)

	for _, raw := range raws {
		_, ok, err := o.recorder.Record(actx, raw, address)
		switch {
		case err != nil:
			o.logger.Warn("monitor: record transaction failed",
				zap.String("address", address),
				zap.String("signature", raw.Signature),
				zap.Error(err))
			r.RecordErrors++
			r.Errors = append(r.Errors, fmt.Sprintf("%s/%s: %v", address, raw.Signature, err))
		case ok:
			r.Recorded++
		default:
			r.Skipped++
		}
	}
	return r
}

func merge(dst *MonitorResult, src MonitorResult) {
	dst.FailedAddresses += src.FailedAddresses
	dst.Fetched += src.Fetched
	dst.Recorded += src.Recorded
	dst.Skipped += src.Skipped
	dst.RecordErrors += src.RecordErrors
	dst.Errors = append(dst.Errors, src.Errors...)
}
