package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/observability"
	"solana-holder-tracker/internal/snapshot"
)

// statusWriteTimeout bounds the final status write once the cycle context
// may already be done.
const statusWriteTimeout = 10 * time.Second

// TriggerRefresh starts a refresh in the background. It returns false without
// doing anything when a refresh is already running. Completion is observable
// through Status.
func (o *Orchestrator) TriggerRefresh(ctx context.Context) bool {
	if !o.refreshing.CompareAndSwap(false, true) {
		observability.RecordRefreshRejected()
		return false
	}

	// Outlive the triggering request.
	bg := context.WithoutCancel(ctx)

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer o.refreshing.Store(false)

		if _, err := o.refresh(bg); err != nil {
			o.logger.Error("triggered refresh failed", zap.Error(err))
		}
	}()
	return true
}

// RunRefresh runs one refresh cycle synchronously. Returns ErrRefreshInProgress
// when another cycle holds the guard.
func (o *Orchestrator) RunRefresh(ctx context.Context) (*domain.UpdateStatus, error) {
	if !o.refreshing.CompareAndSwap(false, true) {
		observability.RecordRefreshRejected()
		return nil, ErrRefreshInProgress
	}
	defer o.refreshing.Store(false)

	return o.refresh(ctx)
}

// IsRefreshing reports whether a refresh cycle is running.
func (o *Orchestrator) IsRefreshing() bool {
	return o.refreshing.Load()
}

// refresh runs one cycle: in_progress → build → validate → replace →
// completed, or failed on any error or panic.
func (o *Orchestrator) refresh(ctx context.Context) (st *domain.UpdateStatus, err error) {
	started := o.now()
	st = &domain.UpdateStatus{
		ID:          o.newID(),
		Status:      domain.UpdateInProgress,
		StartedAt:   started.UnixMilli(),
		LastUpdated: started.UnixMilli(),
	}
	created := false

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
			o.logger.Error("refresh panicked", zap.Any("panic", r), zap.String("update_id", st.ID))
			if created {
				o.finish(ctx, st, domain.UpdateFailed, err)
			}
		}
		source := string(st.Source)
		if source == "" {
			source = "none"
		}
		observability.RecordRefresh(string(st.Status), source, st.TotalHolders,
			o.now().Sub(started).Seconds(), st.LastUpdated)
	}()

	if err := o.updates.Create(ctx, st); err != nil {
		st.Status = domain.UpdateFailed
		st.Error = err.Error()
		return st, fmt.Errorf("create update status: %w", err)
	}
	created = true

	o.logger.Info("holder refresh started",
		zap.String("update_id", st.ID),
		zap.String("mint", o.mint),
		zap.Int("limit", o.holderLimit))

	buildCtx, cancel := context.WithTimeout(ctx, o.refreshTimeout)
	snap, err := o.builder.Build(buildCtx, o.mint, o.holderLimit)
	cancel()
	if err != nil {
		err = fmt.Errorf("build snapshot: %w", err)
		o.finish(ctx, st, domain.UpdateFailed, err)
		return st, err
	}
	st.Source = snap.Source

	if err := snapshot.Validate(snap.Holders); err != nil {
		err = fmt.Errorf("invalid snapshot: %w", err)
		o.finish(ctx, st, domain.UpdateFailed, err)
		return st, err
	}

	if err := o.holders.ReplaceAll(ctx, snap.Holders); err != nil {
		err = fmt.Errorf("replace holders: %w", err)
		o.finish(ctx, st, domain.UpdateFailed, err)
		return st, err
	}

	st.TotalHolders = len(snap.Holders)
	if err := o.finish(ctx, st, domain.UpdateCompleted, nil); err != nil {
		return st, fmt.Errorf("record completed status: %w", err)
	}

	fields := []zap.Field{
		zap.String("update_id", st.ID),
		zap.Int("holders", st.TotalHolders),
		zap.String("source", string(st.Source)),
		zap.Duration("elapsed", o.now().Sub(started)),
	}
	if snap.Source == domain.SourceFallback {
		o.logger.Warn("holder refresh completed with fallback data",
			append(fields, zap.NamedError("cause", snap.Cause))...)
	} else {
		o.logger.Info("holder refresh completed", fields...)
	}
	return st, nil
}

// finish moves st to a terminal state and persists it.
func (o *Orchestrator) finish(ctx context.Context, st *domain.UpdateStatus, state domain.UpdateState, cause error) error {
	st.Status = state
	st.LastUpdated = o.now().UnixMilli()
	if cause != nil {
		st.Error = cause.Error()
		o.logger.Error("holder refresh failed",
			zap.String("update_id", st.ID),
			zap.Error(cause))
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	record := *st
	if err := o.updates.Update(wctx, &record); err != nil {
		o.logger.Error("persist update status failed",
			zap.String("update_id", st.ID),
			zap.String("status", string(state)),
			zap.Error(err))
		return err
	}
	return nil
}

// orphanedReason is recorded on cycles that were still running when an
// earlier process stopped.
const orphanedReason = "interrupted: tracker restarted before the cycle finished"

// failOrphanedUpdates marks in-progress records from an earlier process as
// failed. It holds the refresh guard so no live cycle is touched, and skips
// the sweep when a cycle is already running.
func (o *Orchestrator) failOrphanedUpdates(ctx context.Context) {
	if !o.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer o.refreshing.Store(false)

	n, err := o.updates.FailInProgress(ctx, orphanedReason, o.now().UnixMilli())
	if err != nil {
		o.logger.Error("failing orphaned updates", zap.Error(err))
		return
	}
	if n > 0 {
		o.logger.Warn("marked orphaned refresh cycles failed", zap.Int("count", n))
	}
}
