package snapshot

import (
	"fmt"
	"sort"

	"solana-holder-tracker/internal/domain"
)

// Rank sorts holders by descending token amount (stable for ties), truncates to
// limit (limit <= 0 keeps all) and assigns ranks 1..N and lastUpdated.
// The input slice is reordered in place.
func Rank(holders []*domain.Holder, limit int, now int64) []*domain.Holder {
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].TokenAmount.GreaterThan(holders[j].TokenAmount)
	})
	if limit > 0 && len(holders) > limit {
		holders = holders[:limit]
	}
	for i, h := range holders {
		h.Rank = i + 1
		h.LastUpdated = now
	}
	return holders
}

// Validate checks snapshot invariants: ranks contiguous from 1, unique
// addresses, non-negative amounts and non-increasing token amount by rank.
func Validate(holders []*domain.Holder) error {
	seen := make(map[string]struct{}, len(holders))
	for i, h := range holders {
		if h.Rank != i+1 {
			return fmt.Errorf("holder %s: rank %d at position %d", h.Address, h.Rank, i+1)
		}
		if h.Address == "" {
			return fmt.Errorf("holder at rank %d: empty address", h.Rank)
		}
		if _, dup := seen[h.Address]; dup {
			return fmt.Errorf("duplicate holder address %s", h.Address)
		}
		seen[h.Address] = struct{}{}
		if h.TokenAmount.IsNegative() || h.NativeBalance.IsNegative() {
			return fmt.Errorf("holder %s: negative amount", h.Address)
		}
		if i > 0 && h.TokenAmount.GreaterThan(holders[i-1].TokenAmount) {
			return fmt.Errorf("holder %s: amount exceeds rank %d", h.Address, i)
		}
	}
	return nil
}
