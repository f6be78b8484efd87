package node

import (
	"fmt"
	"sort"
	"sync"
)

// FeeFloorSatPerKw is the minimum relay feerate lampod will quote.
const FeeFloorSatPerKw = 253

// FeeEstimator quotes feerates per confirmation target. Without a chain
// backend attached the defaults stand in; a backend can refresh them
// through Update.
type FeeEstimator struct {
	mu        sync.RWMutex
	perTarget map[int]uint64 // blocks -> sat/kw
}

func NewFeeEstimator() *FeeEstimator {
	return &FeeEstimator{
		perTarget: map[int]uint64{
			2:   7500,
			6:   5000,
			12:  2500,
			100: 1000,
		},
	}
}

// Estimate quotes a feerate for the given confirmation target. The
// quote comes from the slowest known target still within the request,
// so the transaction confirms no later than asked.
func (f *FeeEstimator) Estimate(target int) (uint64, error) {
	if target <= 0 {
		return 0, fmt.Errorf("confirmation target must be positive, got %d", target)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	targets := f.sortedTargetsLocked()
	for i := len(targets) - 1; i >= 0; i-- {
		if targets[i] <= target {
			return f.perTarget[targets[i]], nil
		}
	}
	// More urgent than the fastest known target: quote the fastest.
	return f.perTarget[targets[0]], nil
}

// Estimates returns every known target and its feerate.
func (f *FeeEstimator) Estimates() map[int]uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[int]uint64, len(f.perTarget))
	for target, rate := range f.perTarget {
		out[target] = rate
	}
	return out
}

// Update replaces the quote for one confirmation target. Rates below the
// relay floor are clamped to it.
func (f *FeeEstimator) Update(target int, satPerKw uint64) error {
	if target <= 0 {
		return fmt.Errorf("confirmation target must be positive, got %d", target)
	}
	if satPerKw < FeeFloorSatPerKw {
		satPerKw = FeeFloorSatPerKw
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.perTarget[target] = satPerKw
	return nil
}

func (f *FeeEstimator) sortedTargetsLocked() []int {
	targets := make([]int, 0, len(f.perTarget))
	for t := range f.perTarget {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets
}
