// Package settlement resolves a batch of selected offers into per-item
// claim and stake outcomes. Nothing here touches a real chain.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tgeclaim/engine/internal/store"
	"golang.org/x/sync/errgroup"
)

// ErrEmptySelection is returned when a batch has no offers.
var ErrEmptySelection = errors.New("empty selection")

// Settler runs batches with one strategy and outcome provider.
type Settler struct {
	strategy Strategy
	outcomes OutcomeProvider
}

// NewSettler creates a Settler.
func NewSettler(strategy Strategy, outcomes OutcomeProvider) *Settler {
	return &Settler{
		strategy: strategy,
		outcomes: outcomes,
	}
}

// Strategy returns the name of the settler's strategy.
func (s *Settler) Strategy() string {
	return s.strategy.Name()
}

// Settle simulates every offer concurrently and returns once all have
// resolved. Results are in input order, one per offer. Item failures are
// reported in the results; only an empty batch is an error.
//
// A started batch runs to completion: cancelling ctx does not cut item
// waits short.
func (s *Settler) Settle(ctx context.Context, offers []store.Offer, decisions map[string]store.StakingDecision) ([]store.SettlementResult, error) {
	if len(offers) == 0 {
		return nil, ErrEmptySelection
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	slog.Info("settlement_started",
		"strategy", s.strategy.Name(),
		"items", len(offers),
	)

	results := make([]store.SettlementResult, len(offers))

	var g errgroup.Group
	for i, offer := range offers {
		g.Go(func() error {
			results[i] = s.settleOne(ctx, offer, decisions[offer.ID])
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	slog.Info("settlement_finished",
		"strategy", s.strategy.Name(),
		"items", len(results),
		"succeeded", succeeded,
		"failed", len(results)-succeeded,
		"elapsed", time.Since(start),
	)

	return results, nil
}

// settleOne resolves a single item. A panic is turned into a failed result
// so sibling items are unaffected.
func (s *Settler) settleOne(ctx context.Context, offer store.Offer, decision store.StakingDecision) (result store.SettlementResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("settlement_item_panic", "offer", offer.ID, "panic", r)
			result = store.SettlementResult{OfferID: offer.ID, Error: ReasonUnexpected}
		}
	}()

	if !offer.Claimable {
		return store.SettlementResult{OfferID: offer.ID, Error: ReasonNotClaimable}
	}

	if err := wait(ctx, s.outcomes.Delay()); err != nil {
		return store.SettlementResult{OfferID: offer.ID, Error: err.Error()}
	}

	result = s.strategy.Resolve(offer, decision, s.outcomes)
	result.OfferID = offer.ID
	if !result.Success {
		result.Claimed = false
		result.Staked = false
		result.TxHash = ""
	}

	slog.Debug("settlement_item_resolved",
		"offer", offer.ID,
		"success", result.Success,
		"staked", result.Staked,
		"error", result.Error,
	)
	return result
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
