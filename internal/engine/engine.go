// Package engine ties the catalog, selection, wallet and settlement
// together into one application context. Presentation layers only call
// the operations defined here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tgeclaim/engine/internal/catalog"
	"github.com/tgeclaim/engine/internal/dashboard"
	"github.com/tgeclaim/engine/internal/feed"
	"github.com/tgeclaim/engine/internal/metrics"
	"github.com/tgeclaim/engine/internal/notify"
	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/selection"
	"github.com/tgeclaim/engine/internal/settlement"
	"github.com/tgeclaim/engine/internal/store"
	"github.com/tgeclaim/engine/internal/summary"
	"github.com/tgeclaim/engine/internal/wallet"
)

var (
	// ErrWalletDisconnected is returned when a claim is submitted without
	// a connected wallet.
	ErrWalletDisconnected = errors.New("wallet not connected")
	// ErrUnknownStrategy is returned for a strategy with no settler.
	ErrUnknownStrategy = errors.New("unknown settlement strategy")
)

// Options configures an Engine. Nil fields get demo defaults.
type Options struct {
	Catalog *catalog.Catalog
	Legacy  *catalog.Catalog

	Connector wallet.Connector

	// Settlers is keyed by strategy name
	Settlers map[string]*settlement.Settler
	// DefaultStrategy is used when a caller names no strategy
	DefaultStrategy string

	Dashboard     *dashboard.Dashboard
	Notifications *notify.Center
	Metrics       *metrics.PrometheusCollector
}

// Batch is the outcome of one submission.
type Batch struct {
	Strategy string                   `json:"strategy"`
	Results  []store.SettlementResult `json:"results"`
	Counts   summary.Counts           `json:"counts"`
	Outcome  string                   `json:"outcome"`
	Elapsed  time.Duration            `json:"elapsed"`
}

// Engine is the application context. It is safe for concurrent use.
type Engine struct {
	catalog   *catalog.Catalog
	legacy    *catalog.Catalog
	selection *selection.State
	legacySel *selection.State
	session   *wallet.Session
	settlers  map[string]*settlement.Settler
	strategy  string
	dashboard *dashboard.Dashboard
	notices   *notify.Center
	metrics   *metrics.PrometheusCollector

	mu          sync.RWMutex
	lastBatch   *Batch
	subscribers map[uint64]func(feed.Event)
	nextSubID   uint64

	unsubscribeWallet func()
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Legacy == nil {
		opts.Legacy = catalog.Legacy()
	}
	if opts.Connector == nil {
		opts.Connector = wallet.MockConnector{Delay: 1500 * time.Millisecond, Address: catalog.MockWalletAddress}
	}
	if opts.Settlers == nil {
		opts.Settlers = DefaultSettlers(2*time.Second, 1500*time.Millisecond, 3500*time.Millisecond, 0)
	}
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = settlement.StrategyClaimAll
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewPrometheusCollector(metrics.NewMetricsTracker())
	}
	if opts.Dashboard == nil {
		opts.Dashboard = dashboard.New(time.Now, settlement.NewRandomOutcomes(0, 0, 0).TxHash)
	}
	if opts.Notifications == nil {
		opts.Notifications = notify.NewCenter(notify.DefaultDuration)
	}

	e := &Engine{
		catalog:     opts.Catalog,
		legacy:      opts.Legacy,
		selection:   selection.NewState(opts.Catalog),
		legacySel:   selection.NewState(opts.Legacy),
		session:     wallet.NewSession(opts.Connector),
		settlers:    opts.Settlers,
		strategy:    opts.DefaultStrategy,
		dashboard:   opts.Dashboard,
		notices:     opts.Notifications,
		metrics:     opts.Metrics,
		subscribers: make(map[uint64]func(feed.Event)),
	}

	e.unsubscribeWallet = e.session.Subscribe(func(s store.WalletState) {
		e.metrics.SetWallet(s)
		e.publish(feed.Event{Type: feed.TypeWallet, Data: s})
	})

	return e
}

// DefaultSettlers builds both named settlers: claim-all always succeeds
// after claimDelay, multi-chain draws per-chain outcomes with a delay in
// [minDelay, maxDelay].
func DefaultSettlers(claimDelay, minDelay, maxDelay time.Duration, seed uint64) map[string]*settlement.Settler {
	return map[string]*settlement.Settler{
		settlement.StrategyClaimAll: settlement.NewSettler(
			settlement.ClaimAll{},
			settlement.NewRandomOutcomes(claimDelay, claimDelay, seed),
		),
		settlement.StrategyMultiChain: settlement.NewSettler(
			settlement.MultiChain{},
			settlement.NewRandomOutcomes(minDelay, maxDelay, seed),
		),
	}
}

// Close releases the engine's wallet subscription and pending toasts.
func (e *Engine) Close() {
	e.unsubscribeWallet()
	e.notices.Clear()
}

// Subscribe registers fn for every engine event and returns a function
// that removes it. fn runs on the goroutine that caused the event.
func (e *Engine) Subscribe(fn func(feed.Event)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

func (e *Engine) publish(ev feed.Event) {
	e.mu.RLock()
	fns := make([]func(feed.Event), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *Engine) publishSelection() {
	snap := e.selection.Snapshot()
	e.publish(feed.Event{Type: feed.TypeSelection, Data: feed.SelectionEvent{
		Selected:   snap.Selected,
		Decisions:  snap.Decisions,
		Processing: snap.Processing,
	}})
}

// Notify shows a toast and publishes it as a notification event.
func (e *Engine) Notify(t notify.Toast) notify.Toast {
	t = e.notices.Show(t)
	e.publish(feed.Event{Type: feed.TypeNotification, Data: feed.NotificationEvent{
		ID:          t.ID,
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
	}})
	return t
}

// Offers returns the TGE offers in catalog order.
func (e *Engine) Offers() []store.Offer {
	return e.catalog.Offers()
}

// LegacyOffers returns the legacy chain rewards.
func (e *Engine) LegacyOffers() []store.Offer {
	return e.legacy.Offers()
}

// Selection returns the current selection snapshot.
func (e *Engine) Selection() selection.Snapshot {
	return e.selection.Snapshot()
}

// Toggle flips an offer in or out of the selection.
func (e *Engine) Toggle(offerID string) (bool, error) {
	selected, err := e.selection.Toggle(offerID)
	if err != nil {
		return false, err
	}
	slog.Debug("offer_toggled", "offer", offerID, "selected", selected)
	e.publishSelection()
	return selected, nil
}

// Decide records a staking decision for an offer. Staking takes the APR
// of the offer's option for duration and the offer amount as principal.
func (e *Engine) Decide(offerID string, willStake bool, duration store.Duration) (store.StakingDecision, error) {
	offer, ok := e.catalog.Lookup(offerID)
	if !ok {
		return store.StakingDecision{}, fmt.Errorf("%w: %s", selection.ErrUnknownOffer, offerID)
	}

	var terms *selection.StakeTerms
	if willStake {
		if duration == "" {
			return store.StakingDecision{}, fmt.Errorf("%w: duration", selection.ErrMissingStakingField)
		}
		opt, ok := offer.Option(duration)
		if !ok {
			return store.StakingDecision{}, fmt.Errorf("%w: %s is not offered for %s", rewards.ErrInvalidDuration, duration, offerID)
		}
		terms = &selection.StakeTerms{Duration: duration, APR: opt.APR, Principal: offer.Amount}
	}

	decision, err := e.selection.SetStakingDecision(offerID, willStake, terms)
	if err != nil {
		return store.StakingDecision{}, err
	}
	slog.Debug("staking_decided",
		"offer", offerID,
		"stake", decision.WillStake,
		"duration", decision.Duration,
		"estimated_rewards", decision.EstimatedRewards,
	)
	e.publishSelection()
	return decision, nil
}

// Summary returns the totals of the pending batch.
func (e *Engine) Summary() summary.Summary {
	snap := e.selection.Snapshot()
	return summary.Summarize(e.catalog.Offers(), snap.Selected, snap.Decisions)
}

// ToggleLegacy flips a legacy chain reward in or out of its selection.
func (e *Engine) ToggleLegacy(offerID string) (bool, error) {
	return e.legacySel.Toggle(offerID)
}

// LegacySummary returns the totals of the selected legacy rewards.
func (e *Engine) LegacySummary() summary.LegacySummary {
	return summary.SummarizeLegacy(e.legacy.Offers(), e.legacySel.Snapshot().Selected)
}

// DefaultStrategy returns the strategy used when none is named.
func (e *Engine) DefaultStrategy() string {
	return e.strategy
}

// Submit settles the selected claimable offers with the named strategy.
// Selection and decisions are left in place afterwards.
func (e *Engine) Submit(ctx context.Context, strategy string) (Batch, error) {
	return e.submit(ctx, strategy, e.catalog, e.selection)
}

// SubmitLegacy settles the selected legacy chain rewards with the
// multi-chain strategy.
func (e *Engine) SubmitLegacy(ctx context.Context) (Batch, error) {
	return e.submit(ctx, settlement.StrategyMultiChain, e.legacy, e.legacySel)
}

func (e *Engine) submit(ctx context.Context, strategy string, cat *catalog.Catalog, sel *selection.State) (Batch, error) {
	if !e.session.State().Connected {
		e.metrics.IncrementRejected()
		return Batch{}, ErrWalletDisconnected
	}

	settler, ok := e.settlers[strategy]
	if !ok {
		e.metrics.IncrementRejected()
		return Batch{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	snap := sel.Snapshot()
	offers := cat.Select(snap.Selected)
	if len(offers) == 0 {
		e.metrics.IncrementRejected()
		return Batch{}, settlement.ErrEmptySelection
	}

	if err := sel.BeginProcessing(); err != nil {
		e.metrics.IncrementRejected()
		return Batch{}, err
	}
	e.publishSelection()
	defer func() {
		sel.EndProcessing()
		e.publishSelection()
	}()

	start := time.Now()
	results, err := settler.Settle(ctx, offers, snap.Decisions)
	if err != nil {
		e.Notify(notify.FromError(err))
		return Batch{}, err
	}
	elapsed := time.Since(start)

	counts := summary.Tally(results)
	batch := Batch{
		Strategy: strategy,
		Results:  results,
		Counts:   counts,
		Outcome:  counts.Outcome(),
		Elapsed:  elapsed,
	}

	e.metrics.RecordBatch(strategy, results, elapsed)
	e.dashboard.Record(offers, results, snap.Decisions)

	e.mu.Lock()
	e.lastBatch = &batch
	e.mu.Unlock()

	e.publish(feed.Event{Type: feed.TypeSettlement, Data: feed.SettlementEvent{
		Strategy:  strategy,
		Outcome:   batch.Outcome,
		Succeeded: counts.Succeeded,
		Failed:    counts.Failed,
		Staked:    counts.Staked,
		Results:   results,
	}})
	e.Notify(notify.FromCounts(counts))

	return batch, nil
}

// LastBatch returns the most recent batch, if any.
func (e *Engine) LastBatch() (Batch, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastBatch == nil {
		return Batch{}, false
	}
	return *e.lastBatch, true
}

// Connect attaches the wallet. It is a no-op while connecting or connected.
func (e *Engine) Connect(ctx context.Context) error {
	err := e.session.Connect(ctx)
	switch {
	case err == nil:
	case errors.Is(err, wallet.ErrConnectionAborted):
		// Disconnect won the race; nothing to report
	default:
		e.Notify(notify.Toast{Type: notify.TypeError, Title: "Wallet connection failed", Description: err.Error()})
	}
	return err
}

// Disconnect detaches the wallet.
func (e *Engine) Disconnect() {
	e.session.Disconnect()
}

// Wallet returns the wallet state.
func (e *Engine) Wallet() store.WalletState {
	return e.session.State()
}

// Dashboard returns the staking dashboard after refreshing accrued rewards.
func (e *Engine) Dashboard() dashboard.Data {
	e.dashboard.Refresh()
	return e.dashboard.Data()
}

// ClaimPosition withdraws an unlocked staking position.
func (e *Engine) ClaimPosition(positionID string) (store.ClaimRecord, error) {
	record, err := e.dashboard.ClaimPosition(positionID)
	if err != nil {
		return store.ClaimRecord{}, err
	}
	e.Notify(notify.Toast{
		Type:        notify.TypeSuccess,
		Title:       "Staking rewards claimed",
		Description: fmt.Sprintf("%s %.2f", record.TokenSymbol, record.ClaimedAmount),
	})
	return record, nil
}

// Notifications returns the visible toasts.
func (e *Engine) Notifications() []notify.Toast {
	return e.notices.List()
}

// DismissNotification removes a toast.
func (e *Engine) DismissNotification(id string) {
	e.notices.Remove(id)
}

// Metrics returns the metrics collector.
func (e *Engine) Metrics() *metrics.PrometheusCollector {
	return e.metrics
}

// Reset clears both selections and the last batch. It does not touch the
// wallet or dashboard, and is refused while a batch is in flight.
func (e *Engine) Reset() error {
	if e.selection.Snapshot().Processing || e.legacySel.Snapshot().Processing {
		return selection.ErrBusy
	}
	e.selection.Reset()
	e.legacySel.Reset()

	e.mu.Lock()
	e.lastBatch = nil
	e.mu.Unlock()

	slog.Info("selection_reset")
	e.publishSelection()
	return nil
}
