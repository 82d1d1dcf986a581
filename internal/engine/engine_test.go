package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

type rejectingConnector struct{}

func (rejectingConnector) Connect(ctx context.Context) (string, error) {
	return "", errors.New("user rejected")
}

func newTestEngine(t *testing.T, outcomes settlement.FixedOutcomes) *Engine {
	t.Helper()

	e := New(Options{
		Connector: wallet.MockConnector{Address: "0xTEST"},
		Settlers: map[string]*settlement.Settler{
			settlement.StrategyClaimAll:   settlement.NewSettler(settlement.ClaimAll{}, outcomes),
			settlement.StrategyMultiChain: settlement.NewSettler(settlement.MultiChain{}, outcomes),
		},
		Dashboard:     dashboard.New(func() time.Time { return testNow }, outcomes.TxHash),
		Notifications: notify.NewCenter(time.Minute),
	})
	t.Cleanup(e.Close)
	return e
}

func connected(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Connect(context.Background()))
	require.True(t, e.Wallet().Connected)
}

type recorder struct {
	mu     sync.Mutex
	events []feed.Event
}

func (r *recorder) add(ev feed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestSubmitRequiresWallet(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	_, err := e.Toggle("enso-chain")
	require.NoError(t, err)

	_, err = e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.ErrorIs(t, err, ErrWalletDisconnected)
	assert.Equal(t, int64(1), e.Metrics().Tracker().Snapshot().RejectedTotal)
}

func TestSubmitEmptySelection(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	connected(t, e)

	_, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.ErrorIs(t, err, settlement.ErrEmptySelection)

	// Non-claimable selections are filtered out before settlement
	_, err = e.Toggle("plasma-chain")
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.ErrorIs(t, err, settlement.ErrEmptySelection)
}

func TestSubmitUnknownStrategy(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	connected(t, e)
	e.Toggle("enso-chain")

	_, err := e.Submit(context.Background(), "yolo")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSubmitClaimAll(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{Hash: "0xfeed"})
	connected(t, e)

	_, err := e.Toggle("enso-chain")
	require.NoError(t, err)
	_, err = e.Toggle("allora-cosmos")
	require.NoError(t, err)
	_, err = e.Decide("enso-chain", true, store.Duration3M)
	require.NoError(t, err)

	before := len(e.Dashboard().ActivePositions)

	batch, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "enso-chain", batch.Results[0].OfferID)
	assert.True(t, batch.Results[0].Staked)
	assert.Equal(t, "0xfeed", batch.Results[0].TxHash)
	assert.Equal(t, "allora-cosmos", batch.Results[1].OfferID)
	assert.False(t, batch.Results[1].Staked)
	assert.Equal(t, summary.Counts{Total: 2, Succeeded: 2, Staked: 1}, batch.Counts)
	assert.Equal(t, summary.OutcomeSuccess, batch.Outcome)

	// Selection stays, processing is cleared
	snap := e.Selection()
	assert.False(t, snap.Processing)
	assert.Len(t, snap.Selected, 2)

	data := e.Dashboard()
	assert.Len(t, data.ActivePositions, before+1)
	require.GreaterOrEqual(t, len(data.ClaimHistory), 2)
	assert.Equal(t, "0xfeed", data.ClaimHistory[0].TxHash)

	toasts := e.Notifications()
	require.NotEmpty(t, toasts)
	last := toasts[len(toasts)-1]
	assert.Equal(t, notify.TypeSuccess, last.Type)
	assert.Equal(t, "2 TGE tokens claimed successfully! 1 are immediately staked.", last.Title)

	got, ok := e.LastBatch()
	require.True(t, ok)
	assert.Equal(t, batch.Counts, got.Counts)

	m := e.Metrics().Tracker().Snapshot()
	assert.Equal(t, int64(1), m.BatchesByStrategy[settlement.StrategyClaimAll])
	assert.Equal(t, "connected", m.WalletStatus)
}

func TestSubmitMultiChainPartial(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{Failing: map[string]bool{"ethereum": true}})
	connected(t, e)

	e.Toggle("enso-chain")
	e.Toggle("opensea-ethereum")
	_, err := e.Decide("opensea-ethereum", true, store.Duration6M)
	require.NoError(t, err)

	batch, err := e.Submit(context.Background(), settlement.StrategyMultiChain)
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	failed := batch.Results[1]
	assert.Equal(t, "opensea-ethereum", failed.OfferID)
	assert.False(t, failed.Success)
	assert.False(t, failed.Staked, "a failed item is never staked")
	assert.Equal(t, settlement.ReasonNetworkError, failed.Error)
	assert.Equal(t, summary.OutcomePartial, batch.Outcome)

	toasts := e.Notifications()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Success: 1, Failed: 1", toasts[len(toasts)-1].Description)
}

func TestSubmitWhileProcessing(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{Wait: 200 * time.Millisecond})
	connected(t, e)
	e.Toggle("enso-chain")

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
		done <- err
	}()

	require.Eventually(t, func() bool { return e.Selection().Processing }, time.Second, 5*time.Millisecond)

	_, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
	assert.ErrorIs(t, err, selection.ErrBusy)
	assert.ErrorIs(t, e.Reset(), selection.ErrBusy)

	require.NoError(t, <-done)
	assert.False(t, e.Selection().Processing)
}

func TestSubmitOutlivesCallerContext(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{Wait: 100 * time.Millisecond})
	connected(t, e)
	e.Toggle("enso-chain")
	e.Toggle("allora-cosmos")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	batch, err := e.Submit(ctx, settlement.StrategyClaimAll)
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	for _, r := range batch.Results {
		assert.True(t, r.Success, r.Error)
	}
	assert.Equal(t, summary.OutcomeSuccess, batch.Outcome)
	assert.False(t, e.Selection().Processing)

	snapshot := e.Metrics().Tracker().Snapshot()
	assert.Zero(t, snapshot.ItemsByOutcome[metrics.OutcomeFailed])
}

func TestConnectOutlivesCallerContext(t *testing.T) {
	e := New(Options{Connector: wallet.MockConnector{Delay: 50 * time.Millisecond, Address: "0xTEST"}})
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	require.NoError(t, e.Connect(ctx))
	assert.True(t, e.Wallet().Connected)
	assert.Empty(t, e.Notifications())
}

func TestDecide(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})

	d, err := e.Decide("enso-chain", true, store.Duration3M)
	require.NoError(t, err)
	assert.Equal(t, 12.0, d.APR)
	assert.Equal(t, 2.55, d.EstimatedRewards)

	d, err = e.Decide("enso-chain", false, "")
	require.NoError(t, err)
	assert.Equal(t, store.StakingDecision{OfferID: "enso-chain"}, d)

	_, err = e.Decide("enso-chain", true, "12M")
	assert.ErrorIs(t, err, rewards.ErrInvalidDuration)

	_, err = e.Decide("enso-chain", true, "")
	assert.ErrorIs(t, err, selection.ErrMissingStakingField)

	_, err = e.Decide("nope", false, "")
	assert.ErrorIs(t, err, selection.ErrUnknownOffer)
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})

	e.Toggle("allora-cosmos")
	e.Toggle("enso-chain")
	e.Toggle("plasma-chain")
	e.Decide("enso-chain", true, store.Duration3M)
	e.Decide("allora-cosmos", true, store.Duration6M)
	e.Decide("opensea-ethereum", true, store.Duration1M) // not selected

	s := e.Summary()
	assert.Equal(t, 3, s.TotalClaimable)
	assert.Equal(t, []string{"enso-chain", "allora-cosmos"}, s.Selected)
	assert.Equal(t, 2, s.StakingCount())
	// 2.55 + 230*9/100/12*6 = 2.55 + 10.35
	assert.Equal(t, 12.9, s.EstimatedTotalRewards)
}

func TestToggleErrors(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	_, err := e.Toggle("missing")
	assert.ErrorIs(t, err, selection.ErrUnknownOffer)
}

func TestLegacyFlow(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	connected(t, e)

	_, err := e.ToggleLegacy("zksync")
	require.NoError(t, err)
	_, err = e.ToggleLegacy("linea")
	require.NoError(t, err)

	s := e.LegacySummary()
	assert.Equal(t, 2, s.TotalClaimableChains)
	assert.Equal(t, 325.8, s.TotalUSDValue)
	assert.Equal(t, 27.0, s.EstimatedGasFee)

	batch, err := e.SubmitLegacy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settlement.StrategyMultiChain, batch.Strategy)
	assert.Equal(t, 2, batch.Counts.Succeeded)
}

func TestEvents(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	rec := &recorder{}
	unsubscribe := e.Subscribe(rec.add)

	connected(t, e)
	e.Toggle("enso-chain")
	_, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.NoError(t, err)

	assert.Equal(t, []string{
		feed.TypeWallet,       // connecting
		feed.TypeWallet,       // connected
		feed.TypeSelection,    // toggle
		feed.TypeSelection,    // processing
		feed.TypeSettlement,   // results
		feed.TypeNotification, // toast
		feed.TypeSelection,    // done
	}, rec.types())

	unsubscribe()
	e.Disconnect()
	assert.Len(t, rec.types(), 7)
}

func TestConnectRejected(t *testing.T) {
	e := New(Options{Connector: rejectingConnector{}, Notifications: notify.NewCenter(time.Minute)})
	defer e.Close()

	err := e.Connect(context.Background())
	require.ErrorIs(t, err, wallet.ErrConnectionRejected)
	assert.False(t, e.Wallet().Connected)

	toasts := e.Notifications()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.TypeError, toasts[0].Type)

	e.DismissNotification(toasts[0].ID)
	assert.Empty(t, e.Notifications())
}

func TestClaimPosition(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{Hash: "0xabc"})

	e.dashboard.AddPosition(store.StakedPosition{
		ID:               "stake-done",
		OfferID:          "allora-cosmos",
		TokenSymbol:      "$ALLO",
		StakedAmount:     100,
		EstimatedRewards: 2.5,
		StakingStartDate: testNow.AddDate(0, -1, 0),
		UnlockDate:       testNow.Add(-time.Hour),
		Status:           store.PositionLocked,
	})

	record, err := e.ClaimPosition("stake-done")
	require.NoError(t, err)
	assert.Equal(t, 102.5, record.ClaimedAmount)
	assert.Equal(t, "0xabc", record.TxHash)

	_, err = e.ClaimPosition("stake-done")
	assert.ErrorIs(t, err, dashboard.ErrUnknownPosition)

	toasts := e.Notifications()
	require.Len(t, toasts, 1)
	assert.Equal(t, "$ALLO 102.50", toasts[0].Description)
}

func TestReset(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	connected(t, e)
	e.Toggle("enso-chain")
	e.ToggleLegacy("zksync")
	e.Decide("enso-chain", false, "")
	_, err := e.Submit(context.Background(), settlement.StrategyClaimAll)
	require.NoError(t, err)

	require.NoError(t, e.Reset())

	assert.Empty(t, e.Selection().Selected)
	assert.Empty(t, e.Selection().Decisions)
	assert.Empty(t, e.LegacySummary().Selected)
	_, ok := e.LastBatch()
	assert.False(t, ok)
	assert.True(t, e.Wallet().Connected)
}

func TestDefaultStrategy(t *testing.T) {
	e := newTestEngine(t, settlement.FixedOutcomes{})
	assert.Equal(t, settlement.StrategyClaimAll, e.DefaultStrategy())

	multi := New(Options{DefaultStrategy: settlement.StrategyMultiChain})
	defer multi.Close()
	assert.Equal(t, settlement.StrategyMultiChain, multi.DefaultStrategy())
}
