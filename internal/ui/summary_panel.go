package ui

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/tgeclaim/engine/internal/metrics"
	"github.com/tgeclaim/engine/internal/store"
	"github.com/tgeclaim/engine/internal/summary"
)

// SummaryView displays the pending batch, wallet status and engine stats.
type SummaryView struct {
	textView *tview.TextView
}

// NewSummaryView creates a new summary view.
func NewSummaryView() *SummaryView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Claim Summary ").SetBorder(true)

	return &SummaryView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *SummaryView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the summary display.
func (v *SummaryView) Update(s summary.Summary, wallet store.WalletState, snapshot metrics.MetricsSnapshot) {
	v.textView.Clear()

	walletStatus := metrics.WalletStatus(wallet)
	walletColor := "red"
	switch {
	case wallet.Connected:
		walletColor = "green"
	case wallet.Connecting:
		walletColor = "yellow"
	}

	address := truncateAddress(wallet.Address)
	if address == "" {
		address = "-"
	}

	lastBatch := "never"
	if !snapshot.LastBatch.IsZero() {
		lastBatch = formatTimeAgo(snapshot.LastBatch)
	}

	text := fmt.Sprintf(`[yellow]Wallet[-]
Status: [%s]%s[-]
Address: %s

[yellow]Pending Claim[-]
Claimable: %d
Selected: %d
Staking: %d
Est. Rewards: %s

[yellow]Engine[-]
Uptime: %s
Batches: %d (last %s)
Items: %d ok / %d failed / %d staked
Rejected: %d
`,
		walletColor, walletStatus,
		address,
		s.TotalClaimable,
		s.SelectedCount(),
		s.StakingCount(),
		formatAmount(s.EstimatedTotalRewards),
		formatDuration(snapshot.Uptime),
		snapshot.BatchesTotal, lastBatch,
		snapshot.ItemsByOutcome[metrics.OutcomeSucceeded],
		snapshot.ItemsByOutcome[metrics.OutcomeFailed],
		snapshot.ItemsByOutcome[metrics.OutcomeStaked],
		snapshot.RejectedTotal,
	)

	fmt.Fprint(v.textView, text)
}
