package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/tgeclaim/engine/internal/dashboard"
	"github.com/tgeclaim/engine/internal/store"
)

var positionHeaders = []string{"Token", "Staked", "APR", "Lock", "Unlocks In", "Accrued", "Status"}

// PositionsView displays the staking dashboard.
type PositionsView struct {
	table *tview.Table
}

// NewPositionsView creates a new positions view.
func NewPositionsView() *PositionsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Staking Dashboard ").SetBorder(true)

	v := &PositionsView{table: table}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *PositionsView) Widget() tview.Primitive {
	return v.table
}

func (v *PositionsView) setHeader() {
	for col, header := range positionHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

// Update refreshes the dashboard display.
func (v *PositionsView) Update(data dashboard.Data, now time.Time) {
	v.table.Clear()
	v.setHeader()

	row := 1
	for _, p := range data.UnlockedPositions {
		v.setRow(row, p, "ready", tcell.ColorGreen, now)
		row++
	}
	for _, p := range data.ActivePositions {
		v.setRow(row, p, "locked", tcell.ColorWhite, now)
		row++
	}

	v.table.SetTitle(fmt.Sprintf(" Staking Dashboard: %s staked, %s pending, %d claims ",
		formatAmount(data.TotalStakedValue),
		formatAmount(data.TotalPendingRewards),
		len(data.ClaimHistory),
	))
}

func (v *PositionsView) setRow(row int, p store.StakedPosition, status string, color tcell.Color, now time.Time) {
	cells := []string{
		p.TokenSymbol,
		formatAmount(p.StakedAmount),
		fmt.Sprintf("%.0f%%", p.StakingAPR),
		p.LockDuration.DisplayName(),
		formatRemaining(dashboard.TimeRemaining(p.UnlockDate, now)),
		formatAmount(p.AccruedRewards),
		status,
	}
	for col, text := range cells {
		cell := tview.NewTableCell(text).
			SetTextColor(color).
			SetAlign(tview.AlignLeft)
		v.table.SetCell(row, col, cell)
	}
}
