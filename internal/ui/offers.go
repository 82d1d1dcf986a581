package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/tgeclaim/engine/internal/selection"
	"github.com/tgeclaim/engine/internal/store"
)

var offerHeaders = []string{"", "Project", "Chain", "Token", "Amount", "TGE", "Stake", "Est. Rewards"}

// OffersView displays the TGE catalog with selection and staking state.
type OffersView struct {
	table  *tview.Table
	offers []store.Offer
}

// NewOffersView creates a new offers view.
func NewOffersView() *OffersView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" TGE Airdrops ").SetBorder(true)

	v := &OffersView{table: table}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *OffersView) Widget() tview.Primitive {
	return v.table
}

// Current returns the offer under the cursor.
func (v *OffersView) Current() (store.Offer, bool) {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.offers) {
		return store.Offer{}, false
	}
	return v.offers[idx], true
}

func (v *OffersView) setHeader() {
	for col, header := range offerHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

// Update redraws the table from the catalog and selection.
func (v *OffersView) Update(offers []store.Offer, snap selection.Snapshot) {
	row, _ := v.table.GetSelection()

	v.offers = offers
	v.table.Clear()
	v.setHeader()

	selected := 0
	for i, offer := range offers {
		mark := "[ ]"
		if snap.IsSelected(offer.ID) {
			mark = "[x]"
			selected++
		}

		stake, estimate := "-", "-"
		if d, ok := snap.Decision(offer.ID); ok {
			if d.WillStake {
				stake = fmt.Sprintf("%s @ %.0f%%", d.Duration.DisplayName(), d.APR)
				estimate = formatAmount(d.EstimatedRewards)
			} else {
				stake = "no"
			}
		}

		color := tcell.ColorWhite
		amount := formatAmount(offer.Amount)
		if !offer.Claimable {
			color = tcell.ColorGray
			mark = "   "
			if offer.AlreadyStaked {
				amount = "staked"
			} else {
				amount = "not eligible"
			}
		}

		cells := []string{
			mark,
			offer.ProjectName,
			offer.Chain,
			offer.Token,
			amount,
			offer.TGEDate,
			stake,
			estimate,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetTextColor(color).
				SetAlign(tview.AlignLeft).
				SetExpansion(1)
			v.table.SetCell(i+1, col, cell)
		}
	}

	if row < 1 {
		row = 1
	}
	if row > len(offers) {
		row = len(offers)
	}
	v.table.Select(row, 0)

	title := fmt.Sprintf(" TGE Airdrops (%d selected) ", selected)
	if snap.Processing {
		title = " TGE Airdrops [yellow](processing...)[-] "
	}
	v.table.SetTitle(title)
}
