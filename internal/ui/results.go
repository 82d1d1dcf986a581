package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/tgeclaim/engine/internal/engine"
	"github.com/tgeclaim/engine/internal/notify"
	"github.com/tgeclaim/engine/internal/store"
)

// ResultsView displays notifications and the results of the last batch.
type ResultsView struct {
	list *tview.List
}

// NewResultsView creates a new results view.
func NewResultsView() *ResultsView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" Results ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	return &ResultsView{
		list: list,
	}
}

// Widget returns the tview primitive.
func (v *ResultsView) Widget() tview.Primitive {
	return v.list
}

// Update rebuilds the list. Toasts come first, newest on top.
func (v *ResultsView) Update(toasts []notify.Toast, batch engine.Batch, hasBatch bool) {
	v.list.Clear()

	for i := len(toasts) - 1; i >= 0; i-- {
		main, secondary := formatToast(toasts[i])
		v.list.AddItem(main, secondary, 0, nil)
	}

	if !hasBatch {
		if len(toasts) == 0 {
			v.list.AddItem("No claims submitted yet", "space: select  1/3/6: stake  enter: settle", 0, nil)
		}
		v.list.SetTitle(" Results ")
		return
	}

	for _, r := range batch.Results {
		main, secondary := formatResult(r)
		v.list.AddItem(main, secondary, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" Results: %s %s (%d/%d) ",
		batch.Strategy, batch.Outcome, batch.Counts.Succeeded, batch.Counts.Total))
}

func formatToast(t notify.Toast) (string, string) {
	var color string
	switch t.Type {
	case notify.TypeSuccess:
		color = "green"
	case notify.TypeError:
		color = "red"
	case notify.TypeWarning:
		color = "orange"
	default:
		color = "blue"
	}
	return fmt.Sprintf("[%s]%s[-]", color, t.Title), t.Description
}

func formatResult(r store.SettlementResult) (string, string) {
	if !r.Success {
		return fmt.Sprintf("[red]x[-] %s", r.OfferID), "Failed: " + r.Error
	}

	main := fmt.Sprintf("[green]ok[-] %s", r.OfferID)
	if r.Staked {
		main += " [blue](staked)[-]"
	}
	return main, "Tx: " + r.TxHash
}
