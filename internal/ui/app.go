// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/tgeclaim/engine/internal/engine"
	"github.com/tgeclaim/engine/internal/feed"
	"github.com/tgeclaim/engine/internal/notify"
	"github.com/tgeclaim/engine/internal/settlement"
	"github.com/tgeclaim/engine/internal/store"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	offers    *OffersView
	summary   *SummaryView
	results   *ResultsView
	positions *PositionsView
	help      *tview.TextView

	engine      *engine.Engine
	events      chan feed.Event
	unsubscribe func()
	refreshRate time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application over eng.
func NewApp(eng *engine.Engine, refreshRate time.Duration) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:         tview.NewApplication(),
		engine:      eng,
		events:      make(chan feed.Event, 64),
		refreshRate: refreshRate,
		ctx:         ctx,
		cancel:      cancel,
	}

	a.offers = NewOffersView()
	a.summary = NewSummaryView()
	a.results = NewResultsView()
	a.positions = NewPositionsView()
	a.help = tview.NewTextView().
		SetDynamicColors(true).
		SetText(" [yellow]space[-] select  [yellow]0[-] no stake  [yellow]1/3/6[-] stake months  [yellow]enter[-] settle  [yellow]m[-] multi-chain  [yellow]c/d[-] connect/disconnect  [yellow]x[-] reset  [yellow]q[-] quit")

	a.setupLayout()
	a.setupKeyboard()

	return a
}

// setupLayout creates the panel layout.
func (a *App) setupLayout() {
	// Top row: Offers (left) | Summary (right)
	topRow := tview.NewFlex().
		AddItem(a.offers.Widget(), 0, 3, true).
		AddItem(a.summary.Widget(), 0, 1, false)

	// Bottom row: Results (left) | Dashboard (right)
	bottomRow := tview.NewFlex().
		AddItem(a.results.Widget(), 0, 1, false).
		AddItem(a.positions.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 3, true).
		AddItem(bottomRow, 0, 2, false).
		AddItem(a.help, 1, 0, false)

	a.app.SetRoot(a.layout, true).SetFocus(a.offers.Widget())
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyEnter:
			a.submit(a.engine.DefaultStrategy())
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case ' ':
				a.toggleCurrent()
				return nil
			case '0':
				a.decideCurrent(false, "")
				return nil
			case '1':
				a.decideCurrent(true, store.Duration1M)
				return nil
			case '3':
				a.decideCurrent(true, store.Duration3M)
				return nil
			case '6':
				a.decideCurrent(true, store.Duration6M)
				return nil
			case 'm', 'M':
				a.submit(settlement.StrategyMultiChain)
				return nil
			case 'c', 'C':
				go a.engine.Connect(a.ctx)
				return nil
			case 'd', 'D':
				a.engine.Disconnect()
				return nil
			case 'x', 'X':
				if err := a.engine.Reset(); err != nil {
					a.reportError(err)
				}
				return nil
			case 'r', 'R':
				a.redraw()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	a.unsubscribe = a.engine.Subscribe(func(ev feed.Event) {
		select {
		case a.events <- ev:
		default:
			// The periodic refresh catches up
		}
	})
	defer a.unsubscribe()

	a.redraw()

	go a.processEvents()
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) toggleCurrent() {
	offer, ok := a.offers.Current()
	if !ok {
		return
	}
	if !offer.Claimable {
		a.reportError(fmt.Errorf("%s is not claimable", offer.ProjectName))
		return
	}
	if _, err := a.engine.Toggle(offer.ID); err != nil {
		a.reportError(err)
	}
}

func (a *App) decideCurrent(willStake bool, d store.Duration) {
	offer, ok := a.offers.Current()
	if !ok || !offer.Claimable {
		return
	}
	if _, err := a.engine.Decide(offer.ID, willStake, d); err != nil {
		a.reportError(err)
	}
}

// submit settles the selection in the background; progress arrives as
// engine events.
func (a *App) submit(strategy string) {
	go func() {
		if _, err := a.engine.Submit(a.ctx, strategy); err != nil {
			slog.Warn("submit_failed", "strategy", strategy, "error", err)
			a.reportError(err)
		}
	}()
}

// reportError shows err as a notification.
func (a *App) reportError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	a.engine.Notify(notify.FromError(err))
}

// processEvents redraws on every engine event.
func (a *App) processEvents() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-a.events:
			slog.Debug("ui_event", "type", ev.Type)
			a.refresh()
		}
	}
}

// updateLoop periodically refreshes views so timers and expiring
// notifications stay current.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh redraws all views from a queued update.
func (a *App) refresh() {
	a.app.QueueUpdateDraw(a.redraw)
}

// redraw must run on the UI goroutine or before Run.
func (a *App) redraw() {
	batch, ok := a.engine.LastBatch()
	snapshot := a.engine.Metrics().Tracker().Snapshot()

	a.offers.Update(a.engine.Offers(), a.engine.Selection())
	a.summary.Update(a.engine.Summary(), a.engine.Wallet(), snapshot)
	a.results.Update(a.engine.Notifications(), batch, ok)
	a.positions.Update(a.engine.Dashboard(), time.Now())
}
