package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tgeclaim/engine/internal/api"
	"github.com/tgeclaim/engine/internal/catalog"
	"github.com/tgeclaim/engine/internal/config"
	"github.com/tgeclaim/engine/internal/dashboard"
	"github.com/tgeclaim/engine/internal/engine"
	"github.com/tgeclaim/engine/internal/feed"
	"github.com/tgeclaim/engine/internal/metrics"
	"github.com/tgeclaim/engine/internal/notify"
	"github.com/tgeclaim/engine/internal/settlement"
	"github.com/tgeclaim/engine/internal/store"
	"github.com/tgeclaim/engine/internal/ui"
	"github.com/tgeclaim/engine/internal/wallet"
	"golang.org/x/sync/errgroup"
)

// FeedChannelBuffer is the size of the buffered envelope channel used by watch.
const FeedChannelBuffer = 100

func newRunCmd(c *cli) *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine with the terminal UI, API and event feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			enableTUI := c.cfg.EnableTUI && !noTUI
			if enableTUI {
				w, closeLog, err := tuiLogWriter(c.cfg.LogFile)
				if err != nil {
					return err
				}
				defer closeLog()
				slog.SetDefault(setupLogger(c.cfg.LogLevel, w))
			}
			return runEngine(cmd.Context(), c.cfg, enableTUI)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable the terminal UI")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API, event feed and metrics without a UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), c.cfg, false)
		},
	}
}

func newCatalogCmd(c *cli) *cobra.Command {
	var legacy bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the offer catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if legacy {
				return printCatalog(cmd.OutOrStdout(), catalog.Legacy().Offers(), true)
			}
			cat, err := catalog.Load(cmd.Context(), c.cfg.CatalogPath)
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), cat.Offers(), false)
		},
	}

	cmd.Flags().BoolVar(&legacy, "legacy", false, "Print the legacy chain rewards instead")
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	var (
		url   string
		types []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the event feed of a running engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = c.cfg.FeedURL
			}
			return watchFeed(cmd.Context(), cmd.OutOrStdout(), url, types)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Feed URL (defaults to FEED_URL)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Only print these event types (wallet, selection, settlement, notification)")
	return cmd
}

// buildEngine assembles the engine from configuration.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	cat, err := catalog.Load(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	dash := dashboard.New(time.Now, settlement.NewRandomOutcomes(0, 0, cfg.OutcomeSeed).TxHash)
	if cfg.DemoDashboardSeed {
		dashboard.SeedDemo(dash, time.Now())
	}

	eng := engine.New(engine.Options{
		Catalog:         cat,
		Legacy:          catalog.Legacy(),
		Connector:       wallet.MockConnector{Delay: cfg.WalletConnectDelay, Address: cfg.MockWalletAddress},
		Settlers:        engine.DefaultSettlers(cfg.ClaimAllDelay, cfg.SettleMinDelay, cfg.SettleMaxDelay, cfg.OutcomeSeed),
		DefaultStrategy: cfg.SettleStrategy,
		Dashboard:       dash,
		Notifications:   notify.NewCenter(cfg.ToastDuration),
		Metrics:         metrics.NewPrometheusCollector(metrics.NewMetricsTracker()),
	})

	slog.Info("engine_built",
		"offers", cat.Len(),
		"strategy", cfg.SettleStrategy,
		"wallet", cfg.MaskedWalletAddress(),
	)
	return eng, nil
}

// runEngine serves the API, feed and metrics, optionally with the TUI,
// until a shutdown signal arrives.
func runEngine(parent context.Context, cfg *config.Config, enableTUI bool) error {
	slog.Info("tgeclaim starting", "version", version)
	slog.Info("config_loaded",
		"catalog_path", cfg.CatalogPath,
		"settle_strategy", cfg.SettleStrategy,
		"api_addr", cfg.APIAddr,
		"prometheus_port", cfg.PrometheusPort,
		"enable_tui", enableTUI,
		"wallet", cfg.MaskedWalletAddress(),
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	hub := feed.NewHub()
	unsubscribe := eng.Subscribe(hub.Publish)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return api.NewServer(eng, hub).ListenAndServe(gctx, cfg.APIAddr)
	})
	if cfg.PrometheusPort > 0 {
		g.Go(func() error {
			return serveMetrics(gctx, fmt.Sprintf(":%d", cfg.PrometheusPort), eng.Metrics().Handler())
		})
	}

	slog.Info("engine_started", "api_addr", cfg.APIAddr, "tui_enabled", enableTUI)

	if enableTUI {
		app := ui.NewApp(eng, cfg.UIRefreshRate)

		// Run the TUI in a goroutine so signals are still handled
		tuiDone := make(chan error, 1)
		go func() {
			tuiDone <- app.Run()
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
			<-tuiDone
		case err := <-tuiDone:
			if err != nil {
				slog.Error("tui_error", "error", err)
			}
		case <-gctx.Done():
			app.Stop()
			<-tuiDone
		}
	} else {
		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
		case <-gctx.Done():
		}
	}

	slog.Info("shutting_down")
	cancel()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service failed: %w", err)
	}

	slog.Info("shutdown_complete")
	return nil
}

// serveMetrics exposes handler at /metrics on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics_server_started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// printCatalog writes one row per offer.
func printCatalog(w io.Writer, offers []store.Offer, legacy bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if legacy {
		fmt.Fprintln(tw, "ID\tCHAIN\tAMOUNT\tUSD\tGAS")
		for _, o := range offers {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t$%s\t$%s\n",
				o.ID, o.Chain,
				humanize.FormatFloat("#,###.##", o.Amount), o.Token,
				humanize.FormatFloat("#,###.##", o.USDValue),
				humanize.FormatFloat("#,###.##", o.EstimatedGas),
			)
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "ID\tPROJECT\tCHAIN\tAMOUNT\tCLAIMABLE\tSTAKING")
	for _, o := range offers {
		staking := "-"
		if len(o.StakingOptions) > 0 {
			staking = ""
			for i, opt := range o.StakingOptions {
				if i > 0 {
					staking += " "
				}
				staking += fmt.Sprintf("%s@%g%%", opt.Duration, opt.APR)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%t\t%s\n",
			o.ID, o.ProjectName, o.Chain,
			humanize.FormatFloat("#,###.##", o.Amount), o.Token,
			o.Claimable, staking,
		)
	}
	return tw.Flush()
}

// watchFeed prints feed events from url until interrupted.
func watchFeed(parent context.Context, w io.Writer, url string, types []string) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	envelopes := make(chan feed.Envelope, FeedChannelBuffer)
	listener := feed.NewListener(url, envelopes, types...)
	listener.Start(ctx)
	defer listener.Stop()

	slog.Info("watch_started", "url", url, "types", types)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch_stopped")
			return nil
		case env := <-envelopes:
			fmt.Fprintf(w, "%s  %s\n", time.Now().Format("15:04:05"), feed.Describe(env))
		}
	}
}
