package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgeclaim/engine/internal/catalog"
	"github.com/tgeclaim/engine/internal/feed"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSetupLoggerLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		logger := setupLogger(in, &bytes.Buffer{})
		assert.True(t, logger.Enabled(context.Background(), want), in)
		if want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), want-4), in)
		}
	}
}

func TestSetupLoggerTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	setupLogger("INFO", &buf).Info("engine_started", "api_addr", ":8080")

	line := buf.String()
	assert.Regexp(t, `^time="\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}"`, line)
	assert.Contains(t, line, "msg=engine_started")
	assert.Contains(t, line, "api_addr=:8080")
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, catalog.TGEOffers(), false))

	out := buf.String()
	assert.Contains(t, out, "enso-chain")
	assert.Contains(t, out, "85.00 $ENSO")
	assert.Contains(t, out, "1M@6%")
	assert.Equal(t, len(catalog.TGEOffers())+1, strings.Count(out, "\n"))
}

func TestPrintLegacyCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, catalog.LegacyRewards(), true))

	out := buf.String()
	assert.Contains(t, out, "zksync")
	assert.Contains(t, out, "$240.50")
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"run", "serve", "catalog", "watch"}, names)
}

func TestCatalogCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"catalog", "--legacy"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "linea")
}

func TestInvalidConfigFailsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SETTLE_STRATEGY", "yolo")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"catalog"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SETTLE_STRATEGY")
}

func TestWatchFeedPrintsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := feed.NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchFeed(ctx, &out, "ws"+strings.TrimPrefix(srv.URL, "http"), []string{feed.TypeSettlement})
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(feed.Event{Type: feed.TypeSettlement, Data: feed.SettlementEvent{
		Strategy:  "multi-chain",
		Outcome:   "partial",
		Succeeded: 1,
		Failed:    1,
	}})

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "multi-chain") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
