package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Reconnection constants
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 30 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2

	// HeartbeatTimeout is longer than the hub's ping period so a quiet
	// but healthy feed is never probed.
	HeartbeatTimeout = 60 * time.Second
	PongTimeout      = 10 * time.Second

	WriteTimeout = 10 * time.Second
)

// Listener follows an engine event feed, reconnecting with backoff.
type Listener struct {
	url   string
	out   chan<- Envelope
	types []string

	conn    *websocket.Conn
	connMu  sync.Mutex
	backoff time.Duration

	lastSeen   time.Time
	lastSeenMu sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewListener creates a listener that delivers envelopes to out. When
// types are given only envelopes of those types are delivered.
func NewListener(url string, out chan<- Envelope, types ...string) *Listener {
	return &Listener{
		url:      url,
		out:      out,
		types:    types,
		backoff:  InitialBackoff,
		stopChan: make(chan struct{}),
	}
}

// Start begins listening with automatic reconnection.
func (l *Listener) Start(ctx context.Context) {
	l.wg.Add(2)
	go l.runLoop(ctx)
	go l.heartbeatMonitor(ctx)
}

// Stop shuts the listener down and waits for its goroutines. It is safe
// to call more than once.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.closeConnection()
	l.wg.Wait()
}

// Connected reports whether a feed connection is open.
func (l *Listener) Connected() bool {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	return l.conn != nil
}

func (l *Listener) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-l.stopChan:
		return true
	default:
		return false
	}
}

// runLoop dials, reads until the connection drops, then backs off and
// dials again.
func (l *Listener) runLoop(ctx context.Context) {
	defer l.wg.Done()
	defer slog.Info("feed_loop_stopped", "endpoint", l.url)

	for !l.stopped(ctx) {
		conn, err := l.dial(ctx)
		if err != nil {
			slog.Warn("feed_connect_failed", "endpoint", l.url, "error", err, "backoff", l.backoff)
			l.waitBackoff(ctx)
			continue
		}

		if err := l.readLoop(ctx, conn); err != nil && !l.stopped(ctx) {
			slog.Warn("feed_read_error", "error", err)
		}
		l.closeConnection()

		if !l.stopped(ctx) {
			l.waitBackoff(ctx)
		}
	}
}

// dial opens the feed and installs keepalive handlers.
func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, resp, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	// Both directions of the keepalive count as activity.
	conn.SetPingHandler(func(data string) error {
		l.markAlive(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		l.markAlive(conn)
		return nil
	})

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	l.backoff = InitialBackoff
	l.markAlive(conn)

	slog.Info("feed_connected", "endpoint", l.url)
	return conn, nil
}

// readLoop delivers envelopes until the connection fails.
func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for !l.stopped(ctx) {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		l.markAlive(conn)
		l.handleMessage(message)
	}
	return nil
}

// markAlive records activity and extends the read deadline. It runs on
// the reading goroutine.
func (l *Listener) markAlive(conn *websocket.Conn) {
	l.lastSeenMu.Lock()
	l.lastSeen = time.Now()
	l.lastSeenMu.Unlock()

	conn.SetReadDeadline(time.Now().Add(HeartbeatTimeout + PongTimeout))
}

// handleMessage parses a frame and forwards it without blocking.
func (l *Listener) handleMessage(data []byte) {
	env, err := Parse(data)
	if err != nil {
		slog.Debug("feed_parse_error", "error", err, "raw", truncate(string(data), 64))
		return
	}
	if len(l.types) > 0 && !slices.Contains(l.types, env.Type) {
		return
	}

	select {
	case l.out <- env:
		slog.Debug("feed_event_received", "type", env.Type)
	default:
		slog.Warn("feed_channel_full", "dropped_type", env.Type)
	}
}

// heartbeatMonitor probes a connection that has gone quiet.
func (l *Listener) heartbeatMonitor(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.checkHeartbeat()
		}
	}
}

// checkHeartbeat pings the hub when nothing has arrived for
// HeartbeatTimeout. A failed ping drops the connection so runLoop redials.
func (l *Listener) checkHeartbeat() {
	l.lastSeenMu.RLock()
	lastSeen := l.lastSeen
	l.lastSeenMu.RUnlock()

	if lastSeen.IsZero() {
		return
	}

	elapsed := time.Since(lastSeen)
	if elapsed <= HeartbeatTimeout {
		return
	}
	slog.Warn("feed_heartbeat_timeout", "elapsed", elapsed)

	l.connMu.Lock()
	conn := l.conn
	l.connMu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
		slog.Warn("feed_ping_failed", "error", err)
		l.closeConnection()
	}
}

func (l *Listener) closeConnection() {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		slog.Info("feed_disconnected", "endpoint", l.url)
	}
}

// waitBackoff sleeps for the current backoff with jitter, then grows it.
func (l *Listener) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(l.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := l.backoff + jitter

	slog.Debug("feed_waiting_backoff", "duration", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-l.stopChan:
	case <-timer.C:
	}

	l.backoff = min(time.Duration(float64(l.backoff)*BackoffFactor), MaxBackoff)
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
