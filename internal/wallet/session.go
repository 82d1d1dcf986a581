// Package wallet provides the simulated wallet session that gates claims.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tgeclaim/engine/internal/store"
)

var (
	// ErrConnectionRejected is returned when the connector refuses to connect.
	ErrConnectionRejected = errors.New("connection rejected")
	// ErrConnectionAborted is returned when Disconnect wins over a pending Connect.
	ErrConnectionAborted = errors.New("connection aborted")
)

// Connector attaches a wallet and returns its address.
type Connector interface {
	Connect(ctx context.Context) (string, error)
}

// MockConnector connects after a fixed delay and never fails.
type MockConnector struct {
	Delay   time.Duration
	Address string
}

// Connect implements Connector.
func (m MockConnector) Connect(ctx context.Context) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return m.Address, nil
}

// Listener receives every new wallet state.
type Listener func(store.WalletState)

// Session is the wallet state machine:
// disconnected -> connecting -> connected -> disconnected.
type Session struct {
	connector Connector

	mu        sync.Mutex
	state     store.WalletState
	attempt   uint64
	listeners map[uint64]Listener
	nextID    uint64

	// notifyMu serializes delivery so listeners see changes in order
	notifyMu sync.Mutex
}

// NewSession creates a disconnected session.
func NewSession(connector Connector) *Session {
	return &Session{
		connector: connector,
		listeners: make(map[uint64]Listener),
	}
}

// State returns the current wallet state.
func (s *Session) State() store.WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for state changes. The returned function removes it.
// Deliveries are serialized and the last one always carries the current
// state. fn may call State but must not call Connect or Disconnect.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Connect attaches the wallet. It is a no-op while connecting or connected.
// It blocks until the connector answers; on rejection the session returns
// to disconnected. A started connect runs to completion even if ctx is
// cancelled; only Disconnect abandons it.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Connecting || s.state.Connected {
		s.mu.Unlock()
		return nil
	}
	s.attempt++
	attempt := s.attempt
	s.state = store.WalletState{Connecting: true}
	s.notifyLocked()

	slog.Info("wallet_connecting")

	address, err := s.connector.Connect(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.attempt != attempt {
		// Disconnected (or reconnected) while we were waiting
		s.mu.Unlock()
		slog.Info("wallet_connect_discarded")
		return ErrConnectionAborted
	}

	if err != nil {
		s.state = store.WalletState{}
		s.notifyLocked()
		slog.Warn("wallet_connect_rejected", "error", err)
		return fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}

	s.state = store.WalletState{Connected: true, Address: address}
	s.notifyLocked()

	slog.Info("wallet_connected", "address", address)
	return nil
}

// Disconnect detaches the wallet immediately, whatever the current state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.attempt++
	s.state = store.WalletState{}
	s.notifyLocked()

	slog.Info("wallet_disconnected")
}

// notifyLocked releases s.mu and delivers the state to listeners. The
// state is read again under notifyMu, so a delivery that loses a race
// with a later change still reports the newest state.
func (s *Session) notifyLocked() {
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	state := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
