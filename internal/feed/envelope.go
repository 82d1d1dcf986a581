// Package feed carries engine events to websocket clients and back.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tgeclaim/engine/internal/store"
)

// Event types
const (
	TypeWallet       = "wallet"
	TypeSelection    = "selection"
	TypeSettlement   = "settlement"
	TypeNotification = "notification"
)

// Event is an engine event before encoding.
type Event struct {
	Type string
	Data any
}

// Envelope is the wire form of an event.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SelectionEvent is published whenever the selection changes.
type SelectionEvent struct {
	Selected   []string                         `json:"selected"`
	Decisions  map[string]store.StakingDecision `json:"decisions"`
	Processing bool                             `json:"processing"`
}

// SettlementEvent is published when a batch finishes.
type SettlementEvent struct {
	Strategy  string                   `json:"strategy"`
	Outcome   string                   `json:"outcome"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Staked    int                      `json:"staked"`
	Results   []store.SettlementResult `json:"results"`
}

// NotificationEvent is published for every toast shown.
type NotificationEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Encode serializes an event into an envelope.
func Encode(e Event) ([]byte, error) {
	var raw json.RawMessage
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s data: %w", e.Type, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: e.Type, Data: raw})
}

// Parse decodes a raw websocket message.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no type")
	}
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s envelope has no data", e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", e.Type, err)
	}
	return nil
}

// Describe renders a one-line summary of the envelope for logs and the
// watch command.
func Describe(e Envelope) string {
	switch e.Type {
	case TypeWallet:
		var w store.WalletState
		if err := e.Decode(&w); err != nil {
			return err.Error()
		}
		switch {
		case w.Connected:
			return "wallet connected " + w.Address
		case w.Connecting:
			return "wallet connecting"
		default:
			return "wallet disconnected"
		}

	case TypeSelection:
		var s SelectionEvent
		if err := e.Decode(&s); err != nil {
			return err.Error()
		}
		staking := 0
		for _, d := range s.Decisions {
			if d.WillStake {
				staking++
			}
		}
		line := fmt.Sprintf("selection %d offers, %d staking", len(s.Selected), staking)
		if s.Processing {
			line += " (processing)"
		}
		return line

	case TypeSettlement:
		var s SettlementEvent
		if err := e.Decode(&s); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("settlement %s %s: %s succeeded, %s failed, %s staked",
			s.Strategy, s.Outcome,
			humanize.Comma(int64(s.Succeeded)),
			humanize.Comma(int64(s.Failed)),
			humanize.Comma(int64(s.Staked)),
		)

	case TypeNotification:
		var n NotificationEvent
		if err := e.Decode(&n); err != nil {
			return err.Error()
		}
		parts := []string{strings.ToUpper(n.Type), n.Title}
		if n.Description != "" {
			parts = append(parts, n.Description)
		}
		return strings.Join(parts, " | ")

	default:
		return e.Type
	}
}
