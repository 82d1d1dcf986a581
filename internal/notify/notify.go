// Package notify keeps the short-lived notifications shown after claims.
package notify

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tgeclaim/engine/internal/summary"
)

// Toast types
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
	TypeWarning = "warning"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 5 * time.Second

// Toast is a single notification.
type Toast struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// FromCounts builds the notification for a finished batch.
func FromCounts(c summary.Counts) Toast {
	switch c.Outcome() {
	case summary.OutcomeSuccess:
		title := fmt.Sprintf("%d TGE tokens claimed successfully!", c.Succeeded)
		if c.Staked > 0 {
			title = fmt.Sprintf("%d TGE tokens claimed successfully! %d are immediately staked.", c.Succeeded, c.Staked)
		}
		return Toast{Type: TypeSuccess, Title: title}
	case summary.OutcomePartial:
		desc := fmt.Sprintf("Success: %d, Failed: %d", c.Succeeded, c.Failed)
		if c.Staked > 0 {
			desc += fmt.Sprintf(", Staked: %d", c.Staked)
		}
		return Toast{Type: TypeInfo, Title: "Partial claim completed", Description: desc}
	default:
		return Toast{Type: TypeError, Title: "All claims failed", Description: "Please try again"}
	}
}

// FromError builds the notification for a batch that could not run.
func FromError(err error) Toast {
	return Toast{
		Type:        TypeError,
		Title:       "An error occurred during claim processing",
		Description: err.Error(),
	}
}

// Center holds the visible toasts and expires them.
type Center struct {
	defaultDuration time.Duration

	mu     sync.Mutex
	toasts []Toast
	timers map[string]*time.Timer
}

// NewCenter creates a Center. A zero duration uses DefaultDuration.
func NewCenter(duration time.Duration) *Center {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Center{
		defaultDuration: duration,
		timers:          make(map[string]*time.Timer),
	}
}

// Show adds t and schedules its removal after its duration.
func (c *Center) Show(t Toast) Toast {
	if t.ID == "" {
		t.ID = uuid.NewString()[:8]
	}
	if t.Duration <= 0 {
		t.Duration = c.defaultDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.toasts = append(c.toasts, t)
	id := t.ID
	c.timers[id] = time.AfterFunc(t.Duration, func() { c.Remove(id) })
	return t
}

// Remove drops the toast with id.
func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toasts = slices.DeleteFunc(c.toasts, func(t Toast) bool { return t.ID == id })
	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
}

// Clear drops all toasts.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	c.toasts = nil
}

// List returns the visible toasts, oldest first.
func (c *Center) List() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.toasts)
}
