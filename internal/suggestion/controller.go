// Package suggestion drives the city autocomplete: it debounces keystrokes, looks up
// candidates, and keeps only the newest lookup's result on display.
package suggestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

const (
	// DefaultDelay is the quiet period after the last keystroke before a lookup starts.
	DefaultDelay = 300 * time.Millisecond
	// DefaultLimit is the number of candidates requested per lookup.
	DefaultLimit = 5

	// minQueryLength is the shortest trimmed query that triggers a lookup.
	minQueryLength = 3
)

// ErrNoSuggestion is returned by Select when nothing is shown at the given index.
var ErrNoSuggestion = errors.New("no suggestion at that position")

// Fetcher looks up candidate places for a partial query.
type Fetcher interface {
	FetchSuggestions(ctx context.Context, query string, limit int) ([]model.CitySuggestion, error)
}

// Timer is the handle of a pending debounce.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets the debounce quiet period. Non-positive values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithLimit sets how many candidates a lookup asks for. Non-positive values keep DefaultLimit.
func WithLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithAfterFunc replaces the timer source, for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// Snapshot is what a renderer needs to draw the suggestion dropdown.
type Snapshot struct {
	State       State                  `json:"state"`
	Query       string                 `json:"query"`
	Visible     bool                   `json:"visible"`
	Suggestions []model.CitySuggestion `json:"suggestions"`
}

// Controller owns the suggestion state for one search input.
type Controller struct {
	fetcher   Fetcher
	delay     time.Duration
	limit     int
	afterFunc AfterFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	query       string
	suggestions []model.CitySuggestion
	timer       Timer
	// seq is the token of the newest request. Keystrokes, dismissals and
	// teardown all advance it, so older timers and lookups become stale.
	seq    uint64
	closed bool
}

// NewController returns an idle controller that looks up candidates through fetcher.
// Call Close to stop any pending debounce and in-flight lookup.
func NewController(fetcher Fetcher, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:   fetcher,
		delay:     DefaultDelay,
		limit:     DefaultLimit,
		afterFunc: realAfterFunc,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input records a keystroke and restarts the debounce.
func (c *Controller) Input(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.stopTimerLocked()
	c.seq++
	token := c.seq
	c.query = query
	c.state = Next(c.state, EventInput)
	c.timer = c.afterFunc(c.delay, func() { c.fire(token) })
}

// fire runs when the quiet period elapses without further input.
func (c *Controller) fire(token uint64) {
	c.mu.Lock()
	if c.closed || token != c.seq || c.state != Debouncing {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	query := strings.TrimSpace(c.query)
	if utf8.RuneCountInString(query) < minQueryLength {
		c.state = Next(c.state, EventQuietShort)
		c.suggestions = nil
		c.mu.Unlock()
		return
	}
	c.state = Next(c.state, EventQuiet)
	ctx, limit := c.ctx, c.limit
	c.mu.Unlock()

	results, err := c.fetcher.FetchSuggestions(ctx, query, limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || token != c.seq || c.state != Fetching {
		config.GetLogger().Debugw("Discarding stale suggestions", "query", query)
		return
	}
	if err != nil {
		config.GetLogger().Warnw("Suggestion lookup failed", "query", query, "error", err)
		c.suggestions = nil
		c.state = Next(c.state, EventNoResults)
		return
	}
	if len(results) == 0 {
		c.suggestions = nil
		c.state = Next(c.state, EventNoResults)
		return
	}
	c.suggestions = results
	c.state = Next(c.state, EventResults)
}

// Dismiss hides the dropdown. A pending debounce is dropped; an in-flight lookup
// runs to completion but its result is discarded.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked()
}

func (c *Controller) dismissLocked() {
	c.stopTimerLocked()
	c.seq++
	c.suggestions = nil
	c.state = Next(c.state, EventDismiss)
}

// Select returns the suggestion at index from the visible dropdown and hides it.
func (c *Controller) Select(index int) (model.CitySuggestion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Showing || index < 0 || index >= len(c.suggestions) {
		return model.CitySuggestion{}, ErrNoSuggestion
	}
	chosen := c.suggestions[index]
	c.dismissLocked()
	return chosen, nil
}

// Snapshot returns a copy of the current dropdown state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]model.CitySuggestion, len(c.suggestions))
	copy(items, c.suggestions)
	return Snapshot{
		State:       c.state,
		Query:       c.query,
		Visible:     c.state == Showing,
		Suggestions: items,
	}
}

// Close tears the controller down. No debounce callback fires afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.dismissLocked()
	c.mu.Unlock()

	c.cancel()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
