// Package availability validates a username locally and confirms it with the backend after input settles.
package availability

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/debounce"
)

const (
	msgAvailable   = "Username is available."
	msgUnavailable = "Username is already taken."
	msgCheckFailed = "Could not check availability, please try again."
	msgChecking    = "Checking availability..."
)

// Lookup asks the backend whether a username is free.
type Lookup interface {
	UsernameAvailable(ctx context.Context, username string) (bool, string, error)
}

// Rules local constraints applied before any request.
type Rules struct {
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
}

// Validate returns the message of the first broken rule, or "" when input passes.
func (r Rules) Validate(input string) string {
	n := utf8.RuneCountInString(input)
	switch {
	case r.MinLength > 0 && n < r.MinLength:
		return fmt.Sprintf("Username must be at least %d characters.", r.MinLength)
	case r.MaxLength > 0 && n > r.MaxLength:
		return fmt.Sprintf("Username must be at most %d characters.", r.MaxLength)
	case r.Pattern != nil && !r.Pattern.MatchString(input):
		return "Username may only contain letters, numbers and underscores."
	}
	return ""
}

// Checker tracks the availability state of the latest input. Only the result for the latest
// input is ever written; superseded lookups are cancelled.
type Checker struct {
	// notifyMu orders state delivery: a superseded result is never delivered after the
	// state of newer input.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	lookup    Lookup
	rules     Rules
	debouncer *debounce.Debouncer
	logger    *zap.Logger
	state     domain.AvailabilityState
	onChange  func(domain.AvailabilityState)
}

// NewChecker creates a checker whose lookups are bound to ctx.
func NewChecker(ctx context.Context, lookup Lookup, rules Rules, delay time.Duration, logger *zap.Logger) (*Checker, error) {
	if lookup == nil {
		return nil, errors.New("availability lookup is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		lookup:    lookup,
		rules:     rules,
		debouncer: debounce.New(ctx, delay),
		logger:    logger,
	}, nil
}

// OnChange registers fn to receive every state transition, including asynchronous ones.
// fn must not call Check.
func (c *Checker) OnChange(fn func(domain.AvailabilityState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Checker) State() domain.AvailabilityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Check applies the local rules to input and, when they pass, schedules a debounced lookup.
// The returned state is idle, invalid or checking.
func (c *Checker) Check(input string) domain.AvailabilityState {
	input = strings.TrimSpace(input)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	var next domain.AvailabilityState
	switch msg := c.rules.Validate(input); {
	case input == "":
		c.debouncer.Cancel()
		next = domain.AvailabilityState{Status: domain.AvailabilityIdle}
	case msg != "":
		c.debouncer.Cancel()
		next = domain.AvailabilityState{Input: input, Status: domain.AvailabilityInvalid, Message: msg}
	default:
		next = domain.AvailabilityState{Input: input, Status: domain.AvailabilityChecking, Message: msgChecking}
		c.debouncer.Trigger(func(ctx context.Context) {
			c.resolve(ctx, input)
		})
	}
	c.state = next
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(next)
	}
	return next
}

// Close cancels any pending or running lookup.
func (c *Checker) Close() {
	c.debouncer.Stop()
}

func (c *Checker) resolve(ctx context.Context, input string) {
	available, message, err := c.lookup.UsernameAvailable(ctx, input)

	var next domain.AvailabilityState
	switch {
	case err != nil:
		if ctx.Err() == nil {
			c.logger.Warn("username availability lookup failed", zap.String("username", input), zap.Error(err))
		}
		next = domain.AvailabilityState{Input: input, Status: domain.AvailabilityUnavailable, Message: msgCheckFailed}
	case available:
		next = domain.AvailabilityState{Input: input, Status: domain.AvailabilityAvailable, Message: orDefault(message, msgAvailable)}
	default:
		next = domain.AvailabilityState{Input: input, Status: domain.AvailabilityUnavailable, Message: orDefault(message, msgUnavailable)}
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.state = next
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(next)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
