// Package client implements the user-facing claim flow as a cooperative
// state machine: a cancellable quota poller plus explicit transitions driven
// by user actions and server responses.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State enumerates the user-visible flow states.
type State string

const (
	StatePreWar  State = "PRE_WAR"
	StateIdle    State = "IDLE"
	StateLoading State = "LOADING"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
	StateError   State = "ERROR"
)

// ClaimOutcome is the server's answer to a claim request. Status uses the
// wire vocabulary: "success", "failed", or anything else.
type ClaimOutcome struct {
	Status       string
	TicketNumber string
}

// API is the server boundary the machine talks to.
type API interface {
	Status(ctx context.Context) (quotaRemaining int64, err error)
	Claim(ctx context.Context, session Session) (ClaimOutcome, error)
}

// Session carries the identity context threaded through the flow; no ambient
// globals.
type Session struct {
	UserID string
	Name   string
}

var (
	// ErrNotIdle rejects a submit while another claim is in flight or the
	// flow is not accepting one.
	ErrNotIdle = errors.New("no claim can be submitted in the current state")

	// ErrNotInError rejects a retry outside the ERROR state.
	ErrNotInError = errors.New("retry is only available after an error")
)

// Machine drives the claim flow. All transitions go through the mutex; only
// one claim request is in flight at any time.
type Machine struct {
	api          API
	session      Session
	pollInterval time.Duration
	claimTimeout time.Duration
	logger       *slog.Logger

	mu           sync.Mutex
	state        State
	quota        int64
	ticketNumber string
}

// Option tweaks machine construction.
type Option func(*Machine)

// WithPollInterval overrides the 3-second quota polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(m *Machine) { m.pollInterval = d }
}

// WithClaimTimeout bounds how long a claim may stay in LOADING.
func WithClaimTimeout(d time.Duration) Option {
	return func(m *Machine) { m.claimTimeout = d }
}

// WithInitialState starts the machine in the given state (PRE_WAR before the
// countdown ends, IDLE otherwise).
func WithInitialState(s State) Option {
	return func(m *Machine) { m.state = s }
}

// New builds a machine bound to one session.
func New(apiClient API, session Session, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		api:          apiClient,
		session:      session,
		pollInterval: 3 * time.Second,
		claimTimeout: 10 * time.Second,
		logger:       logger,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current flow state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Quota returns the last polled remaining quota.
func (m *Machine) Quota() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quota
}

// TicketNumber returns the ticket identifier after a successful claim.
func (m *Machine) TicketNumber() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketNumber
}

// Run polls the remaining quota at the fixed interval, in every state, until
// the context is cancelled. Poll failures keep the last known value.
func (m *Machine) Run(ctx context.Context) {
	m.pollOnce(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Machine) pollOnce(ctx context.Context) {
	quota, err := m.api.Status(ctx)
	if err != nil {
		m.logger.Warn("quota poll failed", "error", err)
		return
	}
	m.mu.Lock()
	m.quota = quota
	m.mu.Unlock()
}

// Open is the external countdown trigger moving PRE_WAR to IDLE.
func (m *Machine) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePreWar {
		m.state = StateIdle
	}
}

// Submit issues the claim from IDLE. A second attempt while one is in flight
// is rejected, not raced. The call blocks until the claim resolves.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrNotIdle
	}
	m.state = StateLoading
	m.mu.Unlock()

	m.claim(ctx)
	return nil
}

// Retry re-invokes the same claim action from ERROR. Retries are user
// initiated, never automatic.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateError {
		m.mu.Unlock()
		return ErrNotInError
	}
	m.state = StateLoading
	m.mu.Unlock()

	m.claim(ctx)
	return nil
}

// claim runs the bounded request and applies the response transition. A
// timeout or transport fault lands in ERROR; the machine never stays in
// LOADING indefinitely.
func (m *Machine) claim(ctx context.Context) {
	claimCtx, cancel := context.WithTimeout(ctx, m.claimTimeout)
	defer cancel()

	outcome, err := m.api.Claim(claimCtx, m.session)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Warn("claim request failed", "error", err)
		m.state = StateError
		return
	}

	switch outcome.Status {
	case "success":
		m.ticketNumber = outcome.TicketNumber
		m.state = StateSuccess
	case "failed":
		m.state = StateFailure
	default:
		m.state = StateError
	}
}
