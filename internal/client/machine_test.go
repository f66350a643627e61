package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goldwar/goldwar/internal/logging"
)

type fakeAPI struct {
	mu       sync.Mutex
	quota    int64
	outcome  ClaimOutcome
	claimErr error
	block    chan struct{}
	claims   int
}

func (f *fakeAPI) Status(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quota, nil
}

func (f *fakeAPI) Claim(ctx context.Context, _ Session) (ClaimOutcome, error) {
	f.mu.Lock()
	f.claims++
	block := f.block
	outcome, err := f.outcome, f.claimErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ClaimOutcome{}, ctx.Err()
		}
	}
	return outcome, err
}

func newTestMachine(api API, opts ...Option) *Machine {
	return New(api, Session{UserID: "u1", Name: "Budi"}, logging.Discard(), opts...)
}

func TestSubmitSuccess(t *testing.T) {
	api := &fakeAPI{outcome: ClaimOutcome{Status: "success", TicketNumber: "T-42"}}
	m := newTestMachine(api)

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.State() != StateSuccess {
		t.Fatalf("expected SUCCESS, got %s", m.State())
	}
	if m.TicketNumber() != "T-42" {
		t.Fatalf("expected ticket T-42, got %q", m.TicketNumber())
	}
}

func TestSubmitFailed(t *testing.T) {
	api := &fakeAPI{outcome: ClaimOutcome{Status: "failed"}}
	m := newTestMachine(api)

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.State() != StateFailure {
		t.Fatalf("expected FAILURE, got %s", m.State())
	}
}

func TestUnexpectedShapeIsError(t *testing.T) {
	api := &fakeAPI{outcome: ClaimOutcome{Status: "maintenance"}}
	m := newTestMachine(api)

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.State() != StateError {
		t.Fatalf("expected ERROR, got %s", m.State())
	}
}

func TestTransportFaultIsError(t *testing.T) {
	api := &fakeAPI{claimErr: errors.New("connection refused")}
	m := newTestMachine(api)

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.State() != StateError {
		t.Fatalf("expected ERROR, got %s", m.State())
	}
}

func TestClaimTimeoutIsError(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	m := newTestMachine(api, WithClaimTimeout(20*time.Millisecond))

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.State() != StateError {
		t.Fatalf("expected ERROR after timeout, got %s", m.State())
	}
}

func TestSecondSubmitWhileLoadingRejected(t *testing.T) {
	block := make(chan struct{})
	api := &fakeAPI{block: block, outcome: ClaimOutcome{Status: "success", TicketNumber: "T-1"}}
	m := newTestMachine(api, WithClaimTimeout(time.Second))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Submit(context.Background())
	}()

	// Wait for the first submit to reach LOADING.
	deadline := time.After(time.Second)
	for m.State() != StateLoading {
		select {
		case <-deadline:
			t.Fatal("machine never reached LOADING")
		case <-time.After(time.Millisecond):
		}
	}

	if err := m.Submit(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle for concurrent submit, got %v", err)
	}

	close(block)
	<-done

	if m.State() != StateSuccess {
		t.Fatalf("expected SUCCESS, got %s", m.State())
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.claims != 1 {
		t.Fatalf("expected exactly one claim request, got %d", api.claims)
	}
}

func TestRetryFromError(t *testing.T) {
	api := &fakeAPI{claimErr: errors.New("boom")}
	m := newTestMachine(api)

	_ = m.Submit(context.Background())
	if m.State() != StateError {
		t.Fatalf("expected ERROR, got %s", m.State())
	}

	// Server recovers; user hits retry.
	api.mu.Lock()
	api.claimErr = nil
	api.outcome = ClaimOutcome{Status: "success", TicketNumber: "T-7"}
	api.mu.Unlock()

	if err := m.Retry(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if m.State() != StateSuccess {
		t.Fatalf("expected SUCCESS after retry, got %s", m.State())
	}

	// Retry is not available outside ERROR.
	if err := m.Retry(context.Background()); !errors.Is(err, ErrNotInError) {
		t.Fatalf("expected ErrNotInError, got %v", err)
	}
}

func TestPreWarOpens(t *testing.T) {
	api := &fakeAPI{}
	m := newTestMachine(api, WithInitialState(StatePreWar))

	if err := m.Submit(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle in PRE_WAR, got %v", err)
	}

	m.Open()
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE after Open, got %s", m.State())
	}
}

func TestPollingUpdatesQuota(t *testing.T) {
	api := &fakeAPI{quota: 120}
	m := newTestMachine(api, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	deadline := time.After(time.Second)
	for m.Quota() != 120 {
		select {
		case <-deadline:
			t.Fatal("quota never polled")
		case <-time.After(time.Millisecond):
		}
	}

	api.mu.Lock()
	api.quota = 3
	api.mu.Unlock()

	deadline = time.After(time.Second)
	for m.Quota() != 3 {
		select {
		case <-deadline:
			t.Fatal("quota never refreshed")
		case <-time.After(time.Millisecond):
		}
	}
}
