package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type inMemoryLedger struct {
	mu        sync.RWMutex
	locations map[string]Location
	tickets   map[string]Ticket
}

// NewInMemory creates a concurrency-safe in-memory ledger for tests and
// development mode.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		locations: make(map[string]Location),
		tickets:   make(map[string]Ticket),
	}
}

func (l *inMemoryLedger) EnsureLocation(_ context.Context, loc Location) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.locations[loc.ID]; !exists {
		l.locations[loc.ID] = loc
	}
	return nil
}

func (l *inMemoryLedger) Locations(_ context.Context) ([]Location, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Location, 0, len(l.locations))
	for _, loc := range l.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *inMemoryLedger) Remaining(_ context.Context, locationID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.locations[locationID]
	if !ok {
		return 0, ErrLocationNotFound
	}
	return loc.QuotaRemaining, nil
}

func (l *inMemoryLedger) ClaimTicket(_ context.Context, ticket Ticket) (Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	loc, ok := l.locations[ticket.LocationID]
	if !ok {
		return Ticket{}, ErrLocationNotFound
	}
	if loc.QuotaRemaining <= 0 {
		return Ticket{}, ErrQuotaExhausted
	}

	loc.QuotaRemaining--
	l.locations[ticket.LocationID] = loc

	ticket.LocationName = loc.Name
	l.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (l *inMemoryLedger) Ticket(_ context.Context, id string) (Ticket, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ticket, ok := l.tickets[id]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return ticket, nil
}

func (l *inMemoryLedger) CountForUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, ticket := range l.tickets {
		if ticket.UserID == userID && !ticket.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (l *inMemoryLedger) ResetQuota(_ context.Context, locationID string, quota int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	loc, ok := l.locations[locationID]
	if !ok {
		return ErrLocationNotFound
	}
	loc.QuotaRemaining = quota
	l.locations[locationID] = loc
	return nil
}
