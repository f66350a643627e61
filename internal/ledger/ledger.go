package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuotaExhausted occurs when a location has no admission slots left.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrLocationNotFound indicates an unknown location identifier.
	ErrLocationNotFound = errors.New("location not found")

	// ErrTicketNotFound indicates an unknown ticket identifier.
	ErrTicketNotFound = errors.New("ticket not found")
)

// Location is an admission point with a finite daily quota.
type Location struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Region         string `json:"region"`
	QuotaRemaining int64  `json:"quota"`
}

// Ticket is the durable proof of a successful claim. Tickets are immutable
// once recorded.
type Ticket struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	LocationID   string    `json:"location_id"`
	LocationName string    `json:"location_name"`
	TicketNumber string    `json:"ticket_number"`
	Code         string    `json:"code"`
	TimeSlot     string    `json:"time_slot"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger is the authoritative record of locations, quotas, and issued
// tickets. ClaimTicket is the single atomic section where concurrent claims
// race: the quota decrement and the ticket insert happen together or not at
// all.
type Ledger interface {
	EnsureLocation(ctx context.Context, loc Location) error
	Locations(ctx context.Context) ([]Location, error)
	Remaining(ctx context.Context, locationID string) (int64, error)

	// ClaimTicket atomically decrements the location quota and records the
	// ticket. When the quota is zero it returns ErrQuotaExhausted and the
	// ledger is left untouched.
	ClaimTicket(ctx context.Context, ticket Ticket) (Ticket, error)

	Ticket(ctx context.Context, id string) (Ticket, error)

	// CountForUserSince counts tickets issued to the user at or after the
	// given instant. The admission gate uses it for the rolling monthly cap.
	CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error)

	// ResetQuota is the administrative day reset, the only path on which a
	// quota may increase.
	ResetQuota(ctx context.Context, locationID string, quota int64) error
}
