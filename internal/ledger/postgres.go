package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists locations and tickets in PostgreSQL. The quota
// decrement is a conditional UPDATE guarded by quota_remaining > 0, so two
// concurrent claims never both consume the last slot.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureLocation guarantees a location row exists.
func (l *PostgresLedger) EnsureLocation(ctx context.Context, loc Location) error {
	_, err := l.db.Exec(ctx, `INSERT INTO locations (id, name, region, quota_remaining)
        VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		loc.ID, loc.Name, loc.Region, loc.QuotaRemaining)
	return err
}

// Locations returns all locations with their current quotas.
func (l *PostgresLedger) Locations(ctx context.Context) ([]Location, error) {
	rows, err := l.db.Query(ctx, `SELECT id, name, region, quota_remaining FROM locations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Region, &loc.QuotaRemaining); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Remaining returns the current quota for the location.
func (l *PostgresLedger) Remaining(ctx context.Context, locationID string) (int64, error) {
	var remaining int64
	err := l.db.QueryRow(ctx, `SELECT quota_remaining FROM locations WHERE id = $1`, locationID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrLocationNotFound
	}
	return remaining, err
}

// ClaimTicket decrements the quota and inserts the ticket in one transaction.
func (l *PostgresLedger) ClaimTicket(ctx context.Context, ticket Ticket) (Ticket, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Ticket{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var name string
	err = tx.QueryRow(ctx, `UPDATE locations SET quota_remaining = quota_remaining - 1
        WHERE id = $1 AND quota_remaining > 0 RETURNING name`, ticket.LocationID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row matched: either the location is unknown or its quota is zero.
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1)`, ticket.LocationID).Scan(&exists); checkErr != nil {
			return Ticket{}, checkErr
		}
		if !exists {
			return Ticket{}, ErrLocationNotFound
		}
		return Ticket{}, ErrQuotaExhausted
	}
	if err != nil {
		return Ticket{}, err
	}
	ticket.LocationName = name

	ticketID, err := uuid.Parse(ticket.ID)
	if err != nil {
		return Ticket{}, err
	}
	userID, err := uuid.Parse(ticket.UserID)
	if err != nil {
		return Ticket{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO tickets (id, user_id, location_id, ticket_number, code, time_slot, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ticketID, userID, ticket.LocationID, ticket.TicketNumber, ticket.Code, ticket.TimeSlot, ticket.CreatedAt.UTC()); err != nil {
		return Ticket{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Ticket{}, err
	}
	return ticket, nil
}

// Ticket fetches a recorded ticket by ID.
func (l *PostgresLedger) Ticket(ctx context.Context, id string) (Ticket, error) {
	ticketID, err := uuid.Parse(id)
	if err != nil {
		return Ticket{}, ErrTicketNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT t.id, t.user_id, t.location_id, l.name, t.ticket_number, t.code, t.time_slot, t.created_at
        FROM tickets t INNER JOIN locations l ON l.id = t.location_id WHERE t.id = $1`, ticketID)

	var (
		tid       uuid.UUID
		uid       uuid.UUID
		createdAt time.Time
		ticket    Ticket
	)
	if err := row.Scan(&tid, &uid, &ticket.LocationID, &ticket.LocationName, &ticket.TicketNumber, &ticket.Code, &ticket.TimeSlot, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, err
	}
	ticket.ID = tid.String()
	ticket.UserID = uid.String()
	ticket.CreatedAt = createdAt.UTC()
	return ticket, nil
}

// CountForUserSince counts tickets issued to the user in the trailing window.
func (l *PostgresLedger) CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, nil
	}
	var count int
	err = l.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE user_id = $1 AND created_at >= $2`,
		uid, since.UTC()).Scan(&count)
	return count, err
}

// ResetQuota sets the quota for a location; used by the daily administrative reset.
func (l *PostgresLedger) ResetQuota(ctx context.Context, locationID string, quota int64) error {
	cmd, err := l.db.Exec(ctx, `UPDATE locations SET quota_remaining = $1 WHERE id = $2`, quota, locationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}
