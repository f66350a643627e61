package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no user matched the lookup.
var ErrNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByNIK(ctx context.Context, nik string) (User, error)
	FindByEmailOrPhone(ctx context.Context, identifier string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL. Uniqueness of
// nik, email, and whatsapp is backed by unique constraints.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. Unique-constraint violations surface as
// ErrDuplicateIdentity.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, nik, nama, whatsapp, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, user.NIK, user.Nama, user.Whatsapp, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "nik") {
				return ErrDuplicateNIK
			}
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, nik, nama, whatsapp, email, password_hash, created_at FROM users WHERE id = $1`, userID))
}

// FindByNIK fetches a user by national identifier.
func (r *PostgresRepository) FindByNIK(ctx context.Context, nik string) (User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, nik, nama, whatsapp, email, password_hash, created_at FROM users WHERE nik = $1`, nik))
}

// FindByEmailOrPhone fetches a user by email address or WhatsApp number.
func (r *PostgresRepository) FindByEmailOrPhone(ctx context.Context, identifier string) (User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, nik, nama, whatsapp, email, password_hash, created_at
         FROM users WHERE email = $1 OR whatsapp = $1`, identifier))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.NIK, &user.Nama, &user.Whatsapp, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
