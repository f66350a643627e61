package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goldwar/goldwar/internal/captcha"
	"github.com/goldwar/goldwar/internal/config"
	"github.com/goldwar/goldwar/internal/identity"
	"github.com/goldwar/goldwar/internal/ledger"
	"github.com/goldwar/goldwar/internal/notification"
)

const monthlyWindow = 30 * 24 * time.Hour

// Service is the admission gate: the single pipeline every claim goes
// through, regardless of which endpoint carried it.
type Service struct {
	cfg        config.Config
	captcha    *captcha.Service
	identities identity.Repository
	ledger     ledger.Ledger
	pool       *WarPool
	notifier   notification.Notifier
	numbers    numberer
}

// NewService wires the admission gate.
func NewService(cfg config.Config, captchaSvc *captcha.Service, identities identity.Repository, led ledger.Ledger, pool *WarPool, notifier notification.Notifier) *Service {
	return &Service{
		cfg:        cfg,
		captcha:    captchaSvc,
		identities: identities,
		ledger:     led,
		pool:       pool,
		notifier:   notifier,
	}
}

// ClaimInput carries one attempt to obtain a ticket for a location/time-slot.
// Captcha is optional for session-bound claims whose challenge pair was
// already verified at login; when present it must verify.
type ClaimInput struct {
	UserID     string
	LocationID string
	TimeSlot   string
	SizeGram   float64
	Captcha    *captcha.Pair
}

// Claim runs the admission pipeline in fixed order: opening time, captcha,
// identity, monthly cap, then the atomic quota decrement. Captcha and
// identity failures never touch quota; rejection and ticket creation are
// mutually exclusive outcomes of the final atomic step.
func (s *Service) Claim(ctx context.Context, in ClaimInput, now time.Time) (ledger.Ticket, error) {
	preOpen, err := s.checkOpen(now, in.SizeGram)
	if err != nil {
		return ledger.Ticket{}, err
	}

	if err := s.checkCaptcha(ctx, in.Captcha); err != nil {
		return ledger.Ticket{}, err
	}

	user, err := s.identities.FindByID(ctx, in.UserID)
	if err != nil {
		return ledger.Ticket{}, identity.ErrInvalidCredential
	}

	count, err := s.ledger.CountForUserSince(ctx, user.ID, now.Add(-monthlyWindow))
	if err != nil {
		return ledger.Ticket{}, err
	}
	if count >= s.cfg.MonthlyClaimLimit {
		return ledger.Ticket{}, ErrMonthlyLimitExceeded
	}

	if preOpen {
		if err := s.checkPreOpenLocation(ctx, in.LocationID); err != nil {
			return ledger.Ticket{}, err
		}
	}

	ticket := ledger.Ticket{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		LocationID:   in.LocationID,
		TicketNumber: s.numbers.next(),
		Code:         pickupCode(),
		TimeSlot:     in.TimeSlot,
		CreatedAt:    now.UTC(),
	}

	issued, err := s.ledger.ClaimTicket(ctx, ticket)
	if err != nil {
		return ledger.Ticket{}, err
	}

	s.notify(ctx, user, issued.TicketNumber)
	return issued, nil
}

// WarResult is the outcome of a war-pool claim.
type WarResult struct {
	TicketNumber string
	Remaining    int64
}

// WarClaim is the global-pool adapter of the same claim operation: one
// counter shared by every location-less rush request. Exactly quota many
// concurrent callers win, however the decrements interleave.
func (s *Service) WarClaim(ctx context.Context, pair *captcha.Pair, now time.Time) (WarResult, error) {
	if _, err := s.checkOpen(now, 0); err != nil {
		return WarResult{}, err
	}

	if err := s.checkCaptcha(ctx, pair); err != nil {
		return WarResult{}, err
	}

	remaining, err := s.pool.Take(ctx)
	if err != nil {
		return WarResult{}, err
	}
	if remaining < 0 {
		return WarResult{Remaining: 0}, ledger.ErrQuotaExhausted
	}

	return WarResult{
		TicketNumber: fmt.Sprintf("T-%d", s.cfg.WarQuota-remaining),
		Remaining:    remaining,
	}, nil
}

// Remaining reports the war-pool counter for display polling. The counter
// lives in Redis, so reads are cheap and staleness is bounded by the client's
// own polling cadence.
func (s *Service) Remaining(ctx context.Context) (int64, error) {
	return s.pool.Remaining(ctx)
}

// Locations lists admission points with their current quotas.
func (s *Service) Locations(ctx context.Context) ([]ledger.Location, error) {
	return s.ledger.Locations(ctx)
}

// Ticket fetches a previously issued ticket.
func (s *Service) Ticket(ctx context.Context, id string) (ledger.Ticket, error) {
	return s.ledger.Ticket(ctx, id)
}

// StateAt reports the gate state for the given instant: CLOSED before
// opening, DRAINED once the pool and every location are exhausted, otherwise
// OPEN.
func (s *Service) StateAt(ctx context.Context, now time.Time) (State, error) {
	if now.Before(s.cfg.OpenTimeToday(now)) {
		return StateClosed, nil
	}

	poolLeft, err := s.pool.Remaining(ctx)
	if err != nil {
		return StateOpen, err
	}
	if poolLeft > 0 {
		return StateOpen, nil
	}

	locations, err := s.ledger.Locations(ctx)
	if err != nil {
		return StateOpen, err
	}
	for _, loc := range locations {
		if loc.QuotaRemaining > 0 {
			return StateOpen, nil
		}
	}
	return StateDrained, nil
}

// checkOpen returns whether the claim rides the pre-open window. Before the
// window it rejects with ErrNotOpenYet without touching anything else.
func (s *Service) checkOpen(now time.Time, sizeGram float64) (bool, error) {
	open := s.cfg.OpenTimeToday(now)
	if !now.Before(open) {
		return false, nil
	}

	windowStart := open.Add(-s.cfg.PreOpenOffset)
	if now.Before(windowStart) {
		return false, ErrNotOpenYet
	}
	if sizeGram < s.cfg.MinPreOpenGram {
		return false, ErrNotOpenYet
	}
	return true, nil
}

func (s *Service) checkCaptcha(ctx context.Context, pair *captcha.Pair) error {
	if pair == nil {
		if s.cfg.ClaimRequireCaptcha {
			return ErrCaptchaFailed
		}
		return nil
	}
	ok, err := s.captcha.VerifyPair(ctx, *pair)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCaptchaFailed
	}
	return nil
}

// Pre-open is restricted to the jabodetabek region.
func (s *Service) checkPreOpenLocation(ctx context.Context, locationID string) error {
	locations, err := s.ledger.Locations(ctx)
	if err != nil {
		return err
	}
	for _, loc := range locations {
		if loc.ID == locationID {
			if strings.EqualFold(loc.Region, "jabodetabek") {
				return nil
			}
			return ErrPreOpenNotEligible
		}
	}
	return ledger.ErrLocationNotFound
}

func (s *Service) notify(ctx context.Context, user identity.User, ticketNumber string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTicketIssued,
		Destination: user.Whatsapp,
		Body:        fmt.Sprintf("Nomor antrean %s atas nama %s", ticketNumber, user.Nama),
	})
}

// MapError translates pipeline errors to the status/message envelope used by
// the HTTP layer. Domain rejections are "failed"; everything else is "error".
func MapError(err error) (status, message string) {
	switch {
	case errors.Is(err, ErrNotOpenYet):
		return "error", "Antrean belum dibuka"
	case errors.Is(err, ErrCaptchaFailed):
		return "error", "Captcha tidak valid"
	case errors.Is(err, identity.ErrInvalidCredential):
		return "error", "User tidak ditemukan"
	case errors.Is(err, ErrMonthlyLimitExceeded):
		return "failed", "Batas 2 antrean per 30 hari tercapai"
	case errors.Is(err, ledger.ErrQuotaExhausted):
		return "failed", "Kuota habis untuk lokasi ini"
	case errors.Is(err, ledger.ErrLocationNotFound):
		return "error", "Lokasi tidak valid"
	case errors.Is(err, ErrPreOpenNotEligible):
		return "error", "Lokasi hanya untuk area Jabodetabek selama pre-open"
	default:
		return "error", "Terjadi kesalahan pada server"
	}
}
