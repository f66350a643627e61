package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Image-choice labels are fixed so the UI can render a stable grid.
var imageSets = []struct {
	Prompt  string
	Correct string
}{
	{Prompt: "Pilih gambar emas batangan", Correct: "goldbar"},
	{Prompt: "Pilih gambar koin", Correct: "coin"},
	{Prompt: "Pilih gambar cincin", Correct: "ring"},
}

var imageOptions = []string{"goldbar", "coin", "ring", "wallet"}

// Service issues and verifies short-lived, single-use challenges.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService builds a challenge service on top of the given store.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// IssueMath creates an arithmetic challenge. The sum stays server-side.
func (s *Service) IssueMath(ctx context.Context) (MathChallenge, error) {
	a, err := randomInt(1, 9)
	if err != nil {
		return MathChallenge{}, err
	}
	b, err := randomInt(1, 9)
	if err != nil {
		return MathChallenge{}, err
	}

	now := s.now()
	ch := Challenge{
		Token:     uuid.NewString(),
		Kind:      KindMath,
		Answer:    strconv.Itoa(a + b),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return MathChallenge{}, err
	}

	return MathChallenge{A: a, B: b, Token: ch.Token, ExpiresAt: ch.ExpiresAt.Unix()}, nil
}

// IssueImage creates an image-choice challenge. The correct label stays
// server-side; all four options are returned shuffled.
func (s *Service) IssueImage(ctx context.Context) (ImageChallenge, error) {
	index, err := randomInt(0, len(imageSets)-1)
	if err != nil {
		return ImageChallenge{}, err
	}
	set := imageSets[index]

	options := append([]string(nil), imageOptions...)
	shuffle(options)

	now := s.now()
	ch := Challenge{
		Token:     uuid.NewString(),
		Kind:      KindImage,
		Answer:    set.Correct,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return ImageChallenge{}, err
	}

	return ImageChallenge{Prompt: set.Prompt, Options: options, Token: ch.Token, ExpiresAt: ch.ExpiresAt.Unix()}, nil
}

// Verify consumes the token and compares the submitted answer. The token is
// spent on the first attempt regardless of outcome, so a failed guess cannot
// be retried against the same challenge.
func (s *Service) Verify(ctx context.Context, kind Kind, token, answer string) (bool, error) {
	ch, err := s.store.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenConsumed) {
			return false, nil
		}
		return false, err
	}
	if ch.Kind != kind {
		return false, nil
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false, nil
	}

	switch ch.Kind {
	case KindMath:
		submitted, err := strconv.Atoi(answer)
		if err != nil {
			return false, nil
		}
		expected, err := strconv.Atoi(ch.Answer)
		if err != nil {
			return false, nil
		}
		return submitted == expected, nil
	case KindImage:
		return strings.EqualFold(answer, ch.Answer), nil
	default:
		return false, nil
	}
}

// Pair bundles the two-factor challenge answers attached to a request.
type Pair struct {
	MathToken   string
	MathAnswer  string
	ImageToken  string
	ImageAnswer string
}

// VerifyPair checks both challenges. Both tokens are consumed even when the
// first one fails or errors, so a partially-passed pair can never be reused.
func (s *Service) VerifyPair(ctx context.Context, pair Pair) (bool, error) {
	mathOK, mathErr := s.Verify(ctx, KindMath, pair.MathToken, pair.MathAnswer)
	imageOK, imageErr := s.Verify(ctx, KindImage, pair.ImageToken, pair.ImageAnswer)
	if mathErr != nil {
		return false, mathErr
	}
	if imageErr != nil {
		return false, imageErr
	}
	return mathOK && imageOK, nil
}

func randomInt(min, max int) (int, error) {
	if max < min {
		return 0, errors.New("invalid range")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + min, nil
}

func shuffle(values []string) {
	for i := len(values) - 1; i > 0; i-- {
		j, err := randomInt(0, i)
		if err != nil {
			continue
		}
		values[i], values[j] = values[j], values[i]
	}
}
