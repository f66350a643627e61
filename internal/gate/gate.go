package gate

import "errors"

// State is the day-level admission gate state.
type State string

const (
	// StateClosed means the opening time has not been reached.
	StateClosed State = "CLOSED"
	// StateOpen means claims are being evaluated and quota remains somewhere.
	StateOpen State = "OPEN"
	// StateDrained means every location is exhausted for the day.
	StateDrained State = "DRAINED"
)

var (
	// ErrNotOpenYet rejects claims submitted before the configured opening time.
	ErrNotOpenYet = errors.New("gate not open yet")

	// ErrCaptchaFailed rejects claims whose challenge pair did not verify.
	// Captcha is checked before quota so failed attempts never consume slots.
	ErrCaptchaFailed = errors.New("captcha verification failed")

	// ErrMonthlyLimitExceeded rejects identities at their rolling 30-day cap.
	ErrMonthlyLimitExceeded = errors.New("monthly claim limit exceeded")

	// ErrPreOpenNotEligible rejects pre-open claims outside the eligible
	// region or below the minimum bar size.
	ErrPreOpenNotEligible = errors.New("not eligible for pre-open window")
)
