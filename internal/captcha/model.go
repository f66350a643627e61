package captcha

import "time"

// Kind discriminates challenge flavors.
type Kind string

const (
	KindMath  Kind = "math"
	KindImage Kind = "image"
)

// Challenge is the server-held record for an outstanding puzzle. The expected
// answer never leaves the server.
type Challenge struct {
	Token     string
	Kind      Kind
	Answer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MathChallenge is the client-facing shape of an arithmetic puzzle.
type MathChallenge struct {
	A         int    `json:"a"`
	B         int    `json:"b"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// ImageChallenge is the client-facing shape of an image-choice puzzle.
type ImageChallenge struct {
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
}
