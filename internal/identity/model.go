package identity

import "time"

// User represents a registered buyer identified by their NIK.
type User struct {
	ID           string
	NIK          string
	Nama         string
	Whatsapp     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration carries the data submitted on sign-up.
type Registration struct {
	NIK      string
	Nama     string
	Whatsapp string
	Email    string
	Password string
}

// Credentials carries a login attempt. Identifier is an email address or a
// WhatsApp number.
type Credentials struct {
	Identifier string
	Password   string
}
