package types

import "time"

// User represents an account in the system.
// It contains identity, naming, and credential metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. It doubles as the login name
	// and is unique across all users.
	Email string `json:"email" db:"email"`

	// Credential stores the value that submitted passwords are checked
	// against. Depending on the configured scheme it is either a bcrypt
	// hash or an opaque random token. It is never exposed in API responses.
	Credential string `json:"-" db:"credential"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// CreatedAt is the timestamp when the user registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
