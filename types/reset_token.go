package types

import "time"

// ResetToken is a single-use, time-limited password recovery secret.
// Expired or used tokens are inert but never purged.
type ResetToken struct {
	ID        int       `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
