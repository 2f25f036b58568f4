package model

import "time"

// Identity providers.
const (
	ProviderPassword = "password"
	ProviderGitHub   = "github"
)

// Identity is an authenticated account. Its ID is shared with the Profile
// created for it at registration.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Provider     string    `json:"provider"`
	Subject      string    `json:"-"` // provider-side account id, empty for password identities
	CreatedAt    time.Time `json:"created_at"`
}
