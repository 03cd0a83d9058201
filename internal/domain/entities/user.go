package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// User is a platform identity as mirrored from the identity service. The
// deal coordinator only reads this directory: it resolves otherPartyEmail at
// deal creation and attributes timeline events to actors.
type User struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	WalletAddress null.String `json:"walletAddress,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Principal is the verified caller identity attached to each request by the
// auth middleware.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
