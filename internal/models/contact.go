package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID                   uuid.UUID `json:"id"`
	OwnerID              uuid.UUID `json:"owner_id"`
	ContactWalletAddress string    `json:"contact_wallet_address"` // always lowercase
	Label                string    `json:"label"`
	Note                 *string   `json:"note,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
