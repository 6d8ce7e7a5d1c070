package models

import (
	"time"

	"github.com/google/uuid"
)

// History filter preferences
const (
	HistoryFilterAll      = "all"
	HistoryFilterContacts = "contacts"
	HistoryFilterExternal = "external"
)

func IsValidHistoryFilter(f string) bool {
	return f == HistoryFilterAll || f == HistoryFilterContacts || f == HistoryFilterExternal
}

type Profile struct {
	ID                   uuid.UUID `json:"id"`
	WalletAddress        string    `json:"wallet_address"` // always lowercase
	HistoryFilterDefault string    `json:"history_filter_default"`
	CreatedAt            time.Time `json:"created_at"`
	LastSeenAt           time.Time `json:"last_seen_at"`
}

type SigninNonce struct {
	ID            uuid.UUID  `json:"id"`
	Nonce         string     `json:"nonce"`
	WalletAddress *string    `json:"-"`
	CreatedAt     time.Time  `json:"-"`
	ExpiresAt     time.Time  `json:"-"`
	Used          bool       `json:"-"`
}
