package models

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses
const (
	RequestStatusPending   = "pending"
	RequestStatusPaid      = "paid"
	RequestStatusCancelled = "cancelled"
	RequestStatusRejected  = "rejected"
	RequestStatusExpired   = "expired"
)

// Request types
const (
	RequestTypeRequest  = "request"
	RequestTypeTransfer = "transfer"
)

// Direction tags for merged history entries
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Valid state transitions: from -> []to. Everything except pending is terminal.
var ValidStatusTransitions = map[string][]string{
	RequestStatusPending:   {RequestStatusPaid, RequestStatusCancelled, RequestStatusRejected, RequestStatusExpired},
	RequestStatusPaid:      {},
	RequestStatusCancelled: {},
	RequestStatusRejected:  {},
	RequestStatusExpired:   {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidStatusTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	allowed, ok := ValidStatusTransitions[status]
	return ok && len(allowed) == 0
}

// PaymentRequest models both a request for funds (type=request) and a record
// of a completed direct transfer (type=transfer, inserted already paid).
type PaymentRequest struct {
	ID                 uuid.UUID  `json:"id"`
	RequesterID        uuid.UUID  `json:"requester_id"`
	Type               string     `json:"type"`
	PayerWalletAddress string     `json:"payer_wallet_address"` // always lowercase
	TokenAddress       string     `json:"token_address"`
	ChainID            int64      `json:"chain_id"`
	Amount             int64      `json:"amount"` // micro-USDC (6 decimals)
	Memo               *string    `json:"memo,omitempty"`
	Status             string     `json:"status"`
	TxHash             *string    `json:"tx_hash,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// RequestWithRequester embeds PaymentRequest and adds the requester's wallet
// address from a join, so list responses avoid N+1 profile lookups.
type RequestWithRequester struct {
	PaymentRequest
	RequesterWalletAddress string `json:"requester_wallet_address"`
}

// HistoryEntry is a merged, direction-tagged view of a request for the
// combined sent+received history list.
type HistoryEntry struct {
	RequestWithRequester
	Direction string `json:"direction"` // sent | received
}

// SortTime is the ordering key for history: paid_at when paid, else created_at.
func (r *PaymentRequest) SortTime() time.Time {
	if r.Status == RequestStatusPaid && r.PaidAt != nil {
		return *r.PaidAt
	}
	return r.CreatedAt
}
