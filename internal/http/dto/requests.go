package dto

import "time"

type SignInStartRequest struct {
	Address string `json:"address,omitempty"`
}

type SignInRequest struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type UpdateHistoryFilterRequest struct {
	Filter string `json:"filter"` // all / contacts / external
}

type CreateContactRequest struct {
	Address string  `json:"address"`
	Label   string  `json:"label"`
	Note    *string `json:"note,omitempty"`
}

type UpdateContactRequest struct {
	Label string  `json:"label,omitempty"`
	Note  *string `json:"note,omitempty"`
}

type CreatePaymentRequestRequest struct {
	PayerAddress string     `json:"payer_address"`
	Amount       string     `json:"amount"` // human-readable USDC
	Memo         *string    `json:"memo,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SaveContact  bool       `json:"save_contact,omitempty"`
	ContactLabel string     `json:"contact_label,omitempty"`
}

type RecordTransferRequest struct {
	RecipientAddress string  `json:"recipient_address"`
	Amount           string  `json:"amount"`
	TxHash           string  `json:"tx_hash"`
	Memo             *string `json:"memo,omitempty"`
	SaveContact      bool    `json:"save_contact"`
	ContactLabel     string  `json:"contact_label"`
}

type SubmitTxRequest struct {
	TxHash string `json:"tx_hash"`
}

type ConfirmPaidRequest struct {
	TxHash string `json:"tx_hash"`
}
