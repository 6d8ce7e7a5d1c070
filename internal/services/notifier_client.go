package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/evm"
	"github.com/splitpay/backend/internal/models"
)

// NotifierClient delivers request lifecycle notifications to an external
// webhook (push relay, chat bot, email bridge). Delivery is best-effort;
// failures are logged, never surfaced to the caller.
type NotifierClient struct {
	webhookURL string
	httpClient *http.Client
	log        *zap.Logger
}

// NewNotifierClient returns a client for the given webhook URL. An empty
// URL yields a no-op client, so callers never need a nil check.
func NewNotifierClient(webhookURL string, log *zap.Logger) *NotifierClient {
	return &NotifierClient{
		webhookURL: strings.TrimRight(webhookURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type webhookPayload struct {
	Event     string `json:"event"`
	RequestID string `json:"request_id"`
	Requester string `json:"requester_wallet"`
	Payer     string `json:"payer_wallet"`
	Amount    string `json:"amount_usdc"`
	TxHash    string `json:"tx_hash,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

func (c *NotifierClient) RequestCreated(ctx context.Context, req *models.PaymentRequest, requesterWallet string) {
	p := webhookPayload{
		Event:     "request_created",
		RequestID: req.ID.String(),
		Requester: requesterWallet,
		Payer:     req.PayerWalletAddress,
		Amount:    evm.FormatMicro(req.Amount),
	}
	if req.Memo != nil {
		p.Memo = *req.Memo
	}
	c.post(ctx, p)
}

func (c *NotifierClient) PaymentConfirmed(ctx context.Context, req *models.RequestWithRequester, txHash string) {
	c.post(ctx, webhookPayload{
		Event:     "payment_confirmed",
		RequestID: req.ID.String(),
		Requester: req.RequesterWalletAddress,
		Payer:     req.PayerWalletAddress,
		Amount:    evm.FormatMicro(req.Amount),
		TxHash:    txHash,
	})
}

func (c *NotifierClient) post(ctx context.Context, payload webhookPayload) {
	if c.webhookURL == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, strings.NewReader(string(body)))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("webhook delivery failed", zap.String("event", payload.Event), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.Warn("webhook returned non-success",
			zap.String("event", payload.Event), zap.Int("status", resp.StatusCode))
	}
}

// ProbePaymaster checks a paymaster endpoint for reachability. Used by the
// capabilities report in the profile service.
func (c *NotifierClient) ProbePaymaster(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
