package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/events"
	"github.com/splitpay/backend/internal/evm"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/validate"
)

var (
	ErrNotRequester      = errors.New("only the requester can perform this action")
	ErrNotPayer          = errors.New("only the payer can perform this action")
	ErrInvalidTransition = errors.New("request is not in a state that allows this action")
)

// Redis keys shared with cmd/chain-watcher.
const (
	WatchSetKey    = "splitpay:watch:txs"
	WatchTxKey     = "splitpay:watch:tx:"     // + tx hash -> request id
	confirmLockKey = "splitpay:confirm:lock:" // + request id
	watchTTL       = 48 * time.Hour
)

// RequestStore is the request persistence surface the service needs.
// Satisfied by repositories.RequestRepo.
type RequestStore interface {
	Create(ctx context.Context, req *models.PaymentRequest) error
	CreateTransfer(ctx context.Context, req *models.PaymentRequest, txHash string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RequestWithRequester, error)
	ListIncoming(ctx context.Context, payerWallet string, limit int) ([]models.RequestWithRequester, error)
	ListSent(ctx context.Context, requesterID uuid.UUID, limit int) ([]models.RequestWithRequester, error)
	ListExpired(ctx context.Context, limit int) ([]models.RequestWithRequester, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, txHash *string) error
}

// ContactStore is satisfied by repositories.ContactRepo.
type ContactStore interface {
	ExistsForOwner(ctx context.Context, ownerID uuid.UUID, walletAddress string) (bool, error)
	Create(ctx context.Context, c *models.Contact) error
}

// ActivityStore is satisfied by repositories.ActivityRepo.
type ActivityStore interface {
	Log(ctx context.Context, entry models.ActivityLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.ActivityLog, error)
}

type RequestService struct {
	requestRepo  RequestStore
	contactRepo  ContactStore
	activityRepo ActivityStore
	lists        *cache.ListCache
	rdb          *redis.Client
	notifier     *NotifierClient
	publisher    events.Publisher
	cfg          *config.Config
	log          *zap.Logger
}

func NewRequestService(
	requestRepo RequestStore,
	contactRepo ContactStore,
	activityRepo ActivityStore,
	lists *cache.ListCache,
	rdb *redis.Client,
	notifier *NotifierClient,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *RequestService {
	return &RequestService{
		requestRepo:  requestRepo,
		contactRepo:  contactRepo,
		activityRepo: activityRepo,
		lists:        lists,
		rdb:          rdb,
		notifier:     notifier,
		publisher:    publisher,
		cfg:          cfg,
		log:          log,
	}
}

// CreateRequestInput carries the client payload for a new payment request.
type CreateRequestInput struct {
	PayerAddress string
	Amount       string // human-readable USDC, e.g. "12.50"
	Memo         *string
	ExpiresAt    *time.Time
	SaveContact  bool
	ContactLabel string
}

func (s *RequestService) CreateRequest(ctx context.Context, requester *models.Profile, in CreateRequestInput) (*models.PaymentRequest, error) {
	res := validate.ValidateAmount(in.Amount, s.cfg.MinAmount, s.cfg.MaxAmount)
	if !res.IsValid {
		return nil, errors.New(res.Error)
	}

	payer, err := validate.NormalizeAddress(in.PayerAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid payer address: %w", err)
	}

	expiresAt := in.ExpiresAt
	if expiresAt == nil && s.cfg.DefaultRequestTTL > 0 {
		t := time.Now().Add(s.cfg.DefaultRequestTTL)
		expiresAt = &t
	}

	req := &models.PaymentRequest{
		RequesterID:        requester.ID,
		Type:               models.RequestTypeRequest,
		PayerWalletAddress: payer,
		TokenAddress:       s.cfg.USDCTokenAddress,
		ChainID:            s.cfg.ChainID,
		Amount:             res.Amount,
		Memo:               in.Memo,
		Status:             models.RequestStatusPending,
		ExpiresAt:          expiresAt,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if in.SaveContact {
		s.saveContactIfNew(ctx, requester.ID, payer, in.ContactLabel)
	}

	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		ProfileID:  &requester.ID,
		Action:     "request_created",
		EntityType: "payment_request",
		EntityID:   &req.ID,
		Meta:       map[string]any{"payer": payer, "amount": req.Amount},
	})
	_ = s.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventRequestCreated,
		Payload: map[string]any{
			"request_id": req.ID.String(),
			"requester":  requester.WalletAddress,
			"payer":      payer,
			"amount":     req.Amount,
		},
	})

	s.lists.InvalidateWallet(ctx, requester.WalletAddress)
	s.lists.InvalidateWallet(ctx, payer)
	s.notifier.RequestCreated(ctx, req, requester.WalletAddress)

	return req, nil
}

func (s *RequestService) saveContactIfNew(ctx context.Context, ownerID uuid.UUID, wallet, label string) {
	exists, err := s.contactRepo.ExistsForOwner(ctx, ownerID, wallet)
	if err != nil || exists {
		return
	}
	if label == "" {
		label = wallet[:10]
	}
	c := &models.Contact{OwnerID: ownerID, ContactWalletAddress: wallet, Label: label}
	if err := s.contactRepo.Create(ctx, c); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		s.log.Warn("failed to save contact alongside request", zap.Error(err))
	}
}

// RecordTransferInput carries the client payload for a completed transfer.
type RecordTransferInput struct {
	RecipientAddress string
	Amount           string // human-readable USDC, e.g. "12.50"
	TxHash           string
	Memo             *string
	SaveContact      bool
	ContactLabel     string
}

// RecordTransfer inserts a completed direct transfer as a history entry. The
// record is born paid and never transitions.
func (s *RequestService) RecordTransfer(ctx context.Context, sender *models.Profile, in RecordTransferInput) (*models.PaymentRequest, error) {
	res := validate.ValidateAmount(in.Amount, s.cfg.MinAmount, s.cfg.MaxAmount)
	if !res.IsValid {
		return nil, errors.New(res.Error)
	}
	recipient, err := validate.NormalizeAddress(in.RecipientAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	hash, err := validate.NormalizeTxHash(in.TxHash)
	if err != nil {
		return nil, fmt.Errorf("invalid tx hash: %w", err)
	}

	req := &models.PaymentRequest{
		RequesterID:        sender.ID,
		Type:               models.RequestTypeTransfer,
		PayerWalletAddress: recipient,
		TokenAddress:       s.cfg.USDCTokenAddress,
		ChainID:            s.cfg.ChainID,
		Amount:             res.Amount,
		Memo:               in.Memo,
	}
	if err := s.requestRepo.CreateTransfer(ctx, req, hash); err != nil {
		return nil, fmt.Errorf("record transfer: %w", err)
	}

	if in.SaveContact {
		s.saveContactIfNew(ctx, sender.ID, recipient, in.ContactLabel)
	}

	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		ProfileID:  &sender.ID,
		Action:     "transfer_recorded",
		EntityType: "payment_request",
		EntityID:   &req.ID,
		Meta:       map[string]any{"recipient": recipient, "amount": req.Amount, "tx_hash": hash},
	})

	s.lists.InvalidateWallet(ctx, sender.WalletAddress)
	s.lists.InvalidateWallet(ctx, recipient)
	return req, nil
}

func (s *RequestService) GetByID(ctx context.Context, id uuid.UUID) (*models.RequestWithRequester, error) {
	return s.requestRepo.GetByID(ctx, id)
}

// PaymentInstructions is everything the payer's wallet needs to settle a
// request: the ERC-20 transfer call, pre-encoded.
type PaymentInstructions struct {
	RequestID    string `json:"request_id"`
	ChainID      int64  `json:"chain_id"`
	TokenAddress string `json:"token_address"`
	To           string `json:"to"` // requester's wallet
	AmountMicro  int64  `json:"amount_micro"`
	Calldata     string `json:"calldata"` // hex-encoded transfer(to, amount)
}

func (s *RequestService) GetPaymentInstructions(ctx context.Context, requestID uuid.UUID) (*PaymentInstructions, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrInvalidTransition
	}

	calldata := evm.TransferCalldata(common.HexToAddress(req.RequesterWalletAddress), big.NewInt(req.Amount))
	return &PaymentInstructions{
		RequestID:    req.ID.String(),
		ChainID:      req.ChainID,
		TokenAddress: req.TokenAddress,
		To:           req.RequesterWalletAddress,
		AmountMicro:  req.Amount,
		Calldata:     "0x" + hex.EncodeToString(calldata),
	}, nil
}

// GetActivity returns the audit trail for one request, newest first.
func (s *RequestService) GetActivity(ctx context.Context, requestID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.activityRepo.GetByEntity(ctx, "payment_request", requestID, limit, 0)
}

func (s *RequestService) ListIncoming(ctx context.Context, payerWallet string, limit int) ([]models.RequestWithRequester, error) {
	return s.requestRepo.ListIncoming(ctx, payerWallet, limit)
}

func (s *RequestService) ListSent(ctx context.Context, requesterID uuid.UUID, limit int) ([]models.RequestWithRequester, error) {
	return s.requestRepo.ListSent(ctx, requesterID, limit)
}

// LoadHistory returns the merged sent+incoming history for a profile. A
// fresh cached snapshot is served as-is; on refresh, failure of one source
// list degrades to the other, reported through the returned warnings
// instead of failing the whole load. Only a fully successful refresh is
// written back to the cache. Forced refreshes are throttled to one per
// HistoryRefreshInterval per wallet.
func (s *RequestService) LoadHistory(ctx context.Context, profile *models.Profile, forceRefresh bool) ([]models.HistoryEntry, []string, error) {
	if forceRefresh {
		throttleKey := "splitpay:history:refreshed:" + profile.WalletAddress
		ok, err := s.rdb.SetNX(ctx, throttleKey, 1, s.cfg.HistoryRefreshInterval).Result()
		if err == nil && !ok {
			forceRefresh = false
		}
	}
	if !forceRefresh {
		if cached, ok := s.lists.GetHistory(ctx, profile.WalletAddress); ok {
			return cached, nil, nil
		}
	}

	var warnings []string

	sent, sentErr := s.requestRepo.ListSent(ctx, profile.ID, 0)
	if sentErr != nil {
		s.log.Warn("history: sent list unavailable", zap.String("wallet", profile.WalletAddress), zap.Error(sentErr))
		warnings = append(warnings, "failed to load sent requests")
	}
	incoming, incErr := s.requestRepo.ListIncoming(ctx, profile.WalletAddress, 0)
	if incErr != nil {
		s.log.Warn("history: incoming list unavailable", zap.String("wallet", profile.WalletAddress), zap.Error(incErr))
		warnings = append(warnings, "failed to load incoming requests")
	}
	if sentErr != nil && incErr != nil {
		return nil, nil, fmt.Errorf("load history: %w", sentErr)
	}

	merged := MergeHistory(sent, incoming)
	if sentErr == nil && incErr == nil {
		s.lists.SetHistory(ctx, profile.WalletAddress, merged)
	}
	return merged, warnings, nil
}

// MarkTxSubmitted registers a payment transaction hash for confirmation
// tracking. The request stays pending; tx_hash is only persisted once the
// transaction confirms.
func (s *RequestService) MarkTxSubmitted(ctx context.Context, requestID uuid.UUID, txHash string) error {
	hash, err := validate.NormalizeTxHash(txHash)
	if err != nil {
		return fmt.Errorf("invalid tx hash: %w", err)
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.RequestStatusPending {
		return ErrInvalidTransition
	}

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, WatchSetKey, hash)
	pipe.Set(ctx, WatchTxKey+hash, requestID.String(), watchTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register watch: %w", err)
	}

	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		Action:     "payment_tx_submitted",
		EntityType: "payment_request",
		EntityID:   &requestID,
		Meta:       map[string]any{"tx_hash": hash},
	})
	return nil
}

// ConfirmPaid performs the pending->paid transition exactly once per
// request. Concurrent or repeated confirmations of the same request (the
// watcher and an optimistic client both reporting) collapse into a single
// status update via a redis lock.
func (s *RequestService) ConfirmPaid(ctx context.Context, requestID uuid.UUID, txHash string) error {
	hash, err := validate.NormalizeTxHash(txHash)
	if err != nil {
		return fmt.Errorf("invalid tx hash: %w", err)
	}

	acquired, err := s.rdb.SetNX(ctx, confirmLockKey+requestID.String(), hash, watchTTL).Result()
	if err != nil {
		return fmt.Errorf("confirm lock: %w", err)
	}
	if !acquired {
		s.log.Debug("duplicate payment confirmation ignored", zap.String("request_id", requestID.String()))
		return nil
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		s.rdb.Del(ctx, confirmLockKey+requestID.String())
		return err
	}
	if req.Status == models.RequestStatusPaid {
		// Confirmed through another path; still stop watching the hash.
		s.clearWatch(ctx, hash)
		return nil
	}

	if err := s.transition(ctx, &req.PaymentRequest, models.RequestStatusPaid, &hash); err != nil {
		// Release the lock so a later retry can land the update.
		s.rdb.Del(ctx, confirmLockKey+requestID.String())
		return err
	}

	s.clearWatch(ctx, hash)

	_ = s.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventPaymentConfirmed,
		Payload: map[string]any{
			"request_id": requestID.String(),
			"tx_hash":    hash,
			"payer":      req.PayerWalletAddress,
			"requester":  req.RequesterWalletAddress,
		},
	})
	s.notifier.PaymentConfirmed(ctx, req, hash)
	s.invalidateParties(ctx, req)
	return nil
}

func (s *RequestService) clearWatch(ctx context.Context, hash string) {
	pipe := s.rdb.Pipeline()
	pipe.SRem(ctx, WatchSetKey, hash)
	pipe.Del(ctx, WatchTxKey+hash)
	_, _ = pipe.Exec(ctx)
}

// Cancel withdraws a pending request. Requester only.
func (s *RequestService) Cancel(ctx context.Context, requestID, actorID uuid.UUID) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != actorID {
		return ErrNotRequester
	}
	if err := s.transition(ctx, &req.PaymentRequest, models.RequestStatusCancelled, nil); err != nil {
		return err
	}
	s.invalidateParties(ctx, req)
	return nil
}

// Reject declines a pending request. Payer only.
func (s *RequestService) Reject(ctx context.Context, requestID uuid.UUID, actorWallet string) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.PayerWalletAddress != actorWallet {
		return ErrNotPayer
	}
	if err := s.transition(ctx, &req.PaymentRequest, models.RequestStatusRejected, nil); err != nil {
		return err
	}
	s.invalidateParties(ctx, req)
	return nil
}

// ExpireOverdue sweeps pending requests past their expires_at. Run
// periodically by cmd/worker. Returns how many were expired.
func (s *RequestService) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	overdue, err := s.requestRepo.ListExpired(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	expired := 0
	for i := range overdue {
		req := &overdue[i]
		if err := s.transition(ctx, &req.PaymentRequest, models.RequestStatusExpired, nil); err != nil {
			// Lost the race to paid/cancelled, or db hiccup. Skip.
			s.log.Warn("expiry sweep skipped request",
				zap.String("request_id", req.ID.String()), zap.Error(err))
			continue
		}
		s.invalidateParties(ctx, req)
		expired++
	}
	return expired, nil
}

// transition validates and performs a status transition with activity
// logging and an event publish. The repo update is guarded on the current
// status, so a concurrent transition makes this return ErrInvalidTransition
// instead of clobbering.
func (s *RequestService) transition(ctx context.Context, req *models.PaymentRequest, newStatus string, txHash *string) error {
	if !models.IsValidTransition(req.Status, newStatus) {
		return ErrInvalidTransition
	}

	oldStatus := req.Status
	if err := s.requestRepo.UpdateStatus(ctx, req.ID, oldStatus, newStatus, txHash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidTransition
		}
		return err
	}
	req.Status = newStatus
	if newStatus == models.RequestStatusPaid && txHash != nil {
		req.TxHash = txHash
		now := time.Now()
		req.PaidAt = &now
	}

	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		Action:     fmt.Sprintf("request_%s_to_%s", oldStatus, newStatus),
		EntityType: "payment_request",
		EntityID:   &req.ID,
		Meta:       map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})
	_ = s.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventRequestStatusChanged,
		Payload: map[string]any{
			"request_id": req.ID.String(),
			"old_status": oldStatus,
			"new_status": newStatus,
			"payer":      req.PayerWalletAddress,
		},
	})
	return nil
}

func (s *RequestService) invalidateParties(ctx context.Context, req *models.RequestWithRequester) {
	s.lists.InvalidateWallet(ctx, req.PayerWalletAddress)
	if req.RequesterWalletAddress != "" {
		s.lists.InvalidateWallet(ctx, req.RequesterWalletAddress)
	}
}
