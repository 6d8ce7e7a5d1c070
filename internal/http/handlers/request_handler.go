package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/http/dto"
	"github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
)

type RequestHandler struct {
	requestService *services.RequestService
	contactService *services.ContactService
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewRequestHandler(
	requestService *services.RequestService,
	contactService *services.ContactService,
	profileService *services.ProfileService,
	log *zap.Logger,
) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		contactService: contactService,
		profileService: profileService,
		log:            log,
	}
}

func (h *RequestHandler) profile(c *fiber.Ctx) (*models.Profile, error) {
	return h.profileService.GetByID(c.Context(), middleware.GetProfileID(c))
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var req dto.CreatePaymentRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.PayerAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "payer_address is required"})
	}

	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	created, err := h.requestService.CreateRequest(c.Context(), profile, services.CreateRequestInput{
		PayerAddress: req.PayerAddress,
		Amount:       req.Amount,
		Memo:         req.Memo,
		ExpiresAt:    req.ExpiresAt,
		SaveContact:  req.SaveContact,
		ContactLabel: req.ContactLabel,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: created})
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	req, err := h.requestService.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "request not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: req})
}

func (h *RequestHandler) ListIncoming(c *fiber.Ctx) error {
	requests, err := h.requestService.ListIncoming(c.Context(), middleware.GetWalletAddress(c), queryLimit(c))
	if err != nil {
		h.log.Error("incoming list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load requests"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: requests})
}

func (h *RequestHandler) ListSent(c *fiber.Ctx) error {
	requests, err := h.requestService.ListSent(c.Context(), middleware.GetProfileID(c), queryLimit(c))
	if err != nil {
		h.log.Error("sent list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load requests"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: requests})
}

// GetHistory returns the merged sent+received history, filtered by the
// profile's stored preference unless a filter query overrides it.
func (h *RequestHandler) GetHistory(c *fiber.Ctx) error {
	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	forceRefresh := c.Query("refresh") == "true"
	entries, warnings, err := h.requestService.LoadHistory(c.Context(), profile, forceRefresh)
	if err != nil {
		h.log.Error("history load failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load history"})
	}

	filter := profile.HistoryFilterDefault
	if q := c.Query("filter"); q != "" {
		if !models.IsValidHistoryFilter(q) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown history filter"})
		}
		filter = q
	}

	if filter != models.HistoryFilterAll {
		contacts, err := h.contactService.AddressSet(c.Context(), profile.ID)
		if err != nil {
			h.log.Warn("contact set unavailable, returning unfiltered history", zap.Error(err))
			filter = models.HistoryFilterAll
		} else {
			entries = services.FilterHistory(entries, filter, contacts)
		}
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.HistoryResponse{Entries: entries, Filter: filter, Warnings: warnings}})
}

// GetPaymentInfo returns the pre-encoded transfer call for a pending
// request, for the payer's wallet to sign and submit.
func (h *RequestHandler) GetPaymentInfo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	info, err := h.requestService.GetPaymentInstructions(c.Context(), id)
	if err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

// GetActivity returns the request's audit trail.
func (h *RequestHandler) GetActivity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	entries, err := h.requestService.GetActivity(c.Context(), id, queryLimit(c))
	if err != nil {
		h.log.Error("activity load failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load activity"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

// SubmitTx registers the payer's payment transaction hash for confirmation
// tracking.
func (h *RequestHandler) SubmitTx(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	var req dto.SubmitTxRequest
	if err := c.BodyParser(&req); err != nil || req.TxHash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "tx_hash is required"})
	}

	if err := h.requestService.MarkTxSubmitted(c.Context(), id, req.TxHash); err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ConfirmPaid applies a confirmed payment. Idempotent; normally driven by
// the chain watcher, exposed for clients that observe the receipt first.
func (h *RequestHandler) ConfirmPaid(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	var req dto.ConfirmPaidRequest
	if err := c.BodyParser(&req); err != nil || req.TxHash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "tx_hash is required"})
	}

	if err := h.requestService.ConfirmPaid(c.Context(), id, req.TxHash); err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *RequestHandler) CancelRequest(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	if err := h.requestService.Cancel(c.Context(), id, middleware.GetProfileID(c)); err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *RequestHandler) RejectRequest(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	if err := h.requestService.Reject(c.Context(), id, middleware.GetWalletAddress(c)); err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *RequestHandler) RecordTransfer(c *fiber.Ctx) error {
	var req dto.RecordTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	transfer, err := h.requestService.RecordTransfer(c.Context(), profile, services.RecordTransferInput{
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
		TxHash:           req.TxHash,
		Memo:             req.Memo,
		SaveContact:      req.SaveContact,
		ContactLabel:     req.ContactLabel,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: transfer})
}

func requestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "request not found"})
	case errors.Is(err, services.ErrNotRequester), errors.Is(err, services.ErrNotPayer):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}

func queryLimit(c *fiber.Ctx) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
