package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/http/dto"
	"github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewProfileHandler(profileService *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	profile, err := h.profileService.GetByID(c.Context(), middleware.GetProfileID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: profile})
}

func (h *ProfileHandler) UpdateHistoryFilter(c *fiber.Ctx) error {
	var req dto.UpdateHistoryFilterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	profile, err := h.profileService.GetByID(c.Context(), middleware.GetProfileID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	if err := h.profileService.UpdateHistoryFilter(c.Context(), profile, req.Filter); err != nil {
		if errors.Is(err, services.ErrInvalidFilter) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to update filter"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: profile})
}

// LookupWallet checks whether a counterparty address is a registered
// profile. Returns registered=false for first-time addresses rather than a
// 404, since that is the expected case when requesting from someone new.
func (h *ProfileHandler) LookupWallet(c *fiber.Ctx) error {
	profile, err := h.profileService.LookupWallet(c.Context(), c.Params("address"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"registered": false}})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"registered":     true,
		"wallet_address": profile.WalletAddress,
	}})
}

// GetCapabilities is public: the client needs chain parameters before
// sign-in to build its wallet connection.
func (h *ProfileHandler) GetCapabilities(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.profileService.GetCapabilities(c.Context())})
}
