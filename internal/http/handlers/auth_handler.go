package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/auth"
	"github.com/splitpay/backend/internal/http/dto"
	"github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/services"
)

type AuthHandler struct {
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewAuthHandler(profileService *services.ProfileService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{profileService: profileService, log: log}
}

// StartSignIn issues a nonce challenge for wallet signature sign-in.
func (h *AuthHandler) StartSignIn(c *fiber.Ctx) error {
	var req dto.SignInStartRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	challenge, err := h.profileService.StartSignIn(c.Context(), req.Address)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: challenge})
}

// SignIn verifies the signed challenge and returns a session token.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Address == "" || req.Nonce == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, nonce and signature are required"})
	}

	profile, token, err := h.profileService.SignIn(c.Context(), auth.Proof{
		Address:   req.Address,
		Timestamp: req.Timestamp,
		Nonce:     req.Nonce,
		Signature: req.Signature,
	})
	if err != nil {
		h.log.Debug("sign-in rejected", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.AuthResponse{Token: token, Profile: profile})
}

// SignOut drops the caller's cached snapshots.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	profile, err := h.profileService.GetByID(c.Context(), middleware.GetProfileID(c))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}
	h.profileService.SignOut(c.Context(), profile)
	return c.JSON(dto.SuccessResponse{OK: true})
}
