package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/http/dto"
	"github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/services"
)

type BalanceHandler struct {
	balanceService *services.BalanceService
	log            *zap.Logger
}

func NewBalanceHandler(balanceService *services.BalanceService, log *zap.Logger) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService, log: log}
}

// GetBalance returns the caller's USDC balance, cached within the poll
// interval.
func (h *BalanceHandler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.balanceService.Get(c.Context(), middleware.GetWalletAddress(c))
	if err != nil {
		h.log.Error("balance read failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "balance unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: balance})
}

// RefreshBalance forces a fresh chain read, the "refresh after payment"
// path.
func (h *BalanceHandler) RefreshBalance(c *fiber.Ctx) error {
	balance, err := h.balanceService.Refresh(c.Context(), middleware.GetWalletAddress(c))
	if err != nil {
		h.log.Error("balance refresh failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "balance unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: balance})
}
