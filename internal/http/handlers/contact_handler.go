package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/http/dto"
	"github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
)

type ContactHandler struct {
	contactService *services.ContactService
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewContactHandler(contactService *services.ContactService, profileService *services.ProfileService, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, profileService: profileService, log: log}
}

func (h *ContactHandler) profile(c *fiber.Ctx) (*models.Profile, error) {
	return h.profileService.GetByID(c.Context(), middleware.GetProfileID(c))
}

func (h *ContactHandler) ListContacts(c *fiber.Ctx) error {
	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	contacts, err := h.contactService.List(c.Context(), profile)
	if err != nil {
		h.log.Error("contact list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load contacts"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: contacts})
}

func (h *ContactHandler) CreateContact(c *fiber.Ctx) error {
	var req dto.CreateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	contact, err := h.contactService.Create(c.Context(), profile, req.Address, req.Label, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "contact already exists"})
		case errors.Is(err, services.ErrSelfContact):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: contact})
}

func (h *ContactHandler) UpdateContact(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contact id"})
	}

	var req dto.UpdateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	contact, err := h.contactService.Update(c.Context(), profile, id, req.Label, req.Note)
	if err != nil {
		return contactError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: contact})
}

func (h *ContactHandler) DeleteContact(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contact id"})
	}

	profile, err := h.profile(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	if err := h.contactService.Delete(c.Context(), profile, id); err != nil {
		return contactError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func contactError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "contact not found"})
	case errors.Is(err, services.ErrNotContactOwner):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
