package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/validate"
)

var (
	ErrNotContactOwner = errors.New("contact belongs to another profile")
	ErrSelfContact     = errors.New("cannot add your own wallet as a contact")
)

type ContactService struct {
	contactRepo *repositories.ContactRepo
	lists       *cache.ListCache
	log         *zap.Logger
}

func NewContactService(contactRepo *repositories.ContactRepo, lists *cache.ListCache, log *zap.Logger) *ContactService {
	return &ContactService{contactRepo: contactRepo, lists: lists, log: log}
}

// List returns the profile's contacts, newest first, served from cache when
// a snapshot exists.
func (s *ContactService) List(ctx context.Context, profile *models.Profile) ([]models.Contact, error) {
	if cached, ok := s.lists.GetContacts(ctx, profile.WalletAddress); ok {
		return cached, nil
	}
	contacts, err := s.contactRepo.ListByOwner(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	s.lists.SetContacts(ctx, profile.WalletAddress, contacts)
	return contacts, nil
}

func (s *ContactService) Create(ctx context.Context, profile *models.Profile, rawAddress, label string, note *string) (*models.Contact, error) {
	wallet, err := validate.NormalizeAddress(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contact address: %w", err)
	}
	if wallet == profile.WalletAddress {
		return nil, ErrSelfContact
	}
	if label == "" {
		label = wallet[:10]
	}

	c := &models.Contact{
		OwnerID:              profile.ID,
		ContactWalletAddress: wallet,
		Label:                label,
		Note:                 note,
	}
	if err := s.contactRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.lists.InvalidateWallet(ctx, profile.WalletAddress)
	return c, nil
}

func (s *ContactService) Update(ctx context.Context, profile *models.Profile, id uuid.UUID, label string, note *string) (*models.Contact, error) {
	c, err := s.getOwned(ctx, profile, id)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = c.Label
	}
	if err := s.contactRepo.Update(ctx, id, label, note); err != nil {
		return nil, err
	}
	c.Label = label
	c.Note = note
	s.lists.InvalidateWallet(ctx, profile.WalletAddress)
	return c, nil
}

func (s *ContactService) Delete(ctx context.Context, profile *models.Profile, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, profile, id); err != nil {
		return err
	}
	if err := s.contactRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.lists.InvalidateWallet(ctx, profile.WalletAddress)
	return nil
}

// AddressSet returns the profile's contact addresses as a lookup set for
// history filtering.
func (s *ContactService) AddressSet(ctx context.Context, profileID uuid.UUID) (map[string]bool, error) {
	return s.contactRepo.ListAddressesByOwner(ctx, profileID)
}

func (s *ContactService) getOwned(ctx context.Context, profile *models.Profile, id uuid.UUID) (*models.Contact, error) {
	c, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != profile.ID {
		return nil, ErrNotContactOwner
	}
	return c, nil
}
