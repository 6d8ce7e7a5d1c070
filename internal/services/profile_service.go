package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/auth"
	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/validate"
)

var (
	ErrInvalidNonce  = errors.New("sign-in nonce is invalid or expired")
	ErrInvalidFilter = errors.New("unknown history filter")
)

type ProfileService struct {
	profileRepo  *repositories.ProfileRepo
	activityRepo *repositories.ActivityRepo
	lists        *cache.ListCache
	notifier     *NotifierClient
	cfg          *config.Config
	log          *zap.Logger
}

func NewProfileService(
	profileRepo *repositories.ProfileRepo,
	activityRepo *repositories.ActivityRepo,
	lists *cache.ListCache,
	notifier *NotifierClient,
	cfg *config.Config,
	log *zap.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo:  profileRepo,
		activityRepo: activityRepo,
		lists:        lists,
		notifier:     notifier,
		cfg:          cfg,
		log:          log,
	}
}

// SignInChallenge issues a single-use nonce and the exact message the
// wallet should sign. When the caller already knows its address, the nonce
// is bound to it.
type SignInChallenge struct {
	Nonce         string `json:"nonce"`
	MessagePrefix string `json:"message_prefix"`
	ExpiresIn     int64  `json:"expires_in"` // seconds
}

func (s *ProfileService) StartSignIn(ctx context.Context, rawAddress string) (*SignInChallenge, error) {
	var bound *string
	if rawAddress != "" {
		wallet, err := validate.NormalizeAddress(rawAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		bound = &wallet
	}

	nonce, err := s.profileRepo.CreateSigninNonce(ctx, bound, s.cfg.SigninNonceTTL)
	if err != nil {
		return nil, fmt.Errorf("issue nonce: %w", err)
	}
	return &SignInChallenge{
		Nonce:         nonce.Nonce,
		MessagePrefix: auth.SignInMessagePrefix,
		ExpiresIn:     int64(s.cfg.SigninNonceTTL.Seconds()),
	}, nil
}

// SignIn verifies a wallet proof, consumes its nonce, and upserts the
// profile. First sign-in creates the profile; later ones refresh
// last_seen_at.
func (s *ProfileService) SignIn(ctx context.Context, proof auth.Proof) (*models.Profile, string, error) {
	wallet, err := validate.NormalizeAddress(proof.Address)
	if err != nil {
		return nil, "", fmt.Errorf("invalid address: %w", err)
	}

	nonce, err := s.profileRepo.ConsumeSigninNonce(ctx, proof.Nonce)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", ErrInvalidNonce
		}
		return nil, "", err
	}
	if nonce.WalletAddress != nil && !strings.EqualFold(*nonce.WalletAddress, wallet) {
		return nil, "", ErrInvalidNonce
	}

	if err := auth.VerifyProof(proof); err != nil {
		return nil, "", fmt.Errorf("proof rejected: %w", err)
	}

	profile, err := s.profileRepo.UpsertByWallet(ctx, wallet)
	if err != nil {
		return nil, "", fmt.Errorf("upsert profile: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, profile.ID, profile.WalletAddress, s.cfg.JWTExpiration)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		ProfileID:  &profile.ID,
		Action:     "signed_in",
		EntityType: "profile",
		EntityID:   &profile.ID,
	})
	return profile, token, nil
}

// SignOut drops the wallet's cached list snapshots. The JWT itself expires
// on its own; there is no server-side session to tear down.
func (s *ProfileService) SignOut(ctx context.Context, profile *models.Profile) {
	s.lists.InvalidateWallet(ctx, profile.WalletAddress)
	_ = s.activityRepo.Log(ctx, models.ActivityLog{
		ProfileID:  &profile.ID,
		Action:     "signed_out",
		EntityType: "profile",
		EntityID:   &profile.ID,
	})
}

func (s *ProfileService) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// LookupWallet reports whether a counterparty address belongs to a known
// profile. Mixed-case input matches; repositories.ErrNotFound means the
// address has never signed in.
func (s *ProfileService) LookupWallet(ctx context.Context, rawAddress string) (*models.Profile, error) {
	wallet, err := validate.NormalizeAddress(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	return s.profileRepo.GetByWallet(ctx, wallet)
}

func (s *ProfileService) UpdateHistoryFilter(ctx context.Context, profile *models.Profile, filter string) error {
	if !models.IsValidHistoryFilter(filter) {
		return ErrInvalidFilter
	}
	if err := s.profileRepo.UpdateHistoryFilter(ctx, profile.ID, filter); err != nil {
		return err
	}
	profile.HistoryFilterDefault = filter
	return nil
}

// Capabilities describes what the configured chain setup supports.
type Capabilities struct {
	ChainID        int64  `json:"chain_id"`
	TokenAddress   string `json:"token_address"`
	GasSponsorship bool   `json:"gas_sponsorship"`
}

// GetCapabilities reports chain parameters and whether gasless payments are
// available. A configured but unreachable paymaster reports sponsorship off.
func (s *ProfileService) GetCapabilities(ctx context.Context) Capabilities {
	caps := Capabilities{
		ChainID:      s.cfg.ChainID,
		TokenAddress: s.cfg.USDCTokenAddress,
	}
	if s.cfg.HasPaymaster() {
		if err := s.notifier.ProbePaymaster(ctx, s.cfg.PaymasterURL); err != nil {
			s.log.Warn("paymaster configured but unreachable", zap.Error(err))
		} else {
			caps.GasSponsorship = true
		}
	}
	return caps
}
