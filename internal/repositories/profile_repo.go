package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splitpay/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// UpsertByWallet creates the profile on first sign-in and refreshes
// last_seen_at on every subsequent one. walletAddress must be lowercase.
func (r *ProfileRepo) UpsertByWallet(ctx context.Context, walletAddress string) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (wallet_address)
		VALUES ($1)
		ON CONFLICT (wallet_address) DO UPDATE SET last_seen_at = now()
		RETURNING id, wallet_address, history_filter_default, created_at, last_seen_at
	`, walletAddress).Scan(&p.ID, &p.WalletAddress, &p.HistoryFilterDefault, &p.CreatedAt, &p.LastSeenAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, wallet_address, history_filter_default, created_at, last_seen_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.WalletAddress, &p.HistoryFilterDefault, &p.CreatedAt, &p.LastSeenAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// GetByWallet looks a profile up by lowercase wallet address.
// Returns ErrNotFound for wallets that never signed in.
func (r *ProfileRepo) GetByWallet(ctx context.Context, walletAddress string) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, wallet_address, history_filter_default, created_at, last_seen_at
		FROM profiles WHERE wallet_address = $1
	`, walletAddress).Scan(&p.ID, &p.WalletAddress, &p.HistoryFilterDefault, &p.CreatedAt, &p.LastSeenAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProfileRepo) UpdateHistoryFilter(ctx context.Context, id uuid.UUID, filter string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles SET history_filter_default = $1 WHERE id = $2
	`, filter, id)
	return mapError(err)
}

// --- Sign-in nonces ---

func (r *ProfileRepo) CreateSigninNonce(ctx context.Context, walletAddress *string, ttl time.Duration) (*models.SigninNonce, error) {
	n := &models.SigninNonce{
		Nonce:         generateNonce(32),
		WalletAddress: walletAddress,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO signin_nonces (nonce, wallet_address, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		RETURNING id, created_at, expires_at
	`, n.Nonce, walletAddress, ttl.Seconds()).Scan(&n.ID, &n.CreatedAt, &n.ExpiresAt)
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

// ConsumeSigninNonce marks a nonce used exactly once; a second consume
// (replay) returns ErrNotFound.
func (r *ProfileRepo) ConsumeSigninNonce(ctx context.Context, nonce string) (*models.SigninNonce, error) {
	var n models.SigninNonce
	err := r.pool.QueryRow(ctx, `
		UPDATE signin_nonces
		SET used = true
		WHERE nonce = $1 AND used = false AND expires_at > now()
		RETURNING id, nonce, wallet_address, created_at, expires_at, used
	`, nonce).Scan(&n.ID, &n.Nonce, &n.WalletAddress, &n.CreatedAt, &n.ExpiresAt, &n.Used)
	if err != nil {
		return nil, mapError(err)
	}
	return &n, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
