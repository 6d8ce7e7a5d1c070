package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splitpay/backend/internal/models"
)

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

const requestColumns = `
	r.id, r.requester_id, r.type, r.payer_wallet_address, r.token_address, r.chain_id,
	r.amount, r.memo, r.status, r.tx_hash, r.expires_at, r.paid_at, r.created_at, r.updated_at`

func scanRequest(row interface{ Scan(...any) error }, d *models.RequestWithRequester) error {
	return row.Scan(
		&d.ID, &d.RequesterID, &d.Type, &d.PayerWalletAddress, &d.TokenAddress, &d.ChainID,
		&d.Amount, &d.Memo, &d.Status, &d.TxHash, &d.ExpiresAt, &d.PaidAt, &d.CreatedAt, &d.UpdatedAt,
		&d.RequesterWalletAddress,
	)
}

// Create inserts a pending request. Status defaults in the schema.
func (r *RequestRepo) Create(ctx context.Context, req *models.PaymentRequest) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_requests (requester_id, type, payer_wallet_address, token_address, chain_id, amount, memo, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at, updated_at
	`, req.RequesterID, req.Type, req.PayerWalletAddress, req.TokenAddress, req.ChainID, req.Amount, req.Memo, req.ExpiresAt,
	).Scan(&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	return mapError(err)
}

// CreateTransfer inserts a direct-transfer record already in the paid state,
// with tx_hash and paid_at set at insert time. Pure history entry.
func (r *RequestRepo) CreateTransfer(ctx context.Context, req *models.PaymentRequest, txHash string) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_requests (requester_id, type, payer_wallet_address, token_address, chain_id, amount, memo, status, tx_hash, paid_at)
		VALUES ($1, 'transfer', $2, $3, $4, $5, $6, 'paid', $7, now())
		RETURNING id, type, status, tx_hash, paid_at, created_at, updated_at
	`, req.RequesterID, req.PayerWalletAddress, req.TokenAddress, req.ChainID, req.Amount, req.Memo, txHash,
	).Scan(&req.ID, &req.Type, &req.Status, &req.TxHash, &req.PaidAt, &req.CreatedAt, &req.UpdatedAt)
	return mapError(err)
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RequestWithRequester, error) {
	var d models.RequestWithRequester
	err := scanRequest(r.pool.QueryRow(ctx, `
		SELECT`+requestColumns+`, p.wallet_address
		FROM payment_requests r
		JOIN profiles p ON p.id = r.requester_id
		WHERE r.id = $1
	`, id), &d)
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// ListIncoming returns requests where the given lowercase wallet is the
// payer, newest first, requester wallet joined in.
func (r *RequestRepo) ListIncoming(ctx context.Context, payerWallet string, limit int) ([]models.RequestWithRequester, error) {
	return r.list(ctx, `r.payer_wallet_address = $1`, payerWallet, limit)
}

// ListSent returns requests created by the given profile, newest first.
func (r *RequestRepo) ListSent(ctx context.Context, requesterID uuid.UUID, limit int) ([]models.RequestWithRequester, error) {
	return r.list(ctx, `r.requester_id = $1`, requesterID, limit)
}

func (r *RequestRepo) list(ctx context.Context, where string, arg any, limit int) ([]models.RequestWithRequester, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT%s, p.wallet_address
		FROM payment_requests r
		JOIN profiles p ON p.id = r.requester_id
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT $2
	`, requestColumns, where)

	rows, err := r.pool.Query(ctx, query, arg, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.RequestWithRequester
	for rows.Next() {
		var d models.RequestWithRequester
		if err := scanRequest(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// UpdateStatus performs a guarded transition in one statement: the row is
// only touched when the transition is legal for its current status, so a
// stale caller cannot revert a terminal state. Returns ErrNotFound when no
// row changed. On paid, tx_hash and paid_at are set together.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, txHash *string) error {
	var tag pgconn.CommandTag
	var err error
	if toStatus == models.RequestStatusPaid {
		tag, err = r.pool.Exec(ctx, `
			UPDATE payment_requests
			SET status = $1, tx_hash = $2, paid_at = now(), updated_at = now()
			WHERE id = $3 AND status = $4
		`, toStatus, txHash, id, fromStatus)
	} else {
		tag, err = r.pool.Exec(ctx, `
			UPDATE payment_requests
			SET status = $1, updated_at = now()
			WHERE id = $2 AND status = $3
		`, toStatus, id, fromStatus)
	}
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpired returns pending requests whose expires_at has passed, with
// the requester wallet joined so caches for both parties can be dropped.
// Consumed by the expiry worker.
func (r *RequestRepo) ListExpired(ctx context.Context, limit int) ([]models.RequestWithRequester, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+requestColumns+`, p.wallet_address
		FROM payment_requests r
		JOIN profiles p ON p.id = r.requester_id
		WHERE r.status = 'pending' AND r.expires_at IS NOT NULL AND r.expires_at < now()
		ORDER BY r.expires_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.RequestWithRequester
	for rows.Next() {
		var d models.RequestWithRequester
		if err := scanRequest(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
