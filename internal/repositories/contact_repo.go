package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splitpay/backend/internal/models"
)

type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

// Create inserts a contact. The (owner_id, contact_wallet_address) unique
// constraint surfaces as ErrDuplicate, never silently ignored here.
func (r *ContactRepo) Create(ctx context.Context, c *models.Contact) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (owner_id, contact_wallet_address, label, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, c.OwnerID, c.ContactWalletAddress, c.Label, c.Note).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

func (r *ContactRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, contact_wallet_address, label, note, created_at, updated_at
		FROM contacts WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.ContactWalletAddress, &c.Label, &c.Note, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var c models.Contact
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, contact_wallet_address, label, note, created_at, updated_at
		FROM contacts WHERE id = $1
	`, id).Scan(&c.ID, &c.OwnerID, &c.ContactWalletAddress, &c.Label, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *ContactRepo) Update(ctx context.Context, id uuid.UUID, label string, note *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contacts SET label = $1, note = $2, updated_at = now() WHERE id = $3
	`, label, note, id)
	return mapError(err)
}

// Delete removes by id only; row ownership is checked by the service layer.
func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return mapError(err)
}

// ExistsForOwner reports whether the owner already has a contact for the
// given lowercase address. Used for opportunistic saves.
func (r *ContactRepo) ExistsForOwner(ctx context.Context, ownerID uuid.UUID, walletAddress string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM contacts WHERE owner_id = $1 AND contact_wallet_address = $2)
	`, ownerID, walletAddress).Scan(&exists)
	return exists, mapError(err)
}

// ListAddressesByOwner returns the owner's contact addresses as a set,
// used when applying the contacts/external history filter.
func (r *ContactRepo) ListAddressesByOwner(ctx context.Context, ownerID uuid.UUID) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT contact_wallet_address FROM contacts WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	addrs := make(map[string]bool)
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		addrs[a] = true
	}
	return addrs, nil
}
