package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to file metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new file repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts metadata for a new file. A storage key collision is
// reported as ErrDuplicateKey so the caller can retry with a fresh key.
func (r *Repository) Create(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO files (original_name, storage_key, owner, password)
VALUES ($1, $2, $3, $4)
RETURNING id, original_name, storage_key, owner, password, created_at;`

	row := r.pool.QueryRow(ctx, query, rec.OriginalName, rec.StorageKey, rec.Owner, rec.Password)

	var stored Record
	if err := row.Scan(&stored.ID, &stored.OriginalName, &stored.StorageKey, &stored.Owner, &stored.Password, &stored.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateKey
		}
		return Record{}, fmt.Errorf("create file metadata: %w", err)
	}
	return stored, nil
}

// FindByStorageKey fetches a record by its public handle.
func (r *Repository) FindByStorageKey(ctx context.Context, key string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, original_name, storage_key, owner, password, created_at
FROM files
WHERE storage_key = $1;`

	var rec Record
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&rec.ID,
		&rec.OriginalName,
		&rec.StorageKey,
		&rec.Owner,
		&rec.Password,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find file metadata: %w", err)
	}
	return rec, nil
}

// ListByOwner returns the owner's records in insertion order.
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, original_name, storage_key, owner, password, created_at
FROM files
WHERE owner = $1
ORDER BY id ASC;`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OriginalName, &rec.StorageKey, &rec.Owner, &rec.Password, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return records, nil
}

// SetPassword updates the password gate on a record the owner holds.
func (r *Repository) SetPassword(ctx context.Context, key, owner, password string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE files
SET password = $1
WHERE storage_key = $2 AND owner = $3;`

	tag, err := r.pool.Exec(ctx, query, password, key, owner)
	if err != nil {
		return fmt.Errorf("set file password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// Delete removes a record the owner holds and returns it.
func (r *Repository) Delete(ctx context.Context, key, owner string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM files
WHERE storage_key = $1 AND owner = $2
RETURNING id, original_name, storage_key, owner, password, created_at;`

	var rec Record
	err := r.pool.QueryRow(ctx, query, key, owner).Scan(
		&rec.ID,
		&rec.OriginalName,
		&rec.StorageKey,
		&rec.Owner,
		&rec.Password,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFoundOrForbidden
		}
		return Record{}, fmt.Errorf("delete file metadata: %w", err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
