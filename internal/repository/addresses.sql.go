package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const addressColumns = `id, user_id, full_name, phone, email, address_line, city, state, pincode,
    is_default, is_snapshot, created_at, updated_at`

func scanAddress(row pgx.Row) (Address, error) {
	var i Address
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.FullName,
		&i.Phone,
		&i.Email,
		&i.AddressLine,
		&i.City,
		&i.State,
		&i.Pincode,
		&i.IsDefault,
		&i.IsSnapshot,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectAddresses(rows pgx.Rows, err error) ([]Address, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Address
	for rows.Next() {
		i, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAddress = `SELECT ` + addressColumns + `
FROM addresses
WHERE id = $1`

func (q *Queries) GetAddress(ctx context.Context, id pgtype.UUID) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, getAddress, id))
}

const getSavedAddress = `SELECT ` + addressColumns + `
FROM addresses
WHERE id = $1 AND user_id = $2 AND is_snapshot = FALSE`

type GetSavedAddressParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

func (q *Queries) GetSavedAddress(ctx context.Context, arg GetSavedAddressParams) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, getSavedAddress, arg.ID, arg.UserID))
}

const createAddress = `
INSERT INTO addresses (
    user_id, full_name, phone, email, address_line, city, state, pincode, is_default, is_snapshot
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + addressColumns

type CreateAddressParams struct {
	UserID      pgtype.UUID
	FullName    string
	Phone       string
	Email       string
	AddressLine string
	City        string
	State       string
	Pincode     string
	IsDefault   bool
	IsSnapshot  bool
}

func (q *Queries) CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, createAddress,
		arg.UserID,
		arg.FullName,
		arg.Phone,
		arg.Email,
		arg.AddressLine,
		arg.City,
		arg.State,
		arg.Pincode,
		arg.IsDefault,
		arg.IsSnapshot,
	))
}

const updateSavedAddress = `
UPDATE addresses
SET full_name = $3, phone = $4, email = $5, address_line = $6,
    city = $7, state = $8, pincode = $9, updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND is_snapshot = FALSE
RETURNING ` + addressColumns

type UpdateSavedAddressParams struct {
	ID          pgtype.UUID
	UserID      pgtype.UUID
	FullName    string
	Phone       string
	Email       string
	AddressLine string
	City        string
	State       string
	Pincode     string
}

func (q *Queries) UpdateSavedAddress(ctx context.Context, arg UpdateSavedAddressParams) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, updateSavedAddress,
		arg.ID,
		arg.UserID,
		arg.FullName,
		arg.Phone,
		arg.Email,
		arg.AddressLine,
		arg.City,
		arg.State,
		arg.Pincode,
	))
}

const deleteSavedAddress = `
DELETE FROM addresses
WHERE id = $1 AND user_id = $2 AND is_snapshot = FALSE`

type DeleteSavedAddressParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

func (q *Queries) DeleteSavedAddress(ctx context.Context, arg DeleteSavedAddressParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSavedAddress, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listSavedAddresses = `SELECT ` + addressColumns + `
FROM addresses
WHERE user_id = $1 AND is_snapshot = FALSE
ORDER BY is_default DESC, created_at DESC`

func (q *Queries) ListSavedAddresses(ctx context.Context, userID pgtype.UUID) ([]Address, error) {
	return collectAddresses(q.db.Query(ctx, listSavedAddresses, userID))
}

const clearDefaultAddress = `
UPDATE addresses
SET is_default = FALSE, updated_at = NOW()
WHERE user_id = $1 AND is_default = TRUE AND is_snapshot = FALSE`

func (q *Queries) ClearDefaultAddress(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearDefaultAddress, userID)
	return err
}

const setDefaultAddress = `
UPDATE addresses
SET is_default = TRUE, updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND is_snapshot = FALSE`

type SetDefaultAddressParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

func (q *Queries) SetDefaultAddress(ctx context.Context, arg SetDefaultAddressParams) (int64, error) {
	tag, err := q.db.Exec(ctx, setDefaultAddress, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
