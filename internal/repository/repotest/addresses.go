package repotest

import (
	"context"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (q *Querier) savedAddress(id, userID pgtype.UUID) (repository.Address, bool) {
	a, ok := q.st().addresses[id.Bytes]
	if !ok || a.IsSnapshot || !a.UserID.Valid || a.UserID.Bytes != userID.Bytes {
		return repository.Address{}, false
	}
	return a, true
}

func (q *Querier) hasDefault(userID pgtype.UUID, except pgtype.UUID) bool {
	for _, a := range q.st().addresses {
		if a.IsDefault && !a.IsSnapshot && a.UserID.Valid && a.UserID.Bytes == userID.Bytes && a.ID.Bytes != except.Bytes {
			return true
		}
	}
	return false
}

func (q *Querier) GetAddress(ctx context.Context, id pgtype.UUID) (repository.Address, error) {
	unlock, err := q.guard("GetAddress")
	defer unlock()
	if err != nil {
		return repository.Address{}, err
	}
	a, ok := q.st().addresses[id.Bytes]
	if !ok {
		return repository.Address{}, errNoRows
	}
	return a, nil
}

func (q *Querier) GetSavedAddress(ctx context.Context, arg repository.GetSavedAddressParams) (repository.Address, error) {
	unlock, err := q.guard("GetSavedAddress")
	defer unlock()
	if err != nil {
		return repository.Address{}, err
	}
	a, ok := q.savedAddress(arg.ID, arg.UserID)
	if !ok {
		return repository.Address{}, errNoRows
	}
	return a, nil
}

func (q *Querier) CreateAddress(ctx context.Context, arg repository.CreateAddressParams) (repository.Address, error) {
	unlock, err := q.guard("CreateAddress")
	defer unlock()
	if err != nil {
		return repository.Address{}, err
	}
	if arg.IsDefault && !arg.IsSnapshot && q.hasDefault(arg.UserID, pgtype.UUID{}) {
		return repository.Address{}, uniqueViolation("idx_addresses_one_default")
	}
	a := repository.Address{
		ID:          newID(),
		UserID:      arg.UserID,
		FullName:    arg.FullName,
		Phone:       arg.Phone,
		Email:       arg.Email,
		AddressLine: arg.AddressLine,
		City:        arg.City,
		State:       arg.State,
		Pincode:     arg.Pincode,
		IsDefault:   arg.IsDefault,
		IsSnapshot:  arg.IsSnapshot,
		CreatedAt:   q.s.ts(),
	}
	a.UpdatedAt = a.CreatedAt
	q.st().addresses[a.ID.Bytes] = a
	return a, nil
}

func (q *Querier) UpdateSavedAddress(ctx context.Context, arg repository.UpdateSavedAddressParams) (repository.Address, error) {
	unlock, err := q.guard("UpdateSavedAddress")
	defer unlock()
	if err != nil {
		return repository.Address{}, err
	}
	a, ok := q.savedAddress(arg.ID, arg.UserID)
	if !ok {
		return repository.Address{}, errNoRows
	}
	a.FullName = arg.FullName
	a.Phone = arg.Phone
	a.Email = arg.Email
	a.AddressLine = arg.AddressLine
	a.City = arg.City
	a.State = arg.State
	a.Pincode = arg.Pincode
	a.UpdatedAt = q.s.ts()
	q.st().addresses[a.ID.Bytes] = a
	return a, nil
}

func (q *Querier) DeleteSavedAddress(ctx context.Context, arg repository.DeleteSavedAddressParams) (int64, error) {
	unlock, err := q.guard("DeleteSavedAddress")
	defer unlock()
	if err != nil {
		return 0, err
	}
	a, ok := q.savedAddress(arg.ID, arg.UserID)
	if !ok {
		return 0, nil
	}
	delete(q.st().addresses, a.ID.Bytes)
	return 1, nil
}

func (q *Querier) ListSavedAddresses(ctx context.Context, userID pgtype.UUID) ([]repository.Address, error) {
	unlock, err := q.guard("ListSavedAddresses")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []repository.Address
	for _, a := range q.st().addresses {
		if !a.IsSnapshot && a.UserID.Valid && a.UserID.Bytes == userID.Bytes {
			out = append(out, a)
		}
	}
	sortByCreated(out, func(a repository.Address) pgtype.Timestamptz { return a.CreatedAt })
	// default first, then newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	for i, a := range out {
		if a.IsDefault && i > 0 {
			copy(out[1:i+1], out[0:i])
			out[0] = a
			break
		}
	}
	return out, nil
}

func (q *Querier) ClearDefaultAddress(ctx context.Context, userID pgtype.UUID) error {
	unlock, err := q.guard("ClearDefaultAddress")
	defer unlock()
	if err != nil {
		return err
	}
	for id, a := range q.st().addresses {
		if a.IsDefault && !a.IsSnapshot && a.UserID.Valid && a.UserID.Bytes == userID.Bytes {
			a.IsDefault = false
			a.UpdatedAt = q.s.ts()
			q.st().addresses[id] = a
		}
	}
	return nil
}

func (q *Querier) SetDefaultAddress(ctx context.Context, arg repository.SetDefaultAddressParams) (int64, error) {
	unlock, err := q.guard("SetDefaultAddress")
	defer unlock()
	if err != nil {
		return 0, err
	}
	a, ok := q.savedAddress(arg.ID, arg.UserID)
	if !ok {
		return 0, nil
	}
	if q.hasDefault(arg.UserID, a.ID) {
		return 0, uniqueViolation("idx_addresses_one_default")
	}
	a.IsDefault = true
	a.UpdatedAt = q.s.ts()
	q.st().addresses[a.ID.Bytes] = a
	return 1, nil
}
