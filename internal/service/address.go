package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/google/uuid"
)

// Address is a saved or snapshot address as shown to the buyer.
type Address struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	IsDefault   bool      `json:"is_default"`
}

func addressOf(a repository.Address) Address {
	return Address{
		ID:          fromPgUUID(a.ID),
		FullName:    a.FullName,
		Phone:       a.Phone,
		Email:       a.Email,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		IsDefault:   a.IsDefault && !a.IsSnapshot,
	}
}

// snapshotSaved copies one of the user's saved addresses into a new
// snapshot row, so later edits to the saved address never reach the order.
func snapshotSaved(ctx context.Context, q repository.Querier, userID, savedID uuid.UUID) (repository.Address, error) {
	saved, err := q.GetSavedAddress(ctx, repository.GetSavedAddressParams{
		ID:     toPgUUID(savedID),
		UserID: toPgUUID(userID),
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return repository.Address{}, domain.ErrAddressNotFound
		}
		return repository.Address{}, fmt.Errorf("failed to get saved address: %w", err)
	}
	return snapshotFields(ctx, q, userID, address.Fields{
		FullName:    saved.FullName,
		Phone:       saved.Phone,
		Email:       saved.Email,
		AddressLine: saved.AddressLine,
		City:        saved.City,
		State:       saved.State,
		Pincode:     saved.Pincode,
	})
}

func snapshotFields(ctx context.Context, q repository.Querier, userID uuid.UUID, f address.Fields) (repository.Address, error) {
	snap, err := q.CreateAddress(ctx, repository.CreateAddressParams{
		UserID:      toPgUUID(userID),
		FullName:    f.FullName,
		Phone:       f.Phone,
		Email:       f.Email,
		AddressLine: f.AddressLine,
		City:        f.City,
		State:       f.State,
		Pincode:     f.Pincode,
		IsSnapshot:  true,
	})
	if err != nil {
		return repository.Address{}, fmt.Errorf("failed to snapshot address: %w", err)
	}
	return snap, nil
}

// AddressService manages a signed-in user's address book. Snapshot rows
// belong to orders and are never listed or changed here.
type AddressService struct {
	store     repository.Store
	validator address.Validator
	logger    *slog.Logger
}

func NewAddressService(store repository.Store, validator address.Validator, logger *slog.Logger) *AddressService {
	return &AddressService{store: store, validator: validator, logger: logger}
}

func requireUser(op string, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domain.Unauthorized(op, "Sign in to manage your addresses")
	}
	return nil
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	if err := requireUser("address.list", userID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListSavedAddresses(ctx, toPgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	out := make([]Address, len(rows))
	for i, r := range rows {
		out[i] = addressOf(r)
	}
	return out, nil
}

// Create saves a new address. The user's first address becomes the default,
// as does any address created with makeDefault.
func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*Address, error) {
	if err := requireUser("address.create", userID); err != nil {
		return nil, err
	}
	fields, err := s.validator.Validate(ctx, fields)
	if err != nil {
		return nil, err
	}

	// Two first addresses created at once both try to become the default;
	// the loser of idx_addresses_one_default retries and sees the winner.
	created, err := s.insertAddress(ctx, userID, fields, makeDefault)
	if repository.IsUniqueViolation(err) {
		s.logger.Info("default address race, retrying", "user_id", userID)
		created, err = s.insertAddress(ctx, userID, fields, makeDefault)
	}
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.Conflict("address.create", "Your address book changed, please try again")
		}
		return nil, err
	}
	a := addressOf(created)
	return &a, nil
}

func (s *AddressService) insertAddress(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (repository.Address, error) {
	var created repository.Address
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		existing, err := q.ListSavedAddresses(ctx, toPgUUID(userID))
		if err != nil {
			return fmt.Errorf("failed to list addresses: %w", err)
		}
		isDefault := makeDefault || len(existing) == 0
		if isDefault {
			if err := q.ClearDefaultAddress(ctx, toPgUUID(userID)); err != nil {
				return fmt.Errorf("failed to clear default address: %w", err)
			}
		}
		created, err = q.CreateAddress(ctx, repository.CreateAddressParams{
			UserID:      toPgUUID(userID),
			FullName:    fields.FullName,
			Phone:       fields.Phone,
			Email:       fields.Email,
			AddressLine: fields.AddressLine,
			City:        fields.City,
			State:       fields.State,
			Pincode:     fields.Pincode,
			IsDefault:   isDefault,
		})
		if err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
	return created, err
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, fields address.Fields) (*Address, error) {
	if err := requireUser("address.update", userID); err != nil {
		return nil, err
	}
	fields, err := s.validator.Validate(ctx, fields)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateSavedAddress(ctx, repository.UpdateSavedAddressParams{
		ID:          toPgUUID(id),
		UserID:      toPgUUID(userID),
		FullName:    fields.FullName,
		Phone:       fields.Phone,
		Email:       fields.Email,
		AddressLine: fields.AddressLine,
		City:        fields.City,
		State:       fields.State,
		Pincode:     fields.Pincode,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	a := addressOf(updated)
	return &a, nil
}

// Delete removes a saved address. Orders keep their own snapshot, so past
// orders are unaffected.
func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireUser("address.delete", userID); err != nil {
		return err
	}
	n, err := s.store.DeleteSavedAddress(ctx, repository.DeleteSavedAddressParams{
		ID:     toPgUUID(id),
		UserID: toPgUUID(userID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if n == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}

// SetDefault makes id the user's only default address.
func (s *AddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireUser("address.set_default", userID); err != nil {
		return err
	}
	return s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.ClearDefaultAddress(ctx, toPgUUID(userID)); err != nil {
			return fmt.Errorf("failed to clear default address: %w", err)
		}
		n, err := q.SetDefaultAddress(ctx, repository.SetDefaultAddressParams{
			ID:     toPgUUID(id),
			UserID: toPgUUID(userID),
		})
		if err != nil {
			return fmt.Errorf("failed to set default address: %w", err)
		}
		if n == 0 {
			return domain.ErrAddressNotFound
		}
		return nil
	})
}
