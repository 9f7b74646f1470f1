package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addressID = "1e0c7a52-3b9d-4f61-a8e2-5c4b7d9f0a13"

func TestAddressHandler_List(t *testing.T) {
	book := &mockAddressBook{
		listFunc: func(ctx context.Context, userID uuid.UUID) ([]service.Address, error) {
			assert.Equal(t, signedInBuyer().UserID, userID)
			return []service.Address{{ID: uuid.MustParse(addressID), City: "Bengaluru", IsDefault: true}}, nil
		},
	}
	h := NewAddressHandler(book)

	rr := httptest.NewRecorder()
	h.List(rr, newRequest(http.MethodGet, "/account/addresses", "", signedInBuyer()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"is_default":true`)
}

func TestAddressHandler_Create(t *testing.T) {
	var gotFields address.Fields
	var gotDefault bool
	book := &mockAddressBook{
		createFunc: func(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*service.Address, error) {
			gotFields, gotDefault = fields, makeDefault
			return &service.Address{ID: uuid.MustParse(addressID), City: fields.City, IsDefault: makeDefault}, nil
		},
	}
	h := NewAddressHandler(book)

	body := `{"full_name":"Asha Rao","phone":"+91 98765 43210","address_line":"12 MG Road","city":"Bengaluru","state":"Karnataka","pincode":"560001","is_default":true}`
	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/account/addresses", body, signedInBuyer()))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Asha Rao", gotFields.FullName)
	assert.Equal(t, "560001", gotFields.Pincode)
	assert.True(t, gotDefault)
}

func TestAddressHandler_Create_ValidationError(t *testing.T) {
	book := &mockAddressBook{
		createFunc: func(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*service.Address, error) {
			return nil, domain.NewValidationError("address.create", "phone", "must be a valid phone number")
		},
	}
	h := NewAddressHandler(book)

	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/account/addresses", `{"phone":"call me"}`, signedInBuyer()))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, _, fields := decodeError(t, rr)
	assert.Equal(t, "must be a valid phone number", fields["phone"])
}

func TestAddressHandler_UpdateDeleteSetDefault(t *testing.T) {
	var calls []string
	book := &mockAddressBook{
		updateFunc: func(ctx context.Context, userID, id uuid.UUID, fields address.Fields) (*service.Address, error) {
			calls = append(calls, "update:"+id.String())
			return &service.Address{ID: id, City: fields.City}, nil
		},
		deleteFunc: func(ctx context.Context, userID, id uuid.UUID) error {
			calls = append(calls, "delete:"+id.String())
			return nil
		},
		setDefaultFunc: func(ctx context.Context, userID, id uuid.UUID) error {
			calls = append(calls, "default:"+id.String())
			return domain.ErrAddressNotFound
		},
	}
	h := NewAddressHandler(book)

	req := newRequest(http.MethodPut, "/account/addresses/"+addressID, `{"city":"Mysuru"}`, signedInBuyer())
	req.SetPathValue("id", addressID)
	rr := httptest.NewRecorder()
	h.Update(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Mysuru")

	req = newRequest(http.MethodDelete, "/account/addresses/"+addressID, "", signedInBuyer())
	req.SetPathValue("id", addressID)
	rr = httptest.NewRecorder()
	h.Delete(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = newRequest(http.MethodPost, "/account/addresses/"+addressID+"/default", "", signedInBuyer())
	req.SetPathValue("id", addressID)
	rr = httptest.NewRecorder()
	h.SetDefault(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, []string{"update:" + addressID, "delete:" + addressID, "default:" + addressID}, calls)
}

func TestAddressHandler_MalformedID(t *testing.T) {
	h := NewAddressHandler(&mockAddressBook{})

	req := newRequest(http.MethodDelete, "/account/addresses/nope", "", signedInBuyer())
	req.SetPathValue("id", "nope")
	rr := httptest.NewRecorder()
	h.Delete(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
