package address

import (
	"context"
	"testing"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() Fields {
	return Fields{
		FullName:    "Asha Rao",
		Phone:       "+91 98450 12345",
		Email:       "asha@example.com",
		AddressLine: "12 MG Road",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560001",
	}
}

func TestBasicValidator_Valid(t *testing.T) {
	v := NewBasicValidator()

	in := validFields()
	in.City = "  Bengaluru "
	got, err := v.Validate(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", got.City)
}

func TestBasicValidator_EmailOptional(t *testing.T) {
	in := validFields()
	in.Email = ""

	_, err := NewBasicValidator().Validate(context.Background(), in)
	assert.NoError(t, err)
}

func TestBasicValidator_FieldErrors(t *testing.T) {
	in := validFields()
	in.FullName = "   "
	in.Pincode = ""
	in.Email = "not-an-email"
	in.Phone = "call me"

	_, err := NewBasicValidator().Validate(context.Background(), in)

	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	fields := domain.GetValidationFields(err)
	assert.Equal(t, "is required", fields["full_name"])
	assert.Equal(t, "is required", fields["pincode"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be a valid phone number", fields["phone"])
	assert.NotContains(t, fields, "city")
}

func TestMockValidator_Default(t *testing.T) {
	m := &MockValidator{}
	in := validFields()
	got, err := m.Validate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
