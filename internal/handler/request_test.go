package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Quantity int `json:"quantity"`
	}

	tests := []struct {
		name     string
		body     string
		wantCode string
		want     int
	}{
		{"valid", `{"quantity":3}`, "", 3},
		{"empty body", ``, domain.EINVALID, 0},
		{"malformed", `{"quantity":`, domain.EINVALID, 0},
		{"unknown field", `{"qty":3}`, domain.EINVALID, 0},
		{"trailing object", `{"quantity":1}{"quantity":2}`, domain.EINVALID, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := DecodeJSON(req, &got)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Quantity)
				return
			}
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":12345678}`))
	req.Body = http.MaxBytesReader(rr, req.Body, 8)

	var got struct {
		Quantity int `json:"quantity"`
	}
	err := DecodeJSON(req, &got)
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(err))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?limit=5&offset=-1&page=x", nil)

	n, err := QueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = QueryInt(req, "missing", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	_, err = QueryInt(req, "offset", 0)
	assert.True(t, domain.IsValidationError(err))
	_, err = QueryInt(req, "page", 0)
	assert.Equal(t, "must be a non-negative integer", domain.GetValidationFields(err)["page"])
}
