package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/service"
)

// CallbackVerifier checks the signed payment callback the gateway's client
// widget hands back to the buyer.
type CallbackVerifier interface {
	VerifyCallback(ctx context.Context, intentID, paymentID, signature string) (*service.VerifyResult, error)
}

// PaymentHandler handles POST /payments/verify
type PaymentHandler struct {
	payments CallbackVerifier
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments CallbackVerifier) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type verifyRequest struct {
	IntentID  string `json:"intent_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verify marks the payment paid when the signature matches. A mismatch is
// reported as 402 and the buyer may retry.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.payments.VerifyCallback(r.Context(), req.IntentID, req.PaymentID, req.Signature)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}
