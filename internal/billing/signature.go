package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CallbackVerifier authenticates the browser callback a gateway checkout
// widget posts after the buyer pays. The signature is the hex-encoded
// HMAC-SHA256 of "intent_id|payment_id" under a shared secret.
type CallbackVerifier struct {
	secret []byte
}

func NewCallbackVerifier(secret string) *CallbackVerifier {
	return &CallbackVerifier{secret: []byte(secret)}
}

// Sign returns the expected signature for an intent and payment id.
func (v *CallbackVerifier) Sign(intentID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches, in constant time.
func (v *CallbackVerifier) Verify(intentID, paymentID, signature string) bool {
	expected := v.Sign(intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
