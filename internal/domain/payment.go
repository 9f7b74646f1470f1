package domain

// Payment-related domain errors.
var (
	ErrPaymentNotFound       = &Error{Code: ENOTFOUND, Message: "Payment not found"}
	ErrSignatureMismatch     = &Error{Code: EPAYMENT, Message: "Payment could not be verified, please try again"}
	ErrPaymentAlreadyPaid    = &Error{Code: ECONFLICT, Message: "Order has already been paid"}
	ErrNotGatewayPayment     = &Error{Code: EINVALID, Message: "Order was not placed for online payment"}
	ErrOrderNotPayable       = &Error{Code: ECONFLICT, Message: "Order can no longer be paid"}
	ErrGatewayUnavailable    = &Error{Code: EINTERNAL, Message: "Payment gateway unavailable"}
	ErrMissingCallbackFields = &Error{Code: EINVALID, Message: "intent_id, payment_id and signature are required"}
)

// PaymentMethod is the buyer's payment choice at checkout.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "cod"
	PaymentMessage PaymentMethod = "message"
	PaymentGateway PaymentMethod = "gateway"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCOD, PaymentMessage, PaymentGateway:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PostCommitAction is what checkout does once the order is durable.
type PostCommitAction string

const (
	ActionNone         PostCommitAction = "none"
	ActionContactBuyer PostCommitAction = "contact_buyer"
	ActionCreateIntent PostCommitAction = "create_intent"
)

// PostCommitActionFor maps a payment method to its post-commit action.
func PostCommitActionFor(m PaymentMethod) PostCommitAction {
	switch m {
	case PaymentGateway:
		return ActionCreateIntent
	case PaymentMessage:
		return ActionContactBuyer
	default:
		return ActionNone
	}
}
