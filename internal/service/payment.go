package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/quartz/internal/billing"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/pricing"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/telemetry"
)

// IntentResponse is what the browser checkout widget needs to collect an
// online payment.
type IntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	PublicKey    string `json:"public_key"`
	AmountMinor  int64  `json:"amount"`
	Currency     string `json:"currency"`
	CustomerName string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone"`
	OrderNumber  string `json:"order_number"`
	// Reused is set when an intent already stored for the order is returned
	// without calling the gateway.
	Reused bool `json:"reused"`
}

// VerifyResult is the outcome of a verified payment callback.
type VerifyResult struct {
	OrderNumber     string `json:"order_number"`
	PaymentStatus   string `json:"payment_status"`
	OrderStatus     string `json:"order_status"`
	AlreadyVerified bool   `json:"already_verified"`
}

// PaymentService creates gateway intents and settles payments from
// callbacks and webhooks. It never touches stock.
type PaymentService struct {
	store    repository.Store
	provider billing.Provider
	verifier *billing.CallbackVerifier
	currency string
	logger   *slog.Logger
}

func NewPaymentService(store repository.Store, provider billing.Provider, verifier *billing.CallbackVerifier, currency string, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		provider: provider,
		verifier: verifier,
		currency: currency,
		logger:   logger,
	}
}

// CreateIntent starts an online payment for a gateway order. A pending
// payment that already carries an intent gets it back without a second
// gateway call; a paid payment is a conflict.
func (s *PaymentService) CreateIntent(ctx context.Context, orderNumber string) (*IntentResponse, error) {
	const op = "payment.create_intent"

	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	payment, err := s.store.GetPaymentByOrder(ctx, order.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	addr, err := s.store.GetAddress(ctx, order.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order address: %w", err)
	}

	resp := &IntentResponse{
		PublicKey:    s.provider.PublicKey(),
		AmountMinor:  pricing.MinorUnits(order.Total),
		Currency:     s.currency,
		CustomerName: addr.FullName,
		Email:        addr.Email,
		Phone:        addr.Phone,
		OrderNumber:  order.OrderNumber,
	}

	if err := intentAllowed(order, payment); err != nil {
		return nil, err
	}
	if payment.IntentID.Valid {
		resp.IntentID = payment.IntentID.String
		resp.Reused = true
		recordIntent("reused")
		return resp, nil
	}

	// The gateway call happens outside any transaction. The idempotency key
	// makes concurrent requests for one order resolve to the same intent.
	intent, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountMinor:    resp.AmountMinor,
		Currency:       s.currency,
		CustomerName:   addr.FullName,
		CustomerEmail:  addr.Email,
		CustomerPhone:  addr.Phone,
		Description:    "Order " + order.OrderNumber,
		Metadata:       map[string]string{"order_number": order.OrderNumber},
		IdempotencyKey: "order-" + order.OrderNumber,
	})
	if err != nil {
		recordIntent("failed")
		return nil, domain.WrapError(fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err),
			domain.EINTERNAL, op, domain.ErrGatewayUnavailable.Message)
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		locked, err := q.LockPaymentByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to lock payment: %w", err)
		}
		current, err := q.LockOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if err := intentAllowed(current, locked); err != nil {
			return err
		}
		if locked.IntentID.Valid {
			resp.IntentID = locked.IntentID.String
			resp.Reused = true
			return nil
		}
		if _, err := q.SetPaymentIntent(ctx, repository.SetPaymentIntentParams{
			ID:       locked.ID,
			IntentID: intent.ID,
		}); err != nil {
			return fmt.Errorf("failed to store payment intent: %w", err)
		}
		resp.IntentID = intent.ID
		resp.ClientSecret = intent.ClientSecret
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Reused {
		recordIntent("reused")
	} else {
		recordIntent("created")
		s.logger.Info("payment intent created",
			"order_number", order.OrderNumber,
			"intent_id", resp.IntentID,
			"provider", s.provider.Name(),
		)
	}
	return resp, nil
}

func intentAllowed(o repository.Order, p repository.Payment) error {
	if p.Method != string(domain.PaymentGateway) {
		return domain.ErrNotGatewayPayment
	}
	if p.Status == string(domain.PaymentPaid) {
		return domain.ErrPaymentAlreadyPaid
	}
	if !domain.OrderStatus(o.Status).Payable() {
		return domain.Wrapf(domain.ErrOrderNotPayable, "payment.create_intent",
			"Order %s is %s and can no longer be paid", o.OrderNumber, o.Status)
	}
	return nil
}

// VerifyCallback settles a gateway payment from the browser callback.
// A valid signature marks the payment paid and confirms a placed order. An
// invalid one marks a pending payment failed, leaves the order placed and
// returns ErrSignatureMismatch so the buyer can retry. Replaying a verified
// callback succeeds with AlreadyVerified set and changes nothing. A valid
// callback for an order cancelled in the meantime leaves the payment
// unsettled, reports it for refund and returns ErrOrderNotPayable.
func (s *PaymentService) VerifyCallback(ctx context.Context, intentID, paymentID, signature string) (*VerifyResult, error) {
	const op = "payment.verify"

	if intentID == "" || paymentID == "" || signature == "" {
		return nil, domain.ErrMissingCallbackFields
	}
	valid := s.verifier.Verify(intentID, paymentID, signature)

	result := &VerifyResult{}
	mismatch := false
	unpayable := false
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		payment, err := q.LockPaymentByIntent(ctx, intentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}
		order, err := q.LockOrder(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		result.OrderNumber = order.OrderNumber
		result.PaymentStatus = payment.Status
		result.OrderStatus = order.Status

		if payment.Status == string(domain.PaymentPaid) {
			if !valid {
				mismatch = true
				return nil
			}
			result.AlreadyVerified = true
			return nil
		}

		if !valid {
			mismatch = true
			if _, err := q.MarkPaymentFailed(ctx, payment.ID); err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			result.PaymentStatus = string(domain.PaymentFailed)
			return nil
		}

		if !domain.OrderStatus(order.Status).Payable() {
			unpayable = true
			return nil
		}

		paid, err := q.MarkPaymentPaid(ctx, repository.MarkPaymentPaidParams{
			ID:                payment.ID,
			ExternalPaymentID: pgText(paymentID),
			Signature:         pgText(signature),
		})
		if err != nil {
			return fmt.Errorf("failed to mark payment paid: %w", err)
		}
		n, err := q.ConfirmPlacedOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}
		result.PaymentStatus = paid.Status
		if n > 0 {
			result.OrderStatus = string(domain.OrderConfirmed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case unpayable:
		recordCallback("order_not_payable")
		s.reportUnpayable(result.OrderNumber, result.OrderStatus, intentID, paymentID)
		return nil, domain.Wrapf(domain.ErrOrderNotPayable, op,
			"Order %s is %s and can no longer be paid", result.OrderNumber, result.OrderStatus)
	case mismatch:
		recordCallback("mismatch")
		s.logger.Warn("payment signature mismatch",
			"order_number", result.OrderNumber,
			"intent_id", intentID,
		)
		return nil, domain.Wrapf(domain.ErrSignatureMismatch, op, "%s", domain.ErrSignatureMismatch.Message)
	case result.AlreadyVerified:
		recordCallback("already_verified")
	default:
		recordCallback("paid")
		s.logger.Info("payment verified",
			"order_number", result.OrderNumber,
			"intent_id", intentID,
		)
	}
	return result, nil
}

// ApplyGatewayEvent applies an authenticated webhook to the payment it names.
// Unknown intents and already-settled payments are acknowledged and ignored
// so the gateway stops redelivering.
func (s *PaymentService) ApplyGatewayEvent(ctx context.Context, ev *billing.WebhookEvent) error {
	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(ev.RawType).Inc()
	}
	if ev.Type == billing.EventIgnored || ev.IntentID == "" {
		return nil
	}

	return s.store.ExecTx(ctx, func(q repository.Querier) error {
		payment, err := q.LockPaymentByIntent(ctx, ev.IntentID)
		if err != nil {
			if repository.IsNotFound(err) {
				s.logger.Warn("webhook for unknown payment intent",
					"intent_id", ev.IntentID,
					"event_id", ev.ID,
				)
				return nil
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}
		if payment.Status == string(domain.PaymentPaid) {
			return nil
		}

		switch ev.Type {
		case billing.EventPaymentSucceeded:
			order, err := q.LockOrder(ctx, payment.OrderID)
			if err != nil {
				return fmt.Errorf("failed to lock order: %w", err)
			}
			if !domain.OrderStatus(order.Status).Payable() {
				s.reportUnpayable(order.OrderNumber, order.Status, ev.IntentID, ev.PaymentID)
				return nil
			}
			if _, err := q.MarkPaymentPaid(ctx, repository.MarkPaymentPaidParams{
				ID:                payment.ID,
				ExternalPaymentID: pgText(ev.PaymentID),
			}); err != nil {
				return fmt.Errorf("failed to mark payment paid: %w", err)
			}
			if _, err := q.ConfirmPlacedOrder(ctx, payment.OrderID); err != nil {
				return fmt.Errorf("failed to confirm order: %w", err)
			}
			s.logger.Info("payment settled by webhook", "intent_id", ev.IntentID, "event_id", ev.ID)
		case billing.EventPaymentFailed:
			if _, err := q.MarkPaymentFailed(ctx, payment.ID); err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			s.logger.Info("payment failed by webhook", "intent_id", ev.IntentID, "event_id", ev.ID)
		}
		return nil
	})
}

// reportUnpayable flags money captured for an order that can no longer be
// fulfilled. Staff refund it from the gateway dashboard.
func (s *PaymentService) reportUnpayable(orderNumber, status, intentID, paymentID string) {
	s.logger.Error("payment captured for unpayable order",
		"order_number", orderNumber,
		"order_status", status,
		"intent_id", intentID,
		"payment_id", paymentID,
	)
	telemetry.CaptureError(
		fmt.Errorf("payment %s captured for %s order %s", paymentID, status, orderNumber),
		map[string]interface{}{"order_number": orderNumber, "intent_id": intentID},
	)
}

func recordIntent(outcome string) {
	if telemetry.Business != nil {
		telemetry.Business.PaymentIntents.WithLabelValues(outcome).Inc()
	}
}

func recordCallback(result string) {
	if telemetry.Business != nil {
		telemetry.Business.PaymentCallback.WithLabelValues(result).Inc()
	}
}
