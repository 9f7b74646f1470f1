package notify

import (
	"context"

	"github.com/dukerupert/quartz/internal/email"
	"github.com/dukerupert/quartz/internal/jobs"
)

// Payment notes shown in the confirmation email.
var paymentNotes = map[string]string{
	"cod":     "Please keep the amount ready; you will pay when your order is delivered.",
	"message": "We will contact you shortly to arrange payment.",
	"gateway": "Your order will be confirmed as soon as your online payment is verified.",
}

// OrderEmailNotifier emails the buyer an order confirmation.
type OrderEmailNotifier struct {
	emails *email.Service
}

func NewOrderEmailNotifier(emails *email.Service) *OrderEmailNotifier {
	return &OrderEmailNotifier{emails: emails}
}

func (n *OrderEmailNotifier) Name() string { return "order_email" }

func (n *OrderEmailNotifier) Notify(ctx context.Context, order jobs.OrderPlacedPayload) error {
	if order.Email == "" {
		return ErrSkipped
	}
	_, err := n.emails.SendOrderConfirmation(ctx, email.OrderConfirmationEmail{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		Email:         order.Email,
		PlacedAt:      order.PlacedAt,
		PaymentMethod: order.PaymentMethod,
		PaymentNote:   paymentNotes[order.PaymentMethod],
		Items:         emailItems(order.Items),
		Subtotal:      order.Subtotal.StringFixed(2),
		Shipping:      order.Shipping.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		FreeShipping:  order.Shipping.IsZero(),
		ShippingAddr:  emailAddress(order.ShippingAddr),
	})
	return err
}

// StaffAlertNotifier tells the store inbox to contact buyers who chose to
// arrange payment by message.
type StaffAlertNotifier struct {
	emails *email.Service
	inbox  string
}

func NewStaffAlertNotifier(emails *email.Service, inbox string) *StaffAlertNotifier {
	return &StaffAlertNotifier{emails: emails, inbox: inbox}
}

func (n *StaffAlertNotifier) Name() string { return "staff_alert" }

func (n *StaffAlertNotifier) Notify(ctx context.Context, order jobs.OrderPlacedPayload) error {
	if order.PaymentMethod != "message" || n.inbox == "" {
		return ErrSkipped
	}
	_, err := n.emails.SendStaffAlert(ctx, n.inbox, email.StaffAlertEmail{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		Email:         order.Email,
		Phone:         order.Phone,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total.StringFixed(2),
		Items:         emailItems(order.Items),
		ShippingAddr:  emailAddress(order.ShippingAddr),
	})
	return err
}

func emailItems(items []jobs.OrderItemData) []email.OrderItem {
	out := make([]email.OrderItem, len(items))
	for i, it := range items {
		out[i] = email.OrderItem{
			ProductName: it.ProductName,
			Variant:     it.Variant,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			LineTotal:   it.LineTotal.StringFixed(2),
		}
	}
	return out
}

func emailAddress(a jobs.AddressData) email.Address {
	return email.Address{
		Name:        a.FullName,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
	}
}
