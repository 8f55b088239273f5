// internal/services/payment_service.go
package services

import (
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/config"
)

// PaymentService wraps Stripe for vendor card sales. Cash sales never
// touch it.
type PaymentService struct {
	config *config.Config
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

func NewPaymentService(config *config.Config) *PaymentService {
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{config: config}
}

// CreateSalePaymentIntent opens a card payment for one vendor sale.
// Amounts are dollars; Stripe wants cents.
func (s *PaymentService) CreateSalePaymentIntent(vendorID, itemID uuid.UUID, amount float64) (*PaymentIntentResponse, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("sale amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount * 100)),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("vendor_id", vendorID.String())
	params.AddMetadata("inventory_item_id", itemID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, apperrors.External("failed to create payment intent", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// VerifyPaymentSucceeded confirms a PaymentIntent finished before a
// sale record is written against it.
func (s *PaymentService) VerifyPaymentSucceeded(paymentIntentID string) error {
	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return apperrors.External("failed to fetch payment intent", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return apperrors.Newf(apperrors.KindConflict,
			"payment is not complete (status %s)", pi.Status)
	}
	return nil
}

// RefundSalePayment reverses a card payment after a voided sale.
func (s *PaymentService) RefundSalePayment(paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String("requested_by_customer"),
	}

	if _, err := refund.New(params); err != nil {
		return apperrors.External("failed to process refund", err)
	}
	return nil
}
