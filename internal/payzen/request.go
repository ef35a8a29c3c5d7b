package payzen

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/example/payzen/internal/models"
)

// Form actions understood by Charge/CreatePayment.
const (
	FormActionPayment     = "PAYMENT"
	FormActionRegisterPay = "ASK_REGISTER_PAY"
)

const contribLabel = "payzen-server 1.0"

// CreatePaymentRequest is the Charge/CreatePayment input payload.
// Unconfigured card options are omitted entirely; the gateway must not see
// empty-string or zero sentinels for "not configured".
type CreatePaymentRequest struct {
	Amount               int64              `json:"amount"`
	Contrib              string             `json:"contrib,omitempty"`
	Currency             string             `json:"currency"`
	OrderID              string             `json:"orderId"`
	FormAction           string             `json:"formAction"`
	Customer             CustomerDetails    `json:"customer"`
	StrongAuthentication string             `json:"strongAuthentication"`
	IPNTargetURL         string             `json:"ipnTargetUrl"`
	TransactionOptions   TransactionOptions `json:"transactionOptions"`
	PaymentMethodToken   string             `json:"paymentMethodToken,omitempty"`
}

type CustomerDetails struct {
	Email     string `json:"email"`
	Reference string `json:"reference"`
}

type TransactionOptions struct {
	CardOptions CardOptions `json:"cardOptions"`
}

type CardOptions struct {
	CaptureDelay     *int    `json:"captureDelay,omitempty"`
	ManualValidation *string `json:"manualValidation,omitempty"`
	PaymentSource    *string `json:"paymentSource,omitempty"`
}

// BuilderOptions carries the merchant configuration the builder reads.
type BuilderOptions struct {
	OneClickEnabled      bool
	StrongAuthentication string
	CaptureDelay         *int
	ManualValidation     *string
	PaymentSource        *string
	// IPNTargetURL is the absolute callback URL the gateway notifies.
	IPNTargetURL string
}

// RequestBuilder assembles Charge/CreatePayment payloads from orders.
type RequestBuilder struct {
	opts   BuilderOptions
	tokens TokenStore
}

// NewRequestBuilder constructs a RequestBuilder.
func NewRequestBuilder(opts BuilderOptions, tokens TokenStore) *RequestBuilder {
	if opts.StrongAuthentication == "" {
		opts.StrongAuthentication = "AUTO"
	}
	return &RequestBuilder{opts: opts, tokens: tokens}
}

// Build maps an order onto a CreatePayment request. The order must be loaded
// with its customer and currency resolved; that is the caller's contract.
// The only error source is the token lookup.
func (b *RequestBuilder) Build(ctx context.Context, order *models.Order) (*CreatePaymentRequest, error) {
	formAction := FormActionPayment
	if b.opts.OneClickEnabled {
		formAction = FormActionRegisterPay
	}

	req := &CreatePaymentRequest{
		Amount:     toMinorUnits(order.TotalAmount),
		Contrib:    contribLabel,
		Currency:   strings.ToUpper(order.Currency),
		OrderID:    order.Ref,
		FormAction: formAction,
		Customer: CustomerDetails{
			Email:     order.User.Email,
			Reference: order.User.Ref,
		},
		StrongAuthentication: b.opts.StrongAuthentication,
		IPNTargetURL:         b.opts.IPNTargetURL,
		TransactionOptions: TransactionOptions{
			CardOptions: CardOptions{
				CaptureDelay:     b.opts.CaptureDelay,
				ManualValidation: b.opts.ManualValidation,
				PaymentSource:    b.opts.PaymentSource,
			},
		},
	}

	if b.opts.OneClickEnabled {
		token, err := b.tokens.FindToken(ctx, order.UserID)
		if err != nil {
			return nil, fmt.Errorf("lookup payment token for customer %s: %w", order.UserID, err)
		}
		if token != nil {
			req.PaymentMethodToken = token.PaymentToken
		}
	}

	return req, nil
}

// toMinorUnits converts a decimal amount to integer minor currency units.
// Binary float noise is rounded away before truncating, so 49.90 maps to 4990
// while a genuinely fractional 19.999 truncates to 1999.
// The minor-unit exponent is fixed at 2; zero-decimal currencies are not
// handled correctly yet.
func toMinorUnits(amount float64) int64 {
	return int64(math.Trunc(math.Round(amount*100*1e6) / 1e6))
}
