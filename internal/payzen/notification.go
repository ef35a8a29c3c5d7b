package payzen

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/payzen/internal/models"
)

// Gateway order statuses as reported in CreatePayment answers and IPN
// callbacks. Matching is exact and case-sensitive.
const (
	GatewayStatusPaid          = "PAID"
	GatewayStatusUnpaid        = "UNPAID"
	GatewayStatusRunning       = "RUNNING"
	GatewayStatusPartiallyPaid = "PARTIALLY_PAID"
)

// PaymentOutcome is the normalized result of processing a gateway payment
// notification.
type PaymentOutcome int

const (
	OutcomePaid PaymentOutcome = iota + 1
	OutcomeNotPaid
	OutcomeInProgress
)

func (o PaymentOutcome) String() string {
	switch o {
	case OutcomePaid:
		return "PAID"
	case OutcomeNotPaid:
		return "NOT_PAID"
	case OutcomeInProgress:
		return "IN_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// PaymentNotification is the payload the gateway sends on its IPN callback.
// The same shape appears in the answer of a CreatePayment call that completed
// a token payment immediately. The first transaction is authoritative.
type PaymentNotification struct {
	OrderStatus  string        `json:"orderStatus"`
	OrderDetails OrderDetails  `json:"orderDetails"`
	Transactions []Transaction `json:"transactions"`
}

type OrderDetails struct {
	OrderID string `json:"orderId"`
}

type Transaction struct {
	UUID               string `json:"uuid"`
	PaymentMethodToken string `json:"paymentMethodToken,omitempty"`
}

// OrderStore looks orders up by their gateway-facing reference.
// A missing order is reported as (nil, nil), not an error.
type OrderStore interface {
	FindByRef(ctx context.Context, ref string) (*models.Order, error)
}

// OrderCommands issues order mutations through the order subsystem instead of
// mutating rows directly, so downstream consistency rules keep applying.
// Implementations must be safe to apply redundantly.
type OrderCommands interface {
	UpdateTransactionRef(ctx context.Context, order *models.Order, ref string) error
	UpdateStatus(ctx context.Context, order *models.Order, status string) error
}

// TokenStore persists one-click payment tokens, one per customer.
// FindToken reports a missing token as (nil, nil).
type TokenStore interface {
	FindToken(ctx context.Context, customerID uuid.UUID) (*models.CustomerToken, error)
	SaveToken(ctx context.Context, token *models.CustomerToken) error
}

// Processor reconciles order payment state from gateway notifications.
type Processor struct {
	orders   OrderStore
	commands OrderCommands
	tokens   TokenStore
	log      *zap.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(orders OrderStore, commands OrderCommands, tokens TokenStore, log *zap.Logger) *Processor {
	return &Processor{orders: orders, commands: commands, tokens: tokens, log: log}
}

// Process applies a gateway notification to the matching order and returns the
// normalized outcome.
//
// Callbacks without transaction data and callbacks referencing an unknown
// order are ignorable: they yield OutcomeNotPaid with a nil error so the
// gateway still gets its acknowledgment. Persistence failures are returned
// unchanged and never retried here.
//
// Reprocessing an identical notification is idempotent: the already-paid and
// already-not-paid guards prevent duplicate status commands and token upserts.
func (p *Processor) Process(ctx context.Context, n *PaymentNotification) (PaymentOutcome, error) {
	if n == nil || len(n.Transactions) == 0 {
		p.log.Info("payzen notification carries no transaction data, ignoring")
		return OutcomeNotPaid, nil
	}

	transaction := n.Transactions[0]
	orderRef := n.OrderDetails.OrderID

	p.log.Info("payzen platform request received",
		zap.String("order_ref", orderRef),
		zap.String("order_status", n.OrderStatus))

	order, err := p.orders.FindByRef(ctx, orderRef)
	if err != nil {
		return OutcomeNotPaid, err
	}
	if order == nil {
		p.log.Error("unknown order reference in payzen notification",
			zap.String("order_ref", orderRef))
		return OutcomeNotPaid, nil
	}

	// Record the transaction id whatever the outcome, so failed attempts stay
	// reconcilable later.
	if err := p.commands.UpdateTransactionRef(ctx, order, transaction.UUID); err != nil {
		return OutcomeNotPaid, err
	}

	switch n.OrderStatus {
	case GatewayStatusPaid:
		if order.IsPaid() {
			p.log.Info("order is already paid", zap.String("order_ref", orderRef))
			return OutcomePaid, nil
		}

		if err := p.commands.UpdateStatus(ctx, order, models.OrderStatusPaid); err != nil {
			return OutcomeNotPaid, err
		}
		p.log.Info("order payment was successful", zap.String("order_ref", orderRef))

		if transaction.PaymentMethodToken != "" {
			if err := p.upsertCustomerToken(ctx, order.UserID, transaction.PaymentMethodToken); err != nil {
				return OutcomeNotPaid, err
			}
			p.log.Info("one-click payment token registered",
				zap.String("order_ref", orderRef),
				zap.String("customer_id", order.UserID.String()))
		}

		return OutcomePaid, nil

	case GatewayStatusUnpaid:
		p.log.Info("order payment was not successful", zap.String("order_ref", orderRef))

		if order.Status != models.OrderStatusNotPaid {
			if err := p.commands.UpdateStatus(ctx, order, models.OrderStatusNotPaid); err != nil {
				return OutcomeNotPaid, err
			}
		}
		return OutcomeNotPaid, nil

	case GatewayStatusRunning, GatewayStatusPartiallyPaid:
		p.log.Info("order payment is in progress",
			zap.String("order_ref", orderRef),
			zap.String("order_status", n.OrderStatus))

		if order.Status != models.OrderStatusNotPaid {
			if err := p.commands.UpdateStatus(ctx, order, models.OrderStatusNotPaid); err != nil {
				return OutcomeNotPaid, err
			}
		}
		return OutcomeInProgress, nil

	default:
		p.log.Warn("unrecognized payzen order status, treating as not paid",
			zap.String("order_ref", orderRef),
			zap.String("order_status", n.OrderStatus))
		return OutcomeNotPaid, nil
	}
}

func (p *Processor) upsertCustomerToken(ctx context.Context, customerID uuid.UUID, paymentToken string) error {
	token, err := p.tokens.FindToken(ctx, customerID)
	if err != nil {
		return err
	}
	if token == nil {
		token = &models.CustomerToken{CustomerID: customerID}
	}

	token.PaymentToken = paymentToken
	return p.tokens.SaveToken(ctx, token)
}
