package payzen

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/payzen/internal/models"
)

// fakeBackend implements OrderStore, OrderCommands and TokenStore in memory,
// recording every command so tests can assert call counts.
type fakeBackend struct {
	orders map[string]*models.Order
	tokens map[uuid.UUID]*models.CustomerToken

	findCalls   int
	refUpdates  []string
	statusCmds  []string
	tokenSaves  []string
	findErr     error
	statusErr   error
	saveTokErr  error
	findTokErr  error
}

func newFakeBackend(orders ...*models.Order) *fakeBackend {
	f := &fakeBackend{
		orders: make(map[string]*models.Order),
		tokens: make(map[uuid.UUID]*models.CustomerToken),
	}
	for _, o := range orders {
		f.orders[o.Ref] = o
	}
	return f
}

func (f *fakeBackend) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.orders[ref], nil
}

func (f *fakeBackend) UpdateTransactionRef(ctx context.Context, order *models.Order, ref string) error {
	f.refUpdates = append(f.refUpdates, ref)
	order.TransactionRef = ref
	return nil
}

func (f *fakeBackend) UpdateStatus(ctx context.Context, order *models.Order, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCmds = append(f.statusCmds, status)
	order.Status = status
	return nil
}

func (f *fakeBackend) FindToken(ctx context.Context, customerID uuid.UUID) (*models.CustomerToken, error) {
	if f.findTokErr != nil {
		return nil, f.findTokErr
	}
	return f.tokens[customerID], nil
}

func (f *fakeBackend) SaveToken(ctx context.Context, token *models.CustomerToken) error {
	if f.saveTokErr != nil {
		return f.saveTokErr
	}
	f.tokenSaves = append(f.tokenSaves, token.PaymentToken)
	f.tokens[token.CustomerID] = token
	return nil
}

func testOrder(ref, status string) *models.Order {
	return &models.Order{
		UserID: uuid.New(),
		Ref:    ref,
		Status: status,
	}
}

func notification(orderRef, orderStatus, txnUUID, token string) *PaymentNotification {
	return &PaymentNotification{
		OrderStatus:  orderStatus,
		OrderDetails: OrderDetails{OrderID: orderRef},
		Transactions: []Transaction{{UUID: txnUUID, PaymentMethodToken: token}},
	}
}

func newTestProcessor(backend *fakeBackend) *Processor {
	return NewProcessor(backend, backend, backend, zap.NewNop())
}

func TestProcessNoTransactions(t *testing.T) {
	backend := newFakeBackend(testOrder("ORD-42", models.OrderStatusNotPaid))
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), &PaymentNotification{
		OrderStatus:  GatewayStatusPaid,
		OrderDetails: OrderDetails{OrderID: "ORD-42"},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, outcome)
	assert.Zero(t, backend.findCalls, "no order lookup must happen")
	assert.Empty(t, backend.statusCmds)
}

func TestProcessUnknownOrderRef(t *testing.T) {
	backend := newFakeBackend()
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), notification("ORD-404", GatewayStatusPaid, "t1", ""))

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, outcome)
	assert.Empty(t, backend.refUpdates)
	assert.Empty(t, backend.statusCmds)
}

func TestProcessPaid(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t1", ""))

	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, outcome)
	assert.Equal(t, []string{"t1"}, backend.refUpdates)
	assert.Equal(t, []string{models.OrderStatusPaid}, backend.statusCmds)
	assert.Equal(t, "t1", order.TransactionRef)
	assert.Empty(t, backend.tokenSaves)
}

func TestProcessPaidRegistersToken(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t1", "card-token-1"))

	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, outcome)
	assert.Equal(t, []string{"card-token-1"}, backend.tokenSaves)
	require.Contains(t, backend.tokens, order.UserID)
	assert.Equal(t, "card-token-1", backend.tokens[order.UserID].PaymentToken)
}

func TestProcessPaidOverwritesExistingToken(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	backend.tokens[order.UserID] = &models.CustomerToken{CustomerID: order.UserID, PaymentToken: "old-token"}
	processor := newTestProcessor(backend)

	_, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t1", "new-token"))

	require.NoError(t, err)
	assert.Equal(t, "new-token", backend.tokens[order.UserID].PaymentToken)
}

func TestProcessPaidAlreadyPaid(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t2", "card-token-1"))

	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, outcome)
	assert.Empty(t, backend.statusCmds, "already paid order must not transition again")
	assert.Empty(t, backend.tokenSaves, "already paid order must not upsert a token")
	assert.Equal(t, []string{"t2"}, backend.refUpdates, "transaction ref is recorded regardless")
}

func TestProcessPaidTwiceIsIdempotent(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)
	n := notification("ORD-42", GatewayStatusPaid, "t1", "card-token-1")

	first, err := processor.Process(context.Background(), n)
	require.NoError(t, err)
	second, err := processor.Process(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, OutcomePaid, first)
	assert.Equal(t, OutcomePaid, second)
	assert.Len(t, backend.statusCmds, 1, "exactly one status command across both calls")
	assert.Len(t, backend.tokenSaves, 1, "exactly one token upsert across both calls")
}

func TestProcessUnpaid(t *testing.T) {
	tests := []struct {
		name        string
		startStatus string
		wantCmds    []string
	}{
		{name: "paid order is reset", startStatus: models.OrderStatusPaid, wantCmds: []string{models.OrderStatusNotPaid}},
		{name: "already not paid is a no-op", startStatus: models.OrderStatusNotPaid, wantCmds: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder("ORD-42", tt.startStatus)
			backend := newFakeBackend(order)
			processor := newTestProcessor(backend)

			outcome, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusUnpaid, "t1", ""))

			require.NoError(t, err)
			assert.Equal(t, OutcomeNotPaid, outcome)
			assert.Equal(t, tt.wantCmds, backend.statusCmds)
		})
	}
}

func TestProcessUnpaidTwiceIssuesNoSecondCommand(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)
	n := notification("ORD-42", GatewayStatusUnpaid, "t1", "")

	_, err := processor.Process(context.Background(), n)
	require.NoError(t, err)
	_, err = processor.Process(context.Background(), n)
	require.NoError(t, err)

	assert.Len(t, backend.statusCmds, 1)
}

func TestProcessInProgress(t *testing.T) {
	tests := []struct {
		name          string
		gatewayStatus string
		startStatus   string
		wantCmds      []string
	}{
		{name: "running against not paid order", gatewayStatus: GatewayStatusRunning, startStatus: models.OrderStatusNotPaid, wantCmds: nil},
		{name: "running against paid order", gatewayStatus: GatewayStatusRunning, startStatus: models.OrderStatusPaid, wantCmds: []string{models.OrderStatusNotPaid}},
		{name: "partially paid against not paid order", gatewayStatus: GatewayStatusPartiallyPaid, startStatus: models.OrderStatusNotPaid, wantCmds: nil},
		{name: "partially paid against paid order", gatewayStatus: GatewayStatusPartiallyPaid, startStatus: models.OrderStatusPaid, wantCmds: []string{models.OrderStatusNotPaid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder("ORD-42", tt.startStatus)
			backend := newFakeBackend(order)
			processor := newTestProcessor(backend)

			outcome, err := processor.Process(context.Background(), notification("ORD-42", tt.gatewayStatus, "t1", ""))

			require.NoError(t, err)
			assert.Equal(t, OutcomeInProgress, outcome)
			assert.Equal(t, tt.wantCmds, backend.statusCmds)
		})
	}
}

func TestProcessUnrecognizedStatus(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	processor := newTestProcessor(backend)

	outcome, err := processor.Process(context.Background(), notification("ORD-42", "ABANDONED", "t1", ""))

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, outcome)
	assert.Empty(t, backend.statusCmds)
	assert.Equal(t, []string{"t1"}, backend.refUpdates)
}

func TestProcessPropagatesPersistenceErrors(t *testing.T) {
	order := testOrder("ORD-42", models.OrderStatusNotPaid)
	backend := newFakeBackend(order)
	backend.statusErr = errors.New("connection lost")
	processor := newTestProcessor(backend)

	_, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t1", ""))

	require.Error(t, err)
	assert.ErrorContains(t, err, "connection lost")
}

func TestProcessPropagatesLookupErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.findErr = errors.New("db down")
	processor := newTestProcessor(backend)

	_, err := processor.Process(context.Background(), notification("ORD-42", GatewayStatusPaid, "t1", ""))

	require.Error(t, err)
}

func TestPaymentOutcomeString(t *testing.T) {
	assert.Equal(t, "PAID", OutcomePaid.String())
	assert.Equal(t, "NOT_PAID", OutcomeNotPaid.String())
	assert.Equal(t, "IN_PROGRESS", OutcomeInProgress.String())
}
