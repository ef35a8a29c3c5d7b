package payzen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const createPaymentPath = "/V4/Charge/CreatePayment"

// ClientConfig holds the PayZen REST API credentials. Username is the shop id,
// Password the REST API key.
type ClientConfig struct {
	Endpoint string
	Username string
	Password string
}

// Client calls the PayZen REST API.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *zap.Logger
}

// NewClient constructs a Client with a bounded request timeout.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// GatewayError is a payment-gateway level failure, distinct from transport
// errors. The caller decides how to surface it to the shopper.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payzen gateway error %s: %s", e.Code, e.Message)
}

type apiResponse struct {
	Status string          `json:"status"`
	Answer json.RawMessage `json:"answer"`
}

type errorAnswer struct {
	ErrorCode            string `json:"errorCode"`
	ErrorMessage         string `json:"errorMessage"`
	DetailedErrorCode    string `json:"detailedErrorCode"`
	DetailedErrorMessage string `json:"detailedErrorMessage"`
}

// CreatePaymentResult is the answer of a Charge/CreatePayment call: a form
// token for the embedded JS client, or a completed payment when the request
// carried a reusable payment method token.
type CreatePaymentResult struct {
	FormToken string
	Payment   *PaymentNotification
}

// CreatePayment posts the request to Charge/CreatePayment and decodes the
// answer. Gateway-declined calls come back as *GatewayError; transport and
// decoding problems as plain errors. Nothing is retried here.
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+createPaymentPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build create payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	c.log.Info("calling payzen create payment",
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payzen create payment request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read payzen response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payzen create payment: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return nil, fmt.Errorf("unmarshal payzen response: %w", err)
	}

	if api.Status != "SUCCESS" {
		var answer errorAnswer
		if err := json.Unmarshal(api.Answer, &answer); err != nil {
			return nil, fmt.Errorf("payzen call failed with status %s", api.Status)
		}
		code, message := answer.ErrorCode, answer.ErrorMessage
		if answer.DetailedErrorCode != "" {
			code, message = answer.DetailedErrorCode, answer.DetailedErrorMessage
		}
		return nil, &GatewayError{Code: code, Message: message}
	}

	var answer struct {
		FormToken string `json:"formToken"`
		PaymentNotification
	}
	if err := json.Unmarshal(api.Answer, &answer); err != nil {
		return nil, fmt.Errorf("unmarshal payzen answer: %w", err)
	}

	result := &CreatePaymentResult{FormToken: answer.FormToken}
	if len(answer.Transactions) > 0 {
		result.Payment = &PaymentNotification{
			OrderStatus:  answer.OrderStatus,
			OrderDetails: answer.OrderDetails,
			Transactions: answer.Transactions,
		}
	}

	return result, nil
}
