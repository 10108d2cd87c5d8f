/**
 * @description
 * This package provides a client for the reservations backend API. It
 * encapsulates the authenticated HTTP calls the checkout flow depends on:
 * creating a pending order, verifying a gateway payment, issuing an invoice,
 * and best-effort failure reporting.
 *
 * @notes
 * - Order creation and verification are called with the traveler's bearer
 *   token; 401/403 responses surface as ErrUnauthorized so the caller can run
 *   the session-expiry path instead of retrying.
 * - Non-2xx order responses surface as *APIError carrying the backend's own
 *   message, which the UI shows verbatim.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package bookingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
// Callers must treat it as session expiry, not as a retryable failure.
var ErrUnauthorized = errors.New("booking api rejected bearer token")

// Client is a client for the reservations backend API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new reservations backend client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateOrderRequest is the payload for the order-creation endpoint.
type CreateOrderRequest struct {
	CustomerID     string `json:"customer_id"`
	PropertyID     string `json:"property_id"`
	RoomPackageID  string `json:"room_package_id"`
	CheckIn        string `json:"check_in"`  // YYYY-MM-DD
	CheckOut       string `json:"check_out"` // YYYY-MM-DD
	Adults         int    `json:"adults"`
	Children       int    `json:"children"`
	Amount         int64  `json:"amount"` // minor units
	Currency       string `json:"currency"`
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CreateOrderResponse is the backend's response to order creation. The gateway
// order id configures the payment widget; the backend order id is what
// verification and invoicing key on later.
type CreateOrderResponse struct {
	Data struct {
		OrderID        string `json:"order_id"`
		GatewayOrderID string `json:"gateway_order_id"`
		Amount         int64  `json:"amount"`
		Currency       string `json:"currency"`
	} `json:"data"`
}

// VerifyPaymentRequest carries the gateway's proof of payment.
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// VerifyPaymentResponse is the backend's verification result.
type VerifyPaymentResponse struct {
	Data struct {
		OrderID    string    `json:"order_id"`
		Status     string    `json:"status"`
		VerifiedAt time.Time `json:"verified_at"`
	} `json:"data"`
}

// CreateInvoiceRequest is the payload for invoice creation after a verified
// payment.
type CreateInvoiceRequest struct {
	OrderID        string  `json:"order_id"`
	BillingName    string  `json:"billing_name"`
	BillingEmail   string  `json:"billing_email"`
	BillingPhone   string  `json:"billing_phone"`
	BillingAddress string  `json:"billing_address"`
	GSTNumber      *string `json:"gst_number,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// ReportFailureRequest forwards a gateway-reported payment failure for backend
// bookkeeping.
type ReportFailureRequest struct {
	OrderID      string `json:"order_id"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// APIError represents a structured error from the reservations backend.
type APIError struct {
	StatusCode int `json:"-"`
	Errors     []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("booking api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return fmt.Sprintf("booking api error (status %d)", e.StatusCode)
}

// Message returns the backend's human-readable message, suitable for showing
// to the traveler verbatim.
func (e *APIError) Message() string {
	if len(e.Errors) > 0 {
		if e.Errors[0].Detail != "" {
			return e.Errors[0].Detail
		}
		return e.Errors[0].Title
	}
	return "order could not be created"
}

// CreateOrder submits a pending-order request with the traveler's bearer token.
func (c *Client) CreateOrder(ctx context.Context, bearerToken string, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var resp CreateOrderResponse
	if err := c.do(ctx, "POST", "/api/v1/orders", bearerToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyPayment submits the gateway's proof to the verification endpoint. A
// 2xx response is the sole trigger for treating the booking as confirmed.
func (c *Client) VerifyPayment(ctx context.Context, bearerToken string, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	var resp VerifyPaymentResponse
	if err := c.do(ctx, "POST", "/api/v1/payments/verify", bearerToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateInvoice requests a billing document for a verified order.
func (c *Client) CreateInvoice(ctx context.Context, bearerToken string, req CreateInvoiceRequest) error {
	return c.do(ctx, "POST", "/api/v1/invoices", bearerToken, req, nil)
}

// ReportPaymentFailure forwards a gateway failure for bookkeeping. Its own
// failure is logged, never surfaced.
func (c *Client) ReportPaymentFailure(ctx context.Context, bearerToken string, req ReportFailureRequest) error {
	return c.do(ctx, "POST", "/api/v1/payments/failures", bearerToken, req, nil)
}

// do executes one JSON request against the backend, mapping auth rejections to
// ErrUnauthorized and other non-2xx responses to *APIError.
func (c *Client) do(ctx context.Context, method, path, bearerToken string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-booking-key", c.APIKey)
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Printf("level=warn component=booking_client path=%s status=%d msg=\"bearer token rejected\"", path, resp.StatusCode)
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, apiErr); err != nil {
			log.Printf("level=warn component=booking_client path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", path, resp.StatusCode)
			return apiErr
		}
		log.Printf("level=warn component=booking_client path=%s status=%d detail=%q", path, resp.StatusCode, apiErr.Message())
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
