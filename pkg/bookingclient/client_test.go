package bookingclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrderSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("x-booking-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"order_id":"order_1","gateway_order_id":"gw_1","amount":250000,"currency":"INR"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	resp, err := c.CreateOrder(context.Background(), "traveler-token", CreateOrderRequest{Amount: 250000, Currency: "INR"})
	if err != nil {
		t.Fatalf("expected order creation to succeed, got %v", err)
	}
	if gotAuth != "Bearer traveler-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if resp.Data.GatewayOrderID != "gw_1" {
		t.Fatalf("expected gateway order id, got %q", resp.Data.GatewayOrderID)
	}
}

func TestUnauthorizedMapsToErrUnauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(srv.URL, "secret-key")
		_, err := c.CreateOrder(context.Background(), "stale-token", CreateOrderRequest{})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("status %d: expected ErrUnauthorized, got %v", status, err)
		}
		srv.Close()
	}
}

func TestNon2xxMapsToAPIErrorWithBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"title": "Room unavailable", "detail": "Selected room is no longer available"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	_, err := c.CreateOrder(context.Background(), "traveler-token", CreateOrderRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", apiErr.StatusCode)
	}
	if apiErr.Message() != "Selected room is no longer available" {
		t.Fatalf("expected backend detail verbatim, got %q", apiErr.Message())
	}
}

func TestAPIErrorMessageFallsBack(t *testing.T) {
	err := &APIError{StatusCode: 500}
	if err.Message() != "order could not be created" {
		t.Fatalf("expected fallback message, got %q", err.Message())
	}

	titled := &APIError{StatusCode: 422}
	titled.Errors = append(titled.Errors, struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	}{Title: "Invalid dates"})
	if titled.Message() != "Invalid dates" {
		t.Fatalf("expected title when detail empty, got %q", titled.Message())
	}
}

func TestVerifyPaymentDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/payments/verify" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"order_id":"order_1","status":"captured","verified_at":"2026-03-01T12:00:00Z"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	resp, err := c.VerifyPayment(context.Background(), "traveler-token", VerifyPaymentRequest{
		GatewayOrderID: "gw_1", PaymentID: "pay_1", Signature: "sig",
	})
	if err != nil {
		t.Fatalf("expected verification to succeed, got %v", err)
	}
	if resp.Data.Status != "captured" {
		t.Fatalf("expected captured status, got %q", resp.Data.Status)
	}
	if resp.Data.VerifiedAt.IsZero() {
		t.Fatal("expected verified_at to be parsed")
	}
}
