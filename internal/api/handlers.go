/**
 * @description
 * This file contains the HTTP handlers for the checkout-service's API
 * endpoints. Handlers parse incoming requests, call the checkout service, and
 * translate its typed errors into the failure contract the client renders:
 * every error body carries a kind, a message, and the single recovery action.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: Service logic, models, errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stayfront/checkout-service/internal/app"
	"github.com/stayfront/checkout-service/internal/domain"
	"github.com/stayfront/checkout-service/internal/store"
)

// CheckoutHandlers holds the application service that handlers will use.
type CheckoutHandlers struct {
	service *app.Service
}

// NewCheckoutHandlers creates a new instance of CheckoutHandlers.
func NewCheckoutHandlers(service *app.Service) *CheckoutHandlers {
	return &CheckoutHandlers{service: service}
}

// submitResponse is sent back once an attempt has reached the awaiting-gateway
// state. The widget config is everything the client needs to open the payment
// gateway; the attempt id is what it polls and calls back with.
type submitResponse struct {
	AttemptID string           `json:"attempt_id"`
	State     string           `json:"state"`
	Widget    app.WidgetConfig `json:"widget"`
}

// failureResponse is the error body for every non-validation failure.
type failureResponse struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Recovery string `json:"recovery"`
}

// validationResponse carries the field->message map for pre-network rejects.
type validationResponse struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Recovery string            `json:"recovery"`
	Fields   map[string]string `json:"fields"`
}

// gatewayCompleteRequest is the completion callback payload from the widget.
type gatewayCompleteRequest struct {
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// reissueInvoiceRequest carries the billing details for regenerating an
// invoice from the bookings view.
type reissueInvoiceRequest struct {
	Guest   domain.GuestDetails `json:"guest"`
	Billing domain.BillingInfo  `json:"billing"`
}

// SubmitCheckoutHandler handles POST /checkout: one user-initiated submission.
func (h *CheckoutHandlers) SubmitCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeSessionExpired(w)
		return
	}

	var draft domain.CheckoutDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Printf("level=warn component=api endpoint=submit_checkout outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Submit(r.Context(), session, draft)
	if err != nil {
		h.writeSubmitError(w, session.CustomerID, err)
		return
	}

	log.Printf("level=info component=api endpoint=submit_checkout outcome=accepted customer_id=%s attempt_id=%s amount=%d", session.CustomerID, result.Attempt.ID, result.Attempt.Amount)
	h.writeJSON(w, http.StatusAccepted, submitResponse{
		AttemptID: result.Attempt.ID.String(),
		State:     string(result.Attempt.State),
		Widget:    result.Widget,
	})
}

func (h *CheckoutHandlers) writeSubmitError(w http.ResponseWriter, customerID string, err error) {
	var fieldErrs app.ValidationError
	if errors.As(err, &fieldErrs) {
		c := app.Classify(app.FailureValidation, "")
		h.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Kind:     string(c.Kind),
			Message:  c.Message,
			Recovery: string(c.Recovery),
			Fields:   fieldErrs,
		})
		return
	}
	if errors.Is(err, app.ErrSessionExpired) {
		writeSessionExpired(w)
		return
	}
	if errors.Is(err, app.ErrAlreadyProcessing) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	var orderErr *app.OrderCreationError
	if errors.As(err, &orderErr) {
		c := app.Classify(app.FailureOrderCreation, orderErr.Message)
		h.writeFailure(w, http.StatusBadGateway, c)
		return
	}

	log.Printf("level=error component=api endpoint=submit_checkout outcome=failed customer_id=%s err=%v", customerID, err)
	h.writeError(w, http.StatusInternalServerError, "Unable to start checkout")
}

// GatewayCompleteHandler handles the widget's completion callback:
// POST /checkout/{attemptID}/gateway/complete.
func (h *CheckoutHandlers) GatewayCompleteHandler(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.attemptIDParam(w, r)
	if !ok {
		return
	}

	var req gatewayCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.CompleteGateway(r.Context(), attemptID, req.PaymentID, req.Signature); err != nil {
		h.writeGatewayError(w, attemptID, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// gatewayWebhookRequest is the gateway's server-side notification payload.
type gatewayWebhookRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// GatewayWebhookHandler handles the gateway's server-to-server payment
// notification: POST /gateway/webhook. Unlike the widget callbacks it is not
// behind bearer auth; the HMAC signature authenticates the sender.
func (h *CheckoutHandlers) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var req gatewayWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.service.CompleteByGatewayOrder(r.Context(), req.GatewayOrderID, req.PaymentID, req.Signature)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, app.ErrInvalidSignature):
		log.Printf("level=warn component=api endpoint=gateway_webhook outcome=reject reason=bad_signature gateway_order_id=%s", req.GatewayOrderID)
		h.writeError(w, http.StatusUnauthorized, "Signature could not be verified")
	case errors.Is(err, store.ErrAttemptNotFound):
		h.writeError(w, http.StatusNotFound, "Unknown gateway order")
	case errors.Is(err, app.ErrGatewayNotOpen):
		h.writeError(w, http.StatusConflict, "No open payment for this order")
	default:
		log.Printf("level=error component=api endpoint=gateway_webhook gateway_order_id=%s err=%v", req.GatewayOrderID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to process webhook")
	}
}

// GatewayDismissHandler handles the widget's dismissal callback:
// POST /checkout/{attemptID}/gateway/dismiss.
func (h *CheckoutHandlers) GatewayDismissHandler(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.attemptIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DismissGateway(r.Context(), attemptID); err != nil {
		h.writeGatewayError(w, attemptID, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *CheckoutHandlers) writeGatewayError(w http.ResponseWriter, attemptID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrAttemptNotFound):
		h.writeError(w, http.StatusNotFound, "Checkout attempt not found")
	case errors.Is(err, app.ErrInvalidSignature):
		h.writeError(w, http.StatusBadRequest, "Payment signature could not be verified")
	case errors.Is(err, app.ErrGatewayNotOpen):
		// Already resolved or never opened; the event is dropped, not replayed.
		h.writeError(w, http.StatusConflict, "No open payment for this attempt")
	default:
		log.Printf("level=error component=api endpoint=gateway_callback attempt_id=%s err=%v", attemptID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to process gateway callback")
	}
}

// GetAttemptHandler handles GET /checkout/{attemptID}: attempt status polling.
func (h *CheckoutHandlers) GetAttemptHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeSessionExpired(w)
		return
	}
	attemptID, ok := h.attemptIDParam(w, r)
	if !ok {
		return
	}

	attempt, err := h.service.GetAttempt(r.Context(), session.CustomerID, attemptID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAttemptNotFound):
			h.writeError(w, http.StatusNotFound, "Checkout attempt not found")
		case errors.Is(err, app.ErrForbidden):
			h.writeError(w, http.StatusForbidden, "Checkout attempt belongs to another customer")
		default:
			log.Printf("level=error component=api endpoint=get_attempt attempt_id=%s err=%v", attemptID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to load checkout attempt")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, attempt)
}

// ListAttemptsHandler handles GET /checkout/attempts: the customer's attempt
// history, newest first.
func (h *CheckoutHandlers) ListAttemptsHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeSessionExpired(w)
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	attempts, err := h.service.ListAttempts(r.Context(), session.CustomerID, limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_attempts customer_id=%s err=%v", session.CustomerID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load checkout history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

// ReissueInvoiceHandler handles POST /checkout/{attemptID}/invoice: on-demand
// invoice regeneration for a confirmed booking whose issuance failed.
func (h *CheckoutHandlers) ReissueInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeSessionExpired(w)
		return
	}
	attemptID, ok := h.attemptIDParam(w, r)
	if !ok {
		return
	}

	var req reissueInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ReissueInvoice(r.Context(), session, attemptID, req.Guest, req.Billing); err != nil {
		switch {
		case errors.Is(err, store.ErrAttemptNotFound):
			h.writeError(w, http.StatusNotFound, "Checkout attempt not found")
		case errors.Is(err, app.ErrForbidden):
			h.writeError(w, http.StatusForbidden, "Checkout attempt belongs to another customer")
		case errors.Is(err, app.ErrNotConfirmed):
			h.writeError(w, http.StatusConflict, "Invoice is only available for confirmed bookings")
		case errors.Is(err, app.ErrSessionExpired):
			writeSessionExpired(w)
		default:
			log.Printf("level=warn component=api endpoint=reissue_invoice attempt_id=%s err=%v", attemptID, err)
			h.writeFailure(w, http.StatusBadGateway, app.Classify(app.FailureInvoice, ""))
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"invoice_status": string(domain.InvoiceIssued)})
}

func (h *CheckoutHandlers) attemptIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid attempt ID format")
		return uuid.Nil, false
	}
	return attemptID, true
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// writeJSON is a helper for writing JSON responses.
func (h *CheckoutHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *CheckoutHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure renders a classified failure with its recovery action.
func (h *CheckoutHandlers) writeFailure(w http.ResponseWriter, status int, c app.Classification) {
	h.writeJSON(w, status, failureResponse{
		Kind:     string(c.Kind),
		Message:  c.Message,
		Recovery: string(c.Recovery),
	})
}

// writeSessionExpired is shared with the auth middleware so expiry always
// renders the same contract.
func writeSessionExpired(w http.ResponseWriter) {
	c := app.Classify(app.FailureSessionExpired, "")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(failureResponse{
		Kind:     string(c.Kind),
		Message:  c.Message,
		Recovery: string(c.Recovery),
	})
}
