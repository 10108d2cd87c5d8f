/**
 * @description
 * This file defines the core domain models for the checkout-service. These structs
 * represent the entities and data transfer objects (DTOs) used throughout the
 * checkout orchestration flow, from the guest form all the way to a verified,
 * invoiced booking.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (e.g. paise for
 *   rupees), which avoids floating-point inaccuracies with financial data. The
 *   only place decimal currency units appear is the incoming draft price, which
 *   is converted once with MinorUnits.
 * - Using distinct types for API requests, database models, and external service
 *   payloads keeps the layers decoupled and type safe.
 */

package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Session is the traveler's authenticated session as supplied by the surrounding
// application. The checkout core treats it as read-only; only the session guard
// may clear it.
type Session struct {
	Token      string    `json:"token"`
	CustomerID string    `json:"customer_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// GuestDetails holds the name fields for one guest. The primary guest is always
// present; additional guests follow the same shape.
type GuestDetails struct {
	Title     string `json:"title"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BillingInfo carries the contact and billing fields required for invoicing.
// The address is mandatory because invoice generation depends on it.
type BillingInfo struct {
	Email            string `json:"email"`
	PhoneCountryCode string `json:"phone_country_code"`
	PhoneNumber      string `json:"phone_number"`
	Address          string `json:"address"`
	GSTNumber        string `json:"gst_number,omitempty"`
}

// PartySize is the adult/child split for the stay.
type PartySize struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// DateRange is the check-in/check-out window for the stay.
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// CheckoutDraft is the traveler's fully assembled checkout form: the selected
// room or package, the stay details, every guest, and billing information.
// It is consumed exactly once per attempt to build the order request.
type CheckoutDraft struct {
	PropertyID     string         `json:"property_id"`
	RoomPackageID  string         `json:"room_package_id"`
	Dates          DateRange      `json:"dates"`
	Party          PartySize      `json:"party"`
	Guests         []GuestDetails `json:"guests"`
	Billing        BillingInfo    `json:"billing"`
	TotalPrice     float64        `json:"total_price"` // decimal currency units
	PaymentMethod  string         `json:"payment_method"`
	PolicyAccepted bool           `json:"policy_accepted"`
}

// MinorUnits converts a decimal currency amount into integer minor units,
// rounded to the nearest unit (2500.00 -> 250000).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// PendingOrder is the provisional booking record returned by the reservations
// backend before payment. It is immutable once created; every checkout attempt
// gets a fresh one.
type PendingOrder struct {
	BackendOrderID   string `json:"backend_order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
}

// OutcomeKind enumerates the three ways handing control to the payment widget
// can end.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeTimedOut  OutcomeKind = "timed_out"
)

// PaymentOutcome is the single result of the race between the gateway's own
// callbacks and the timeout watchdog. PaymentID and Signature are set only for
// OutcomeSuccess.
type PaymentOutcome struct {
	Kind      OutcomeKind `json:"kind"`
	PaymentID string      `json:"payment_id,omitempty"`
	Signature string      `json:"signature,omitempty"`
}

// VerifiedPayment exists only after the backend has confirmed the gateway's
// proof. Its presence is what makes a booking "confirmed", independent of
// whether an invoice was ever issued.
type VerifiedPayment struct {
	BackendOrderID string    `json:"backend_order_id"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// AttemptState enumerates the checkout state machine's states. Terminal states
// are Confirmed, Failed, TimedOut, and SessionExpired; none auto-retries.
type AttemptState string

const (
	StateIdle            AttemptState = "idle"
	StateValidating      AttemptState = "validating"
	StateCreatingOrder   AttemptState = "creating_order"
	StateAwaitingGateway AttemptState = "awaiting_gateway"
	StateVerifying       AttemptState = "verifying"
	StateConfirmed       AttemptState = "confirmed"
	StateFailed          AttemptState = "failed"
	StateTimedOut        AttemptState = "timed_out"
	StateSessionExpired  AttemptState = "session_expired"
	StateAbandoned       AttemptState = "abandoned"
)

// InvoiceStatus tracks the best-effort invoice artifact on an attempt.
type InvoiceStatus string

const (
	InvoiceNone   InvoiceStatus = "none"
	InvoiceIssued InvoiceStatus = "issued"
	InvoiceFailed InvoiceStatus = "failed"
)

// CheckoutAttempt is the persisted record of one user-initiated checkout run.
// It maps directly to the `checkout_attempts` table.
type CheckoutAttempt struct {
	ID             uuid.UUID     `json:"id"`
	CustomerID     string        `json:"customer_id"`
	DraftKey       string        `json:"draft_key"`
	PropertyID     string        `json:"property_id"`
	RoomPackageID  string        `json:"room_package_id"`
	State          AttemptState  `json:"state"`
	FailureKind    *string       `json:"failure_kind,omitempty"`
	FailureMessage *string       `json:"failure_message,omitempty"`
	BackendOrderID *string       `json:"backend_order_id,omitempty"`
	GatewayOrderID *string       `json:"gateway_order_id,omitempty"`
	PaymentID      *string       `json:"payment_id,omitempty"`
	Amount         int64         `json:"amount"` // minor units
	Currency       string        `json:"currency"`
	InvoiceStatus  InvoiceStatus `json:"invoice_status"`
	VerifiedAt     *time.Time    `json:"verified_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Invoice is the best-effort billing document recorded after a verified
// payment. Its absence never invalidates the booking.
type Invoice struct {
	ID             uuid.UUID `json:"id"`
	AttemptID      uuid.UUID `json:"attempt_id"`
	BackendOrderID string    `json:"backend_order_id"`
	BillingName    string    `json:"billing_name"`
	BillingEmail   string    `json:"billing_email"`
	BillingPhone   string    `json:"billing_phone"`
	BillingAddress string    `json:"billing_address"`
	GSTNumber      *string   `json:"gst_number,omitempty"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}
