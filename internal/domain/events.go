/**
 * @description
 * This file defines the message payloads the checkout-service publishes to
 * RabbitMQ when an attempt reaches a terminal state. Downstream services
 * (notifications, analytics) consume these to react to confirmed or failed
 * bookings without being in the checkout's critical path.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutConfirmedEvent is published on the `checkout.confirmed` routing key
// once payment verification succeeds.
type CheckoutConfirmedEvent struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	CustomerID     string    `json:"customer_id"`
	BackendOrderID string    `json:"backend_order_id"`
	Amount         int64     `json:"amount"` // minor units
	Currency       string    `json:"currency"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// CheckoutFailedEvent is published on `checkout.failed.<kind>` for every
// non-confirmed terminal state except local validation errors, which never
// leave the process.
type CheckoutFailedEvent struct {
	AttemptID   uuid.UUID `json:"attempt_id"`
	CustomerID  string    `json:"customer_id"`
	FailureKind string    `json:"failure_kind"`
	Reason      string    `json:"reason"`
	Amount      int64     `json:"amount"` // minor units
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}
