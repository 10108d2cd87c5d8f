/**
 * @description
 * This file defines the failure taxonomy for the checkout flow. Every exit
 * path of the state machine maps to exactly one kind; the kind carries the
 * user-facing message and the single recovery action the UI offers. This
 * taxonomy is the contract the API's error responses render against.
 */

package app

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind identifies one of the checkout flow's exit paths.
type FailureKind string

const (
	FailureValidation       FailureKind = "validation_error"
	FailureSessionExpired   FailureKind = "session_expired"
	FailureOrderCreation    FailureKind = "order_creation_failed"
	FailureGatewayCancelled FailureKind = "gateway_cancelled"
	FailureGatewayTimeout   FailureKind = "gateway_timeout"
	FailureVerification     FailureKind = "verification_failed"
	FailureInvoice          FailureKind = "invoice_failed" // non-fatal, never a terminal state
)

// RecoveryAction is the single action the UI offers for a failure kind.
type RecoveryAction string

const (
	RecoveryRetry   RecoveryAction = "retry"
	RecoveryReLogin RecoveryAction = "re_login"
	RecoveryNone    RecoveryAction = "none"
)

// Classification bundles a failure kind with its presentation contract.
type Classification struct {
	Kind     FailureKind    `json:"kind"`
	Message  string         `json:"message"`
	Recovery RecoveryAction `json:"recovery"`
}

// Classify returns the presentation contract for a failure kind. detail, when
// non-empty, replaces the default message (used for backend order-creation
// messages, which are surfaced verbatim).
func Classify(kind FailureKind, detail string) Classification {
	c := Classification{Kind: kind}
	switch kind {
	case FailureValidation:
		c.Message = "Please correct the highlighted fields."
		c.Recovery = RecoveryRetry
	case FailureSessionExpired:
		c.Message = "Your session has expired. Please log in again to continue."
		c.Recovery = RecoveryReLogin
	case FailureOrderCreation:
		c.Message = "We could not create your booking order. Please try again."
		c.Recovery = RecoveryRetry
	case FailureGatewayCancelled:
		c.Message = "Payment was cancelled before completion. You can try again."
		c.Recovery = RecoveryRetry
	case FailureGatewayTimeout:
		c.Message = "The connection to the payment provider was interrupted. Please start a new payment attempt."
		c.Recovery = RecoveryRetry
	case FailureVerification:
		// Money may have moved without a confirmed booking; the message must say so.
		c.Message = "Your payment could not be verified. If money was deducted it will be reconciled; please contact support before retrying."
		c.Recovery = RecoveryNone
	case FailureInvoice:
		c.Message = "Your booking is confirmed, but the invoice could not be generated yet."
		c.Recovery = RecoveryNone
	default:
		c.Message = "Something went wrong. Please try again."
		c.Recovery = RecoveryRetry
	}
	if strings.TrimSpace(detail) != "" {
		c.Message = detail
	}
	return c
}

// Sentinel errors used across the checkout flow.
var (
	ErrSessionExpired    = errors.New("session expired")
	ErrAlreadyProcessing = errors.New("a checkout attempt is already in progress")
	ErrGatewayNotOpen    = errors.New("no open gateway checkout for this attempt")
	ErrInvalidSignature  = errors.New("gateway payment signature mismatch")
	ErrNotConfirmed      = errors.New("attempt is not a confirmed booking")
	ErrForbidden         = errors.New("attempt belongs to another customer")
)

// ValidationError is the pre-network failure: a non-empty field->message map.
// No network call is ever made when this is returned.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field error(s)", len(v))
}

// OrderCreationError carries the reservations backend's message verbatim.
type OrderCreationError struct {
	Message string
}

func (e *OrderCreationError) Error() string {
	return "order creation failed: " + e.Message
}
