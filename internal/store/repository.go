/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the checkout-service. Defining an
 * interface decouples the orchestration logic from the PostgreSQL
 * implementation and lets tests stub exactly the calls a scenario needs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For attempt identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stayfront/checkout-service/internal/domain"
)

// Repository defines the set of methods for persisting checkout attempts and
// invoices.
type Repository interface {
	// Attempt lifecycle
	CreateAttempt(ctx context.Context, attempt *domain.CheckoutAttempt) error
	AttachPendingOrder(ctx context.Context, attemptID uuid.UUID, backendOrderID, gatewayOrderID string, amount int64, currency string) error
	UpdateAttemptState(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState) error
	MarkAttemptFailed(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState, failureKind, failureMessage string) error
	MarkAttemptConfirmed(ctx context.Context, attemptID uuid.UUID, paymentID string, verifiedAt time.Time) error
	SetInvoiceStatus(ctx context.Context, attemptID uuid.UUID, status domain.InvoiceStatus) error
	// Stale siblings of a retried draft are closed out rather than reused; a
	// fresh pending order is created for every attempt.
	AbandonStaleAttempts(ctx context.Context, customerID, draftKey string, before uuid.UUID) (int64, error)

	// Reads
	FindAttemptByID(ctx context.Context, attemptID uuid.UUID) (*domain.CheckoutAttempt, error)
	FindAttemptByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.CheckoutAttempt, error)
	ListAttemptsByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.CheckoutAttempt, error)

	// Invoices
	CreateInvoiceRecord(ctx context.Context, invoice *domain.Invoice) error
}
