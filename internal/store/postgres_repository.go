/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains the SQL for the `checkout_attempts` and `invoices`
 * tables that back the checkout flow and the "my bookings" surface.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayfront/checkout-service/internal/domain"
)

var (
	ErrAttemptNotFound = errors.New("checkout attempt not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const attemptColumns = `
	id, customer_id, draft_key, property_id, room_package_id, state,
	failure_kind, failure_message, backend_order_id, gateway_order_id,
	payment_id, amount, currency, invoice_status, verified_at,
	created_at, updated_at`

func scanAttempt(row pgx.Row) (*domain.CheckoutAttempt, error) {
	var a domain.CheckoutAttempt
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.DraftKey, &a.PropertyID, &a.RoomPackageID, &a.State,
		&a.FailureKind, &a.FailureMessage, &a.BackendOrderID, &a.GatewayOrderID,
		&a.PaymentID, &a.Amount, &a.Currency, &a.InvoiceStatus, &a.VerifiedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAttempt inserts a new checkout attempt row.
func (r *PostgresRepository) CreateAttempt(ctx context.Context, attempt *domain.CheckoutAttempt) error {
	query := `
		INSERT INTO checkout_attempts (
			id, customer_id, draft_key, property_id, room_package_id, state,
			amount, currency, invoice_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`
	_, err := r.db.Exec(ctx, query,
		attempt.ID, attempt.CustomerID, attempt.DraftKey, attempt.PropertyID,
		attempt.RoomPackageID, attempt.State, attempt.Amount, attempt.Currency,
		attempt.InvoiceStatus,
	)
	return err
}

// AttachPendingOrder records the backend and gateway order identifiers on an
// attempt and moves it to the awaiting-gateway state.
func (r *PostgresRepository) AttachPendingOrder(ctx context.Context, attemptID uuid.UUID, backendOrderID, gatewayOrderID string, amount int64, currency string) error {
	query := `
		UPDATE checkout_attempts
		SET backend_order_id = $2, gateway_order_id = $3, amount = $4, currency = $5,
		    state = $6, updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, attemptID, backendOrderID, gatewayOrderID, amount, currency, domain.StateAwaitingGateway)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// UpdateAttemptState moves an attempt to a new state.
func (r *PostgresRepository) UpdateAttemptState(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState) error {
	query := `UPDATE checkout_attempts SET state = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, attemptID, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// MarkAttemptFailed records a terminal failure state with its classification.
func (r *PostgresRepository) MarkAttemptFailed(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState, failureKind, failureMessage string) error {
	query := `
		UPDATE checkout_attempts
		SET state = $2, failure_kind = $3, failure_message = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, attemptID, state, failureKind, failureMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// MarkAttemptConfirmed records a verified payment. This is the only path into
// the confirmed state.
func (r *PostgresRepository) MarkAttemptConfirmed(ctx context.Context, attemptID uuid.UUID, paymentID string, verifiedAt time.Time) error {
	query := `
		UPDATE checkout_attempts
		SET state = $2, payment_id = $3, verified_at = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, attemptID, domain.StateConfirmed, paymentID, verifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// SetInvoiceStatus records the best-effort invoice outcome without touching
// the attempt's state.
func (r *PostgresRepository) SetInvoiceStatus(ctx context.Context, attemptID uuid.UUID, status domain.InvoiceStatus) error {
	query := `UPDATE checkout_attempts SET invoice_status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, attemptID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// AbandonStaleAttempts closes out earlier non-terminal attempts for the same
// draft so retries never reuse a previous pending order.
func (r *PostgresRepository) AbandonStaleAttempts(ctx context.Context, customerID, draftKey string, before uuid.UUID) (int64, error) {
	query := `
		UPDATE checkout_attempts
		SET state = $4, updated_at = now()
		WHERE customer_id = $1 AND draft_key = $2 AND id <> $3
		  AND state IN ($5, $6, $7)`
	tag, err := r.db.Exec(ctx, query, customerID, draftKey, before, domain.StateAbandoned,
		domain.StateCreatingOrder, domain.StateAwaitingGateway, domain.StateVerifying)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindAttemptByID retrieves one attempt.
func (r *PostgresRepository) FindAttemptByID(ctx context.Context, attemptID uuid.UUID) (*domain.CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE id = $1`
	return scanAttempt(r.db.QueryRow(ctx, query, attemptID))
}

// FindAttemptByGatewayOrderID retrieves the attempt a gateway callback refers to.
func (r *PostgresRepository) FindAttemptByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE gateway_order_id = $1`
	return scanAttempt(r.db.QueryRow(ctx, query, gatewayOrderID))
}

// ListAttemptsByCustomer returns a customer's attempts, newest first.
func (r *PostgresRepository) ListAttemptsByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.CheckoutAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + attemptColumns + `
		FROM checkout_attempts
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.CheckoutAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CreateInvoiceRecord stores the local record of an issued invoice.
func (r *PostgresRepository) CreateInvoiceRecord(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, attempt_id, backend_order_id, billing_name, billing_email,
			billing_phone, billing_address, gst_number, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`
	_, err := r.db.Exec(ctx, query,
		invoice.ID, invoice.AttemptID, invoice.BackendOrderID, invoice.BillingName,
		invoice.BillingEmail, invoice.BillingPhone, invoice.BillingAddress,
		invoice.GSTNumber, invoice.Notes,
	)
	return err
}
