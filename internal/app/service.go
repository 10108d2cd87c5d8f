/**
 * @description
 * This file contains the core business logic for the checkout-service. The
 * `Service` struct composes the session guard, form validator, gateway
 * adapter, attempt store, reservations backend client, and event producer
 * into one linear checkout flow with well-defined exits:
 *
 *   Idle -> Validating -> CreatingOrder -> AwaitingGateway -> Verifying
 *        -> {Confirmed | Failed(kind) | TimedOut | SessionExpired}
 *
 * Key properties:
 * - No order-creation call happens unless validation returns no errors.
 * - At most one pending order is created per user-initiated submit; the
 *   processing flag plus singleflight coalescing guard resubmission.
 * - Every network step is sequential; nothing is issued concurrently for the
 *   same attempt.
 * - Verification success is the single authoritative confirmation signal;
 *   invoice issuance is best-effort and never moves a confirmed attempt.
 *
 * @dependencies
 * - github.com/google/uuid: Attempt identifiers.
 * - golang.org/x/sync/singleflight: Coalescing of concurrent duplicate submits.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/bookingclient, pkg/rabbitmq: External service communication.
 */

package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/stayfront/checkout-service/internal/domain"
	"github.com/stayfront/checkout-service/internal/store"
	"github.com/stayfront/checkout-service/pkg/bookingclient"
	"github.com/stayfront/checkout-service/pkg/rabbitmq"
)

// BookingAPI is the slice of the reservations backend client the checkout
// flow depends on.
type BookingAPI interface {
	CreateOrder(ctx context.Context, bearerToken string, req bookingclient.CreateOrderRequest) (*bookingclient.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, bearerToken string, req bookingclient.VerifyPaymentRequest) (*bookingclient.VerifyPaymentResponse, error)
	CreateInvoice(ctx context.Context, bearerToken string, req bookingclient.CreateInvoiceRequest) error
	ReportPaymentFailure(ctx context.Context, bearerToken string, req bookingclient.ReportFailureRequest) error
}

// Options carries the tunables the service is constructed with.
type Options struct {
	EventExchange       string
	Currency            string
	GatewayBound        time.Duration
	ProcessingTTL       time.Duration
	ConvenienceFeeMinor int64
}

// Service provides the checkout orchestration logic.
type Service struct {
	repo      store.Repository
	booking   BookingAPI
	gateway   *GatewayAdapter
	guard     *SessionGuard
	validator *FormValidator
	producer  rabbitmq.Publisher
	flag      ProcessingFlag
	fallback  *MemoryProcessingFlag
	inflight  singleflight.Group
	opts      Options
}

// NewService creates a new checkout service instance.
func NewService(repo store.Repository, booking BookingAPI, gateway *GatewayAdapter, guard *SessionGuard, producer rabbitmq.Publisher, flag ProcessingFlag, opts Options) *Service {
	if opts.GatewayBound <= 0 {
		opts.GatewayBound = 60 * time.Second
	}
	if opts.ProcessingTTL <= 0 {
		opts.ProcessingTTL = 2 * time.Minute
	}
	// The flag must outlive the longest possible gateway wait, or a second
	// submit could slip in and create a duplicate pending order mid-flight.
	if opts.ProcessingTTL < opts.GatewayBound+30*time.Second {
		opts.ProcessingTTL = opts.GatewayBound + 30*time.Second
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if flag == nil {
		flag = NewMemoryProcessingFlag()
	}
	return &Service{
		repo:      repo,
		booking:   booking,
		gateway:   gateway,
		guard:     guard,
		validator: NewFormValidator(),
		producer:  producer,
		flag:      flag,
		fallback:  NewMemoryProcessingFlag(),
		opts:      opts,
	}
}

// SubmitResult is returned once an attempt has reached the awaiting-gateway
// state: a snapshot of the attempt as persisted at that moment plus the widget
// configuration the client opens the payment gateway with. The background
// finalization mutates its own instance; later progress is observable via Done
// and the attempt store, never through Attempt.
type SubmitResult struct {
	Attempt  *domain.CheckoutAttempt
	Widget   WidgetConfig
	terminal chan *domain.CheckoutAttempt
}

// Done yields the attempt in its terminal state once the gateway outcome has
// been processed. It fires exactly once.
func (r *SubmitResult) Done() <-chan *domain.CheckoutAttempt {
	return r.terminal
}

// Submit runs the checkout flow for one user-initiated submission. It returns
// once the gateway handoff is open (or with a typed error for every earlier
// exit); verification and invoicing continue in the background and are
// observable via Done and the attempt store.
func (s *Service) Submit(ctx context.Context, session domain.Session, draft domain.CheckoutDraft) (*SubmitResult, error) {
	// Session first: an invalid session makes no network calls at all.
	sess, err := s.guard.Check(session)
	if err != nil {
		return nil, ErrSessionExpired
	}

	// Pure validation; a non-empty map blocks submission with no I/O.
	if fields := s.validator.ValidateDraft(draft); len(fields) > 0 {
		return nil, ValidationError(fields)
	}

	amount := domain.MinorUnits(draft.TotalPrice) + s.opts.ConvenienceFeeMinor
	if amount <= 0 {
		return nil, ValidationError{"total_price": "Total price must be greater than zero"}
	}

	draftKey := draftFingerprint(sess.CustomerID, draft)

	// Concurrent duplicate submits for the same draft share one attempt; a
	// second distinct submit while the flag is held is rejected.
	v, err, _ := s.inflight.Do(sess.CustomerID+":"+draftKey, func() (interface{}, error) {
		return s.beginAttempt(ctx, sess, draft, draftKey, amount)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SubmitResult), nil
}

// beginAttempt creates the attempt row and the pending order, opens the
// gateway handoff, and starts the background finalization.
func (s *Service) beginAttempt(ctx context.Context, sess domain.Session, draft domain.CheckoutDraft, draftKey string, amount int64) (*SubmitResult, error) {
	flag := s.flag
	held, err := flag.Acquire(ctx, sess.CustomerID, s.opts.ProcessingTTL)
	if err != nil {
		// Flag storage being down must not take checkout down with it; the
		// in-process guard still keeps this instance to one attempt per
		// customer while the shared store is unreachable.
		log.Printf("level=warn component=checkout msg=\"processing flag acquire failed; degrading to in-process guard\" customer_id=%s err=%v", sess.CustomerID, err)
		flag = s.fallback
		held, _ = flag.Acquire(ctx, sess.CustomerID, s.opts.ProcessingTTL)
	}
	if !held {
		return nil, ErrAlreadyProcessing
	}

	releaseOnExit := true
	defer func() {
		if releaseOnExit {
			if relErr := flag.Release(context.WithoutCancel(ctx), sess.CustomerID); relErr != nil {
				log.Printf("level=warn component=checkout msg=\"processing flag release failed\" customer_id=%s err=%v", sess.CustomerID, relErr)
			}
		}
	}()

	attempt := &domain.CheckoutAttempt{
		ID:            uuid.New(),
		CustomerID:    sess.CustomerID,
		DraftKey:      draftKey,
		PropertyID:    draft.PropertyID,
		RoomPackageID: draft.RoomPackageID,
		State:         domain.StateCreatingOrder,
		Amount:        amount,
		Currency:      s.opts.Currency,
		InvoiceStatus: domain.InvoiceNone,
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create checkout attempt: %w", err)
	}

	// Retries after cancellation or timeout abandon their stale siblings; the
	// shared draft key lets the backend void the superseded gateway orders.
	if n, err := s.repo.AbandonStaleAttempts(ctx, sess.CustomerID, draftKey, attempt.ID); err != nil {
		log.Printf("level=warn component=checkout msg=\"failed to abandon stale attempts\" customer_id=%s err=%v", sess.CustomerID, err)
	} else if n > 0 {
		log.Printf("level=info component=checkout msg=\"stale attempts abandoned\" customer_id=%s draft_key=%s count=%d", sess.CustomerID, draftKey, n)
	}

	orderResp, err := s.booking.CreateOrder(ctx, sess.Token, bookingclient.CreateOrderRequest{
		CustomerID:     sess.CustomerID,
		PropertyID:     draft.PropertyID,
		RoomPackageID:  draft.RoomPackageID,
		CheckIn:        draft.Dates.CheckIn.Format("2006-01-02"),
		CheckOut:       draft.Dates.CheckOut.Format("2006-01-02"),
		Adults:         draft.Party.Adults,
		Children:       draft.Party.Children,
		Amount:         amount,
		Currency:       s.opts.Currency,
		PaymentMethod:  draft.PaymentMethod,
		IdempotencyKey: draftKey,
	})
	if err != nil {
		if errors.Is(err, bookingclient.ErrUnauthorized) {
			// Session expired mid-flow: clear, record, and stop. No gateway is
			// ever opened and nothing is retried.
			c := Classify(FailureSessionExpired, "")
			s.markFailed(ctx, attempt, domain.StateSessionExpired, c)
			return nil, ErrSessionExpired
		}
		var apiErr *bookingclient.APIError
		message := Classify(FailureOrderCreation, "").Message
		if errors.As(err, &apiErr) {
			// The backend's message is surfaced to the traveler verbatim.
			message = apiErr.Message()
		}
		c := Classify(FailureOrderCreation, message)
		s.markFailed(ctx, attempt, domain.StateFailed, c)
		return nil, &OrderCreationError{Message: message}
	}

	order := domain.PendingOrder{
		BackendOrderID:   orderResp.Data.OrderID,
		GatewayOrderID:   orderResp.Data.GatewayOrderID,
		AmountMinorUnits: amount,
		Currency:         s.opts.Currency,
	}
	if err := s.repo.AttachPendingOrder(ctx, attempt.ID, order.BackendOrderID, order.GatewayOrderID, amount, s.opts.Currency); err != nil {
		log.Printf("level=error component=checkout msg=\"failed to attach pending order\" attempt_id=%s err=%v", attempt.ID, err)
	}
	attempt.State = domain.StateAwaitingGateway
	attempt.BackendOrderID = &order.BackendOrderID
	attempt.GatewayOrderID = &order.GatewayOrderID

	oc, widget := s.gateway.Open(order, prefillFor(draft))

	// The caller gets its own copy; the mutable attempt stays private to the
	// finalization goroutine so the response can be serialized while the
	// gateway outcome lands.
	snapshot := *attempt
	result := &SubmitResult{
		Attempt:  &snapshot,
		Widget:   widget,
		terminal: make(chan *domain.CheckoutAttempt, 1),
	}

	// The flag now belongs to the background finalization; it is released at
	// every terminal state.
	releaseOnExit = false
	go s.finalize(context.WithoutCancel(ctx), sess, draft, attempt, order, oc, flag, result)

	return result, nil
}

// finalize consumes the single gateway outcome and drives the attempt to its
// terminal state.
func (s *Service) finalize(ctx context.Context, sess domain.Session, draft domain.CheckoutDraft, attempt *domain.CheckoutAttempt, order domain.PendingOrder, oc *OpenCheckout, flag ProcessingFlag, result *SubmitResult) {
	defer func() {
		if err := flag.Release(ctx, sess.CustomerID); err != nil {
			log.Printf("level=warn component=checkout msg=\"processing flag release failed\" customer_id=%s err=%v", sess.CustomerID, err)
		}
		result.terminal <- attempt
	}()

	outcome := s.gateway.Await(ctx, oc, s.opts.GatewayBound)

	switch outcome.Kind {
	case domain.OutcomeCancelled:
		c := Classify(FailureGatewayCancelled, "")
		s.markFailed(ctx, attempt, domain.StateFailed, c)
		s.reportGatewayFailure(ctx, sess, order, "gateway_cancelled", "payment widget dismissed without completing")
		s.publishFailed(ctx, attempt, c)

	case domain.OutcomeTimedOut:
		c := Classify(FailureGatewayTimeout, "")
		s.markFailed(ctx, attempt, domain.StateTimedOut, c)
		s.publishFailed(ctx, attempt, c)

	case domain.OutcomeSuccess:
		s.verifyAndInvoice(ctx, sess, draft, attempt, order, outcome)
	}
}

// verifyAndInvoice runs the Verifying state: backend verification is the sole
// confirmation signal, then the invoice is issued best-effort.
func (s *Service) verifyAndInvoice(ctx context.Context, sess domain.Session, draft domain.CheckoutDraft, attempt *domain.CheckoutAttempt, order domain.PendingOrder, outcome domain.PaymentOutcome) {
	attempt.State = domain.StateVerifying
	if err := s.repo.UpdateAttemptState(ctx, attempt.ID, domain.StateVerifying); err != nil {
		log.Printf("level=error component=checkout msg=\"failed to record verifying state\" attempt_id=%s err=%v", attempt.ID, err)
	}

	verifyResp, err := s.booking.VerifyPayment(ctx, sess.Token, bookingclient.VerifyPaymentRequest{
		GatewayOrderID: order.GatewayOrderID,
		PaymentID:      outcome.PaymentID,
		Signature:      outcome.Signature,
	})
	if err != nil {
		if errors.Is(err, bookingclient.ErrUnauthorized) {
			c := Classify(FailureSessionExpired, "")
			s.markFailed(ctx, attempt, domain.StateSessionExpired, c)
			s.publishFailed(ctx, attempt, c)
			return
		}
		// The gateway reported success but the backend refused the proof:
		// money may have moved without a confirmed booking. Terminal, never
		// auto-retried, and worded distinctly from order-creation failures.
		c := Classify(FailureVerification, "")
		s.markFailed(ctx, attempt, domain.StateFailed, c)
		s.reportGatewayFailure(ctx, sess, order, "verification_failed", err.Error())
		s.publishFailed(ctx, attempt, c)
		return
	}

	verified := domain.VerifiedPayment{
		BackendOrderID: order.BackendOrderID,
		VerifiedAt:     verifyResp.Data.VerifiedAt,
	}
	if verified.VerifiedAt.IsZero() {
		verified.VerifiedAt = time.Now().UTC()
	}
	if err := s.repo.MarkAttemptConfirmed(ctx, attempt.ID, outcome.PaymentID, verified.VerifiedAt); err != nil {
		log.Printf("level=error component=checkout msg=\"failed to record confirmation\" attempt_id=%s err=%v", attempt.ID, err)
	}
	attempt.State = domain.StateConfirmed
	attempt.PaymentID = &outcome.PaymentID
	attempt.VerifiedAt = &verified.VerifiedAt
	log.Printf("level=info component=checkout msg=\"booking confirmed\" attempt_id=%s backend_order_id=%s payment_id=%s", attempt.ID, order.BackendOrderID, outcome.PaymentID)

	if s.producer != nil {
		event := domain.CheckoutConfirmedEvent{
			AttemptID:      attempt.ID,
			CustomerID:     attempt.CustomerID,
			BackendOrderID: verified.BackendOrderID,
			Amount:         attempt.Amount,
			Currency:       attempt.Currency,
			VerifiedAt:     verified.VerifiedAt,
		}
		if err := s.producer.Publish(ctx, s.opts.EventExchange, "checkout.confirmed", event); err != nil {
			log.Printf("level=warn component=checkout msg=\"failed to publish confirmed event\" attempt_id=%s err=%v", attempt.ID, err)
		}
	}

	// Invoice issuance is deliberately asymmetric: its failure is logged and
	// recorded but never moves the attempt away from confirmed.
	if err := s.issueInvoice(ctx, sess, attempt, order.BackendOrderID, primaryGuest(draft), draft.Billing); err != nil {
		log.Printf("level=warn component=checkout msg=\"invoice generation failed; booking remains confirmed\" attempt_id=%s err=%v", attempt.ID, err)
	}
}

// issueInvoice asks the backend for a billing document and records the
// outcome on the attempt.
func (s *Service) issueInvoice(ctx context.Context, sess domain.Session, attempt *domain.CheckoutAttempt, backendOrderID string, guest domain.GuestDetails, billing domain.BillingInfo) error {
	var gst *string
	if strings.TrimSpace(billing.GSTNumber) != "" {
		g := strings.TrimSpace(billing.GSTNumber)
		gst = &g
	}
	billingName := strings.TrimSpace(guest.Title + " " + guest.FirstName + " " + guest.LastName)
	billingPhone := billing.PhoneCountryCode + billing.PhoneNumber

	err := s.booking.CreateInvoice(ctx, sess.Token, bookingclient.CreateInvoiceRequest{
		OrderID:        backendOrderID,
		BillingName:    billingName,
		BillingEmail:   billing.Email,
		BillingPhone:   billingPhone,
		BillingAddress: billing.Address,
		GSTNumber:      gst,
		Notes:          "Checkout attempt " + attempt.ID.String(),
	})
	if err != nil {
		attempt.InvoiceStatus = domain.InvoiceFailed
		if repoErr := s.repo.SetInvoiceStatus(ctx, attempt.ID, domain.InvoiceFailed); repoErr != nil {
			log.Printf("level=error component=checkout msg=\"failed to record invoice status\" attempt_id=%s err=%v", attempt.ID, repoErr)
		}
		return err
	}

	attempt.InvoiceStatus = domain.InvoiceIssued
	if repoErr := s.repo.SetInvoiceStatus(ctx, attempt.ID, domain.InvoiceIssued); repoErr != nil {
		log.Printf("level=error component=checkout msg=\"failed to record invoice status\" attempt_id=%s err=%v", attempt.ID, repoErr)
	}
	record := &domain.Invoice{
		ID:             uuid.New(),
		AttemptID:      attempt.ID,
		BackendOrderID: backendOrderID,
		BillingName:    billingName,
		BillingEmail:   billing.Email,
		BillingPhone:   billingPhone,
		BillingAddress: billing.Address,
		GSTNumber:      gst,
		Notes:          "Checkout attempt " + attempt.ID.String(),
	}
	if repoErr := s.repo.CreateInvoiceRecord(ctx, record); repoErr != nil {
		log.Printf("level=warn component=checkout msg=\"failed to store invoice record\" attempt_id=%s err=%v", attempt.ID, repoErr)
	}
	return nil
}

// ReissueInvoice regenerates the invoice for a confirmed attempt whose
// original issuance failed. The "my bookings" surface calls this on demand.
func (s *Service) ReissueInvoice(ctx context.Context, session domain.Session, attemptID uuid.UUID, guest domain.GuestDetails, billing domain.BillingInfo) error {
	sess, err := s.guard.Check(session)
	if err != nil {
		return ErrSessionExpired
	}
	attempt, err := s.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.CustomerID != sess.CustomerID {
		return ErrForbidden
	}
	if attempt.State != domain.StateConfirmed || attempt.BackendOrderID == nil {
		return ErrNotConfirmed
	}
	return s.issueInvoice(ctx, sess, attempt, *attempt.BackendOrderID, guest, billing)
}

// CompleteGateway resolves an open gateway handoff as a successful payment.
// Called by the gateway's completion callback.
func (s *Service) CompleteGateway(ctx context.Context, attemptID uuid.UUID, paymentID, signature string) error {
	attempt, err := s.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.GatewayOrderID == nil {
		return ErrGatewayNotOpen
	}
	if !s.gateway.VerifySignature(*attempt.GatewayOrderID, paymentID, signature) {
		return ErrInvalidSignature
	}
	if !s.gateway.Complete(*attempt.GatewayOrderID, paymentID, signature) {
		return ErrGatewayNotOpen
	}
	return nil
}

// CompleteByGatewayOrder resolves an open handoff from the gateway's
// server-side webhook, which identifies the payment by gateway order id. The
// signature is the sole authentication on this path.
func (s *Service) CompleteByGatewayOrder(ctx context.Context, gatewayOrderID, paymentID, signature string) error {
	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		return ErrInvalidSignature
	}
	if _, err := s.repo.FindAttemptByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return err
	}
	if !s.gateway.Complete(gatewayOrderID, paymentID, signature) {
		return ErrGatewayNotOpen
	}
	return nil
}

// DismissGateway resolves an open gateway handoff as cancelled by the
// traveler. Called by the gateway's dismissal callback.
func (s *Service) DismissGateway(ctx context.Context, attemptID uuid.UUID) error {
	attempt, err := s.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.GatewayOrderID == nil {
		return ErrGatewayNotOpen
	}
	if !s.gateway.Dismiss(*attempt.GatewayOrderID) {
		return ErrGatewayNotOpen
	}
	return nil
}

// GetAttempt returns one of the customer's attempts.
func (s *Service) GetAttempt(ctx context.Context, customerID string, attemptID uuid.UUID) (*domain.CheckoutAttempt, error) {
	attempt, err := s.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return attempt, nil
}

// ListAttempts returns the customer's attempt history, newest first.
func (s *Service) ListAttempts(ctx context.Context, customerID string, limit, offset int) ([]domain.CheckoutAttempt, error) {
	return s.repo.ListAttemptsByCustomer(ctx, customerID, limit, offset)
}

// markFailed records a terminal failure state and mirrors it on the in-memory
// attempt.
func (s *Service) markFailed(ctx context.Context, attempt *domain.CheckoutAttempt, state domain.AttemptState, c Classification) {
	attempt.State = state
	kind := string(c.Kind)
	attempt.FailureKind = &kind
	attempt.FailureMessage = &c.Message
	if err := s.repo.MarkAttemptFailed(ctx, attempt.ID, state, kind, c.Message); err != nil {
		log.Printf("level=error component=checkout msg=\"failed to record failure state\" attempt_id=%s state=%s err=%v", attempt.ID, state, err)
	}
}

// reportGatewayFailure forwards a gateway failure for backend bookkeeping.
// Its own failure is never surfaced to the traveler.
func (s *Service) reportGatewayFailure(ctx context.Context, sess domain.Session, order domain.PendingOrder, code, message string) {
	err := s.booking.ReportPaymentFailure(ctx, sess.Token, bookingclient.ReportFailureRequest{
		OrderID:      order.BackendOrderID,
		ErrorCode:    code,
		ErrorMessage: message,
	})
	if err != nil {
		log.Printf("level=warn component=checkout msg=\"failure report not delivered\" backend_order_id=%s code=%s err=%v", order.BackendOrderID, code, err)
	}
}

// publishFailed emits a terminal failure event for downstream bookkeeping.
func (s *Service) publishFailed(ctx context.Context, attempt *domain.CheckoutAttempt, c Classification) {
	if s.producer == nil {
		return
	}
	event := domain.CheckoutFailedEvent{
		AttemptID:   attempt.ID,
		CustomerID:  attempt.CustomerID,
		FailureKind: string(c.Kind),
		Reason:      c.Message,
		Amount:      attempt.Amount,
		Currency:    attempt.Currency,
		OccurredAt:  time.Now().UTC(),
	}
	routingKey := "checkout.failed." + string(c.Kind)
	if err := s.producer.Publish(ctx, s.opts.EventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=checkout msg=\"failed to publish failure event\" attempt_id=%s err=%v", attempt.ID, err)
	}
}

// prefillFor builds the widget's prefill contact fields from the draft.
func prefillFor(draft domain.CheckoutDraft) Prefill {
	guest := primaryGuest(draft)
	return Prefill{
		Name:  strings.TrimSpace(guest.FirstName + " " + guest.LastName),
		Email: draft.Billing.Email,
		Phone: draft.Billing.PhoneCountryCode + draft.Billing.PhoneNumber,
	}
}

func primaryGuest(draft domain.CheckoutDraft) domain.GuestDetails {
	if len(draft.Guests) == 0 {
		return domain.GuestDetails{}
	}
	return draft.Guests[0]
}

// draftFingerprint derives the idempotency key shared by every attempt at the
// same draft, so superseded pending orders can be reconciled by the backend.
func draftFingerprint(customerID string, draft domain.CheckoutDraft) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d|%d|%.2f",
		customerID,
		draft.PropertyID,
		draft.RoomPackageID,
		draft.Dates.CheckIn.Format("2006-01-02"),
		draft.Dates.CheckOut.Format("2006-01-02"),
		draft.Party.Adults,
		draft.Party.Children,
		draft.TotalPrice,
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
