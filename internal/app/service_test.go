package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stayfront/checkout-service/internal/domain"
	"github.com/stayfront/checkout-service/internal/store"
	"github.com/stayfront/checkout-service/pkg/bookingclient"
)

type serviceRepoStub struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*domain.CheckoutAttempt
	invoices []*domain.Invoice
	order    []uuid.UUID

	abandonCalls int
}

func newServiceRepoStub() *serviceRepoStub {
	return &serviceRepoStub{attempts: map[uuid.UUID]*domain.CheckoutAttempt{}}
}

func (s *serviceRepoStub) CreateAttempt(ctx context.Context, attempt *domain.CheckoutAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *attempt
	s.attempts[attempt.ID] = &copied
	s.order = append(s.order, attempt.ID)
	return nil
}

func (s *serviceRepoStub) AttachPendingOrder(ctx context.Context, attemptID uuid.UUID, backendOrderID, gatewayOrderID string, amount int64, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return store.ErrAttemptNotFound
	}
	a.BackendOrderID = &backendOrderID
	a.GatewayOrderID = &gatewayOrderID
	a.Amount = amount
	a.Currency = currency
	a.State = domain.StateAwaitingGateway
	return nil
}

func (s *serviceRepoStub) UpdateAttemptState(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return store.ErrAttemptNotFound
	}
	a.State = state
	return nil
}

func (s *serviceRepoStub) MarkAttemptFailed(ctx context.Context, attemptID uuid.UUID, state domain.AttemptState, failureKind, failureMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return store.ErrAttemptNotFound
	}
	a.State = state
	a.FailureKind = &failureKind
	a.FailureMessage = &failureMessage
	return nil
}

func (s *serviceRepoStub) MarkAttemptConfirmed(ctx context.Context, attemptID uuid.UUID, paymentID string, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return store.ErrAttemptNotFound
	}
	a.State = domain.StateConfirmed
	a.PaymentID = &paymentID
	a.VerifiedAt = &verifiedAt
	return nil
}

func (s *serviceRepoStub) SetInvoiceStatus(ctx context.Context, attemptID uuid.UUID, status domain.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return store.ErrAttemptNotFound
	}
	a.InvoiceStatus = status
	return nil
}

func (s *serviceRepoStub) AbandonStaleAttempts(ctx context.Context, customerID, draftKey string, before uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandonCalls++
	var n int64
	for _, a := range s.attempts {
		if a.ID == before || a.CustomerID != customerID || a.DraftKey != draftKey {
			continue
		}
		switch a.State {
		case domain.StateCreatingOrder, domain.StateAwaitingGateway, domain.StateVerifying:
			a.State = domain.StateAbandoned
			n++
		}
	}
	return n, nil
}

func (s *serviceRepoStub) FindAttemptByID(ctx context.Context, attemptID uuid.UUID) (*domain.CheckoutAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, store.ErrAttemptNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *serviceRepoStub) FindAttemptByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.CheckoutAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.GatewayOrderID != nil && *a.GatewayOrderID == gatewayOrderID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, store.ErrAttemptNotFound
}

func (s *serviceRepoStub) ListAttemptsByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.CheckoutAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CheckoutAttempt
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.attempts[s.order[i]]
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *serviceRepoStub) CreateInvoiceRecord(ctx context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *invoice
	s.invoices = append(s.invoices, &copied)
	return nil
}

func (s *serviceRepoStub) attempt(t *testing.T, id uuid.UUID) domain.CheckoutAttempt {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		t.Fatalf("attempt %s not in store", id)
	}
	return *a
}

type bookingStub struct {
	mu sync.Mutex

	createOrderErr error
	verifyErr      error
	invoiceErr     error

	createOrderCalls int
	verifyCalls      int
	invoiceCalls     int
	reportedCodes    []string

	lastOrderReq bookingclient.CreateOrderRequest
}

func (b *bookingStub) CreateOrder(ctx context.Context, bearerToken string, req bookingclient.CreateOrderRequest) (*bookingclient.CreateOrderResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createOrderCalls++
	b.lastOrderReq = req
	if b.createOrderErr != nil {
		return nil, b.createOrderErr
	}
	resp := &bookingclient.CreateOrderResponse{}
	resp.Data.OrderID = fmt.Sprintf("order_%d", b.createOrderCalls)
	resp.Data.GatewayOrderID = fmt.Sprintf("gw_%d", b.createOrderCalls)
	resp.Data.Amount = req.Amount
	resp.Data.Currency = req.Currency
	return resp, nil
}

func (b *bookingStub) VerifyPayment(ctx context.Context, bearerToken string, req bookingclient.VerifyPaymentRequest) (*bookingclient.VerifyPaymentResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyCalls++
	if b.verifyErr != nil {
		return nil, b.verifyErr
	}
	resp := &bookingclient.VerifyPaymentResponse{}
	resp.Data.OrderID = "order_1"
	resp.Data.Status = "captured"
	resp.Data.VerifiedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return resp, nil
}

func (b *bookingStub) CreateInvoice(ctx context.Context, bearerToken string, req bookingclient.CreateInvoiceRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoiceCalls++
	return b.invoiceErr
}

func (b *bookingStub) ReportPaymentFailure(ctx context.Context, bearerToken string, req bookingclient.ReportFailureRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reportedCodes = append(b.reportedCodes, req.ErrorCode)
	return nil
}

func (b *bookingStub) snapshot() (createOrder, verify, invoice int, reported []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createOrderCalls, b.verifyCalls, b.invoiceCalls, append([]string(nil), b.reportedCodes...)
}

type producerStub struct {
	mu        sync.Mutex
	published []string
}

func (p *producerStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, routingKey)
	return nil
}

func (p *producerStub) Close() {}

func (p *producerStub) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

type testEnv struct {
	service  *Service
	repo     *serviceRepoStub
	booking  *bookingStub
	producer *producerStub
	gateway  *GatewayAdapter
	session  domain.Session
}

func newTestEnv(t *testing.T, gatewayBound time.Duration) *testEnv {
	t.Helper()
	repo := newServiceRepoStub()
	booking := &bookingStub{}
	producer := &producerStub{}
	gateway := NewGatewayAdapter("pk_test", "whsec_test")
	guard := NewSessionGuard(testSigningSecret)

	svc := NewService(repo, booking, gateway, guard, producer, NewMemoryProcessingFlag(), Options{
		EventExchange: "stayfront.events",
		Currency:      "INR",
		GatewayBound:  gatewayBound,
		ProcessingTTL: time.Minute,
	})

	token := signedToken(t, testSigningSecret, "cust_42", time.Hour, time.Now())
	return &testEnv{
		service:  svc,
		repo:     repo,
		booking:  booking,
		producer: producer,
		gateway:  gateway,
		session:  domain.Session{Token: token},
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestSubmitHappyPathConfirmsAndInvoices(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if result.Attempt.State != domain.StateAwaitingGateway {
		t.Fatalf("expected awaiting_gateway after submit, got %s", result.Attempt.State)
	}
	if result.Widget.OrderID != *result.Attempt.GatewayOrderID {
		t.Fatalf("widget order id %q does not match attempt %q", result.Widget.OrderID, *result.Attempt.GatewayOrderID)
	}
	if result.Widget.Amount != domain.MinorUnits(12500.00) {
		t.Fatalf("expected widget amount in minor units, got %d", result.Widget.Amount)
	}

	sig := env.gateway.Signature(*result.Attempt.GatewayOrderID, "pay_1")
	if err := env.service.CompleteGateway(ctx, result.Attempt.ID, "pay_1", sig); err != nil {
		t.Fatalf("expected completion callback to be accepted, got %v", err)
	}

	final := <-result.Done()
	if final.State != domain.StateConfirmed {
		t.Fatalf("expected confirmed, got %s", final.State)
	}
	if final.PaymentID == nil || *final.PaymentID != "pay_1" {
		t.Fatalf("expected payment id on confirmed attempt, got %v", final.PaymentID)
	}
	if final.InvoiceStatus != domain.InvoiceIssued {
		t.Fatalf("expected invoice issued, got %s", final.InvoiceStatus)
	}

	stored := env.repo.attempt(t, final.ID)
	if stored.State != domain.StateConfirmed || stored.VerifiedAt == nil {
		t.Fatalf("expected confirmed attempt persisted, got %+v", stored)
	}

	createOrder, verify, invoice, _ := env.booking.snapshot()
	if createOrder != 1 || verify != 1 || invoice != 1 {
		t.Fatalf("expected one call each, got create=%d verify=%d invoice=%d", createOrder, verify, invoice)
	}
	if !contains(env.producer.keys(), "checkout.confirmed") {
		t.Fatalf("expected confirmed event, got %v", env.producer.keys())
	}

	// The processing flag is released at the terminal state; a fresh submit
	// is allowed again.
	if _, err := env.service.Submit(ctx, env.session, validDraft()); err != nil {
		t.Fatalf("expected resubmission after terminal state, got %v", err)
	}
}

func TestSubmitBlocksOnValidationWithoutNetwork(t *testing.T) {
	env := newTestEnv(t, time.Second)
	draft := validDraft()
	draft.Billing.Email = "not-an-email"
	draft.PolicyAccepted = false

	_, err := env.service.Submit(context.Background(), env.session, draft)
	var fieldErrs ValidationError
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := fieldErrs["email"]; !ok {
		t.Fatalf("expected email error, got %v", fieldErrs)
	}
	if _, ok := fieldErrs["policy"]; !ok {
		t.Fatalf("expected policy error, got %v", fieldErrs)
	}

	createOrder, _, _, _ := env.booking.snapshot()
	if createOrder != 0 {
		t.Fatalf("expected no order creation on validation failure, got %d calls", createOrder)
	}
}

func TestSubmitRejectsExpiredSessionBeforeAnyCall(t *testing.T) {
	env := newTestEnv(t, time.Second)
	expired := signedToken(t, testSigningSecret, "cust_42", -time.Minute, time.Now())

	_, err := env.service.Submit(context.Background(), domain.Session{Token: expired}, validDraft())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	createOrder, _, _, _ := env.booking.snapshot()
	if createOrder != 0 {
		t.Fatalf("expected no network calls with an expired session, got %d", createOrder)
	}
}

func TestSubmitSessionExpiryDuringOrderCreation(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.booking.createOrderErr = bookingclient.ErrUnauthorized

	_, err := env.service.Submit(context.Background(), env.session, validDraft())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	attempts, _ := env.repo.ListAttemptsByCustomer(context.Background(), "cust_42", 10, 0)
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt recorded, got %d", len(attempts))
	}
	if attempts[0].State != domain.StateSessionExpired {
		t.Fatalf("expected session_expired state, got %s", attempts[0].State)
	}

	// Flag released: a fresh submit with a valid session proceeds.
	env.booking.createOrderErr = nil
	if _, err := env.service.Submit(context.Background(), env.session, validDraft()); err != nil {
		t.Fatalf("expected submit after expiry exit, got %v", err)
	}
}

func TestSubmitSurfacesBackendOrderMessageVerbatim(t *testing.T) {
	env := newTestEnv(t, time.Second)
	apiErr := &bookingclient.APIError{StatusCode: 409}
	apiErr.Errors = append(apiErr.Errors, struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	}{Title: "Room unavailable", Detail: "Selected room is no longer available for these dates"})
	env.booking.createOrderErr = apiErr

	_, err := env.service.Submit(context.Background(), env.session, validDraft())
	var orderErr *OrderCreationError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected OrderCreationError, got %v", err)
	}
	if orderErr.Message != "Selected room is no longer available for these dates" {
		t.Fatalf("expected backend message verbatim, got %q", orderErr.Message)
	}

	attempts, _ := env.repo.ListAttemptsByCustomer(context.Background(), "cust_42", 10, 0)
	if attempts[0].State != domain.StateFailed {
		t.Fatalf("expected failed state, got %s", attempts[0].State)
	}
	if attempts[0].FailureKind == nil || *attempts[0].FailureKind != string(FailureOrderCreation) {
		t.Fatalf("expected order_creation_failed kind, got %v", attempts[0].FailureKind)
	}
}

func TestDismissCancelsAttempt(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if err := env.service.DismissGateway(ctx, result.Attempt.ID); err != nil {
		t.Fatalf("expected dismissal to be accepted, got %v", err)
	}

	final := <-result.Done()
	if final.State != domain.StateFailed {
		t.Fatalf("expected failed state, got %s", final.State)
	}
	if final.FailureKind == nil || *final.FailureKind != string(FailureGatewayCancelled) {
		t.Fatalf("expected gateway_cancelled kind, got %v", final.FailureKind)
	}

	_, verify, _, reported := env.booking.snapshot()
	if verify != 0 {
		t.Fatalf("expected no verification after cancel, got %d", verify)
	}
	if !contains(reported, "gateway_cancelled") {
		t.Fatalf("expected cancellation reported to backend, got %v", reported)
	}
	if !contains(env.producer.keys(), "checkout.failed.gateway_cancelled") {
		t.Fatalf("expected failure event, got %v", env.producer.keys())
	}
}

func TestWatchdogTimesOutSilentGateway(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	final := <-result.Done()
	if final.State != domain.StateTimedOut {
		t.Fatalf("expected timed_out state, got %s", final.State)
	}
	if final.FailureKind == nil || *final.FailureKind != string(FailureGatewayTimeout) {
		t.Fatalf("expected gateway_timeout kind, got %v", final.FailureKind)
	}

	// A completion arriving after the watchdog fired is dropped.
	sig := env.gateway.Signature(*result.Attempt.GatewayOrderID, "pay_late")
	if err := env.service.CompleteGateway(ctx, result.Attempt.ID, "pay_late", sig); !errors.Is(err, ErrGatewayNotOpen) {
		t.Fatalf("expected late completion to be rejected, got %v", err)
	}

	_, verify, _, _ := env.booking.snapshot()
	if verify != 0 {
		t.Fatalf("expected no verification after timeout, got %d", verify)
	}
	if !contains(env.producer.keys(), "checkout.failed.gateway_timeout") {
		t.Fatalf("expected timeout event, got %v", env.producer.keys())
	}
}

func TestVerificationFailureIsTerminalAndDistinct(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	env.booking.verifyErr = &bookingclient.APIError{StatusCode: 400}
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	sig := env.gateway.Signature(*result.Attempt.GatewayOrderID, "pay_1")
	if err := env.service.CompleteGateway(ctx, result.Attempt.ID, "pay_1", sig); err != nil {
		t.Fatalf("expected completion to be accepted, got %v", err)
	}

	final := <-result.Done()
	if final.State != domain.StateFailed {
		t.Fatalf("expected failed state, got %s", final.State)
	}
	if final.FailureKind == nil || *final.FailureKind != string(FailureVerification) {
		t.Fatalf("expected verification_failed kind, got %v", final.FailureKind)
	}
	if final.FailureMessage == nil || *final.FailureMessage == Classify(FailureOrderCreation, "").Message {
		t.Fatal("verification failure must not reuse the order-creation wording")
	}

	_, _, invoice, reported := env.booking.snapshot()
	if invoice != 0 {
		t.Fatalf("expected no invoice after failed verification, got %d", invoice)
	}
	if !contains(reported, "verification_failed") {
		t.Fatalf("expected verification failure reported, got %v", reported)
	}
	if !contains(env.producer.keys(), "checkout.failed.verification_failed") {
		t.Fatalf("expected failure event, got %v", env.producer.keys())
	}
}

func TestInvoiceFailureLeavesBookingConfirmed(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	env.booking.invoiceErr = &bookingclient.APIError{StatusCode: 500}
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	sig := env.gateway.Signature(*result.Attempt.GatewayOrderID, "pay_1")
	if err := env.service.CompleteGateway(ctx, result.Attempt.ID, "pay_1", sig); err != nil {
		t.Fatalf("expected completion to be accepted, got %v", err)
	}

	final := <-result.Done()
	if final.State != domain.StateConfirmed {
		t.Fatalf("invoice failure must not demote a confirmed booking, got %s", final.State)
	}
	if final.InvoiceStatus != domain.InvoiceFailed {
		t.Fatalf("expected invoice_failed status, got %s", final.InvoiceStatus)
	}

	// Regeneration succeeds once the backend recovers.
	env.booking.mu.Lock()
	env.booking.invoiceErr = nil
	env.booking.mu.Unlock()

	draft := validDraft()
	if err := env.service.ReissueInvoice(ctx, env.session, final.ID, draft.Guests[0], draft.Billing); err != nil {
		t.Fatalf("expected reissue to succeed, got %v", err)
	}
	stored := env.repo.attempt(t, final.ID)
	if stored.InvoiceStatus != domain.InvoiceIssued {
		t.Fatalf("expected invoice issued after reissue, got %s", stored.InvoiceStatus)
	}
}

func TestReissueInvoiceRequiresConfirmedAttempt(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	<-result.Done() // times out

	draft := validDraft()
	err = env.service.ReissueInvoice(ctx, env.session, result.Attempt.ID, draft.Guests[0], draft.Billing)
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestSecondSubmitWhileProcessingIsRejected(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	first, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected first submit to succeed, got %v", err)
	}

	other := validDraft()
	other.RoomPackageID = "pkg_suite"
	if _, err := env.service.Submit(ctx, env.session, other); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
	}

	createOrder, _, _, _ := env.booking.snapshot()
	if createOrder != 1 {
		t.Fatalf("expected a single pending order, got %d", createOrder)
	}

	if err := env.service.DismissGateway(ctx, first.Attempt.ID); err != nil {
		t.Fatalf("expected dismissal, got %v", err)
	}
	<-first.Done()
}

func TestRetryAfterCancelAbandonsStaleAttempt(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	first, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected first submit to succeed, got %v", err)
	}
	if err := env.service.DismissGateway(ctx, first.Attempt.ID); err != nil {
		t.Fatalf("expected dismissal, got %v", err)
	}
	<-first.Done()

	second, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if second.Attempt.ID == first.Attempt.ID {
		t.Fatal("retry must create a fresh attempt")
	}
	if second.Attempt.DraftKey != first.Attempt.DraftKey {
		t.Fatal("retries at the same draft must share the idempotency key")
	}
	if *second.Attempt.GatewayOrderID == *first.Attempt.GatewayOrderID {
		t.Fatal("retry must carry a fresh pending order")
	}

	if err := env.service.DismissGateway(ctx, second.Attempt.ID); err != nil {
		t.Fatalf("expected dismissal of retry, got %v", err)
	}
	<-second.Done()
}

func TestCompleteGatewayRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	err = env.service.CompleteGateway(ctx, result.Attempt.ID, "pay_1", "forged")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// The attempt is still live; a genuine dismissal closes it.
	if err := env.service.DismissGateway(ctx, result.Attempt.ID); err != nil {
		t.Fatalf("expected dismissal, got %v", err)
	}
	<-result.Done()
}

func TestGetAttemptEnforcesOwnership(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	<-result.Done()

	if _, err := env.service.GetAttempt(ctx, "cust_42", result.Attempt.ID); err != nil {
		t.Fatalf("expected owner to read the attempt, got %v", err)
	}
	if _, err := env.service.GetAttempt(ctx, "cust_other", result.Attempt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another customer, got %v", err)
	}
	if _, err := env.service.GetAttempt(ctx, "cust_42", uuid.New()); !errors.Is(err, store.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestSubmitSendsMinorUnitsAndIdempotencyKey(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	ctx := context.Background()

	draft := validDraft()
	draft.TotalPrice = 4999.99
	result, err := env.service.Submit(ctx, env.session, draft)
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	<-result.Done()

	env.booking.mu.Lock()
	req := env.booking.lastOrderReq
	env.booking.mu.Unlock()

	if req.Amount != 499999 {
		t.Fatalf("expected 499999 minor units, got %d", req.Amount)
	}
	if req.IdempotencyKey == "" || req.IdempotencyKey != result.Attempt.DraftKey {
		t.Fatalf("expected idempotency key to match the draft key, got %q", req.IdempotencyKey)
	}
	if req.CheckIn != "2026-10-01" || req.CheckOut != "2026-10-04" {
		t.Fatalf("expected dates formatted as YYYY-MM-DD, got %q/%q", req.CheckIn, req.CheckOut)
	}
}

// downFlagStub simulates the shared flag store being unreachable.
type downFlagStub struct{}

func (downFlagStub) Acquire(ctx context.Context, customerID string, ttl time.Duration) (bool, error) {
	return false, errors.New("flag storage unreachable")
}

func (downFlagStub) Release(ctx context.Context, customerID string) error {
	return errors.New("flag storage unreachable")
}

func TestSubmitResultIsStableWhileFinalizationRuns(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()

	result, err := env.service.Submit(ctx, env.session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	// Read the returned attempt continuously while the gateway outcome lands,
	// the way a response writer would.
	stop := make(chan struct{})
	var reads sync.WaitGroup
	reads.Add(1)
	go func() {
		defer reads.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = result.Attempt.State
				_ = result.Attempt.Amount
			}
		}
	}()

	if err := env.service.DismissGateway(ctx, result.Attempt.ID); err != nil {
		t.Fatalf("expected dismiss to succeed, got %v", err)
	}
	terminal := <-result.Done()
	close(stop)
	reads.Wait()

	if result.Attempt.State != domain.StateAwaitingGateway {
		t.Fatalf("expected the returned attempt to stay at awaiting_gateway, got %s", result.Attempt.State)
	}
	if terminal.State != domain.StateFailed {
		t.Fatalf("expected the terminal attempt to be failed, got %s", terminal.State)
	}
	if env.repo.attempt(t, result.Attempt.ID).State != domain.StateFailed {
		t.Fatalf("expected the stored attempt to be failed")
	}
}

func TestNewServiceStretchesProcessingTTLOverGatewayBound(t *testing.T) {
	svc := NewService(newServiceRepoStub(), &bookingStub{}, NewGatewayAdapter("pk_test", "whsec_test"), NewSessionGuard(testSigningSecret), nil, nil, Options{
		GatewayBound:  5 * time.Minute,
		ProcessingTTL: time.Minute,
	})
	if svc.opts.ProcessingTTL < svc.opts.GatewayBound {
		t.Fatalf("expected processing TTL to cover the gateway bound, got ttl=%s bound=%s", svc.opts.ProcessingTTL, svc.opts.GatewayBound)
	}

	svc = NewService(newServiceRepoStub(), &bookingStub{}, NewGatewayAdapter("pk_test", "whsec_test"), NewSessionGuard(testSigningSecret), nil, nil, Options{
		GatewayBound:  30 * time.Second,
		ProcessingTTL: 10 * time.Minute,
	})
	if svc.opts.ProcessingTTL != 10*time.Minute {
		t.Fatalf("expected an ample TTL to be kept as configured, got %s", svc.opts.ProcessingTTL)
	}
}

func TestSubmitKeepsSingleInFlightWhenFlagStorageIsDown(t *testing.T) {
	repo := newServiceRepoStub()
	booking := &bookingStub{}
	gateway := NewGatewayAdapter("pk_test", "whsec_test")
	svc := NewService(repo, booking, gateway, NewSessionGuard(testSigningSecret), nil, downFlagStub{}, Options{
		GatewayBound: 5 * time.Second,
	})
	token := signedToken(t, testSigningSecret, "cust_42", time.Hour, time.Now())
	session := domain.Session{Token: token}
	ctx := context.Background()

	first, err := svc.Submit(ctx, session, validDraft())
	if err != nil {
		t.Fatalf("expected submit to succeed via the in-process guard, got %v", err)
	}

	// A distinct draft must still be rejected while the first is in flight.
	other := validDraft()
	other.TotalPrice = 9999.00
	if _, err := svc.Submit(ctx, session, other); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing while one attempt is in flight, got %v", err)
	}

	if err := svc.DismissGateway(ctx, first.Attempt.ID); err != nil {
		t.Fatalf("expected dismiss to succeed, got %v", err)
	}
	<-first.Done()

	// The in-process guard is released at the terminal state.
	second, err := svc.Submit(ctx, session, other)
	if err != nil {
		t.Fatalf("expected submit to succeed after the first resolved, got %v", err)
	}
	if err := svc.DismissGateway(ctx, second.Attempt.ID); err != nil {
		t.Fatalf("expected dismiss to succeed, got %v", err)
	}
	<-second.Done()
}
