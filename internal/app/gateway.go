/**
 * @description
 * This file implements the payment gateway adapter. The external widget runs
 * on the traveler's device and reports back through two independent callbacks:
 * completion (paid) and dismissal (closed without paying). The adapter turns
 * those event sources, plus the timeout watchdog's timer, into one awaitable
 * PaymentOutcome per pending order.
 *
 * @notes
 * - Exactly one of {complete, dismiss, timeout} may commit an outcome. The
 *   one-shot guard is a compare-and-swap on the open checkout's resolved flag;
 *   whichever source loses the race becomes a no-op. This is the single most
 *   important correctness property in the flow.
 * - Completion callbacks carry an HMAC-SHA256 signature over
 *   "<gateway order id>|<payment id>"; callbacks with a bad signature never
 *   resolve the slot.
 */

package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stayfront/checkout-service/internal/domain"
)

// Prefill carries the contact fields the widget is configured with.
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// WidgetConfig is the client-side configuration for opening the payment
// widget: public key, amount in integer minor units, currency, gateway order
// id, and prefill contact fields.
type WidgetConfig struct {
	Key      string  `json:"key"`
	Amount   int64   `json:"amount"`
	Currency string  `json:"currency"`
	OrderID  string  `json:"order_id"`
	Prefill  Prefill `json:"prefill"`
}

// OpenCheckout is one registered, not-yet-resolved handoff to the widget.
type OpenCheckout struct {
	order    domain.PendingOrder
	resolved atomic.Bool
	done     chan domain.PaymentOutcome
}

// resolve commits an outcome if none has been committed yet. It reports
// whether this call won the race.
func (oc *OpenCheckout) resolve(out domain.PaymentOutcome) bool {
	if !oc.resolved.CompareAndSwap(false, true) {
		return false
	}
	oc.done <- out
	return true
}

// GatewayAdapter tracks open checkouts keyed by gateway order id and resolves
// each exactly once.
type GatewayAdapter struct {
	publicKey     string
	webhookSecret []byte

	mu   sync.Mutex
	open map[string]*OpenCheckout
}

// NewGatewayAdapter creates an adapter for the given gateway credentials.
func NewGatewayAdapter(publicKey, webhookSecret string) *GatewayAdapter {
	return &GatewayAdapter{
		publicKey:     publicKey,
		webhookSecret: []byte(webhookSecret),
		open:          make(map[string]*OpenCheckout),
	}
}

// Open registers a pending order for callback resolution and returns the open
// checkout together with the widget configuration the client needs.
func (a *GatewayAdapter) Open(order domain.PendingOrder, prefill Prefill) (*OpenCheckout, WidgetConfig) {
	oc := &OpenCheckout{
		order: order,
		done:  make(chan domain.PaymentOutcome, 1),
	}

	a.mu.Lock()
	a.open[order.GatewayOrderID] = oc
	a.mu.Unlock()

	cfg := WidgetConfig{
		Key:      a.publicKey,
		Amount:   order.AmountMinorUnits,
		Currency: order.Currency,
		OrderID:  order.GatewayOrderID,
		Prefill:  prefill,
	}
	log.Printf("level=info component=gateway msg=\"checkout opened\" gateway_order_id=%s amount=%d currency=%s", order.GatewayOrderID, order.AmountMinorUnits, order.Currency)
	return oc, cfg
}

// Complete resolves an open checkout as a successful payment. It reports false
// when the checkout is unknown, already resolved, or the signature does not
// verify; in all three cases the event is dropped, not double-processed.
func (a *GatewayAdapter) Complete(gatewayOrderID, paymentID, signature string) bool {
	oc := a.lookup(gatewayOrderID)
	if oc == nil {
		log.Printf("level=warn component=gateway msg=\"completion for unknown checkout dropped\" gateway_order_id=%s", gatewayOrderID)
		return false
	}
	if !a.VerifySignature(gatewayOrderID, paymentID, signature) {
		log.Printf("level=warn component=gateway msg=\"completion with bad signature dropped\" gateway_order_id=%s", gatewayOrderID)
		return false
	}
	won := oc.resolve(domain.PaymentOutcome{
		Kind:      domain.OutcomeSuccess,
		PaymentID: paymentID,
		Signature: signature,
	})
	if !won {
		log.Printf("level=warn component=gateway msg=\"late completion dropped\" gateway_order_id=%s payment_id=%s", gatewayOrderID, paymentID)
	}
	return won
}

// Dismiss resolves an open checkout as cancelled by the traveler.
func (a *GatewayAdapter) Dismiss(gatewayOrderID string) bool {
	oc := a.lookup(gatewayOrderID)
	if oc == nil {
		return false
	}
	won := oc.resolve(domain.PaymentOutcome{Kind: domain.OutcomeCancelled})
	if !won {
		log.Printf("level=warn component=gateway msg=\"late dismissal dropped\" gateway_order_id=%s", gatewayOrderID)
	}
	return won
}

// Await races the checkout's callbacks against the watchdog bound. The timer
// is cleared the instant a genuine outcome is observed; a timer that fires a
// moment after a genuine outcome committed loses the compare-and-swap and the
// genuine outcome is returned instead.
func (a *GatewayAdapter) Await(ctx context.Context, oc *OpenCheckout, bound time.Duration) domain.PaymentOutcome {
	defer a.release(oc.order.GatewayOrderID)

	timer := time.NewTimer(bound)
	defer timer.Stop()

	select {
	case out := <-oc.done:
		return out
	case <-timer.C:
		if oc.resolve(domain.PaymentOutcome{Kind: domain.OutcomeTimedOut}) {
			log.Printf("level=warn component=gateway msg=\"no gateway event within bound\" gateway_order_id=%s bound=%s", oc.order.GatewayOrderID, bound)
		}
		// A genuine outcome may have won the flag between the timer firing and
		// the CAS; either way the committed outcome is sitting in the channel.
		return <-oc.done
	case <-ctx.Done():
		if oc.resolve(domain.PaymentOutcome{Kind: domain.OutcomeTimedOut}) {
			log.Printf("level=warn component=gateway msg=\"await cancelled\" gateway_order_id=%s err=%v", oc.order.GatewayOrderID, ctx.Err())
		}
		return <-oc.done
	}
}

// Signature computes the completion signature for a gateway order/payment
// pair: hex HMAC-SHA256 over "<order id>|<payment id>".
func (a *GatewayAdapter) Signature(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, a.webhookSecret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a completion signature in constant time.
func (a *GatewayAdapter) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	want := a.Signature(gatewayOrderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}

func (a *GatewayAdapter) lookup(gatewayOrderID string) *OpenCheckout {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open[gatewayOrderID]
}

func (a *GatewayAdapter) release(gatewayOrderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.open, gatewayOrderID)
}
