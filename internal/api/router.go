/**
 * @description
 * This file sets up the HTTP router for the checkout-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * the standard middleware stack plus bearer-token authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stayfront/checkout-service/internal/app"
)

// CheckoutRoutes creates and returns a new router for the checkout service.
func CheckoutRoutes(h *CheckoutHandlers, guard *app.SessionGuard, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Server-to-server gateway notification; authenticated by its HMAC
	// signature, not by a bearer token.
	r.Post("/gateway/webhook", h.GatewayWebhookHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(guard))

		r.Post("/checkout", h.SubmitCheckoutHandler)
		r.Get("/checkout/attempts", h.ListAttemptsHandler)
		r.Get("/checkout/{attemptID}", h.GetAttemptHandler)

		// Gateway widget callbacks: the completion callback carries the
		// payment proof, the dismissal callback carries nothing.
		r.Post("/checkout/{attemptID}/gateway/complete", h.GatewayCompleteHandler)
		r.Post("/checkout/{attemptID}/gateway/dismiss", h.GatewayDismissHandler)

		r.Post("/checkout/{attemptID}/invoice", h.ReissueInvoiceHandler)
	})

	return r
}
