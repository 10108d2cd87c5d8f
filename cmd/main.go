/**
 * @description
 * This is the main entry point for the checkout-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/bookingclient: Client for the reservations backend API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stayfront/checkout-service/internal/api"
	"github.com/stayfront/checkout-service/internal/app"
	"github.com/stayfront/checkout-service/internal/config"
	"github.com/stayfront/checkout-service/internal/store"
	"github.com/stayfront/checkout-service/pkg/bookingclient"
	"github.com/stayfront/checkout-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.GatewayWebhookSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"gateway webhook secret must be configured\" env=GATEWAY_WEBHOOK_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting checkout-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish terminal-state events. This
	// service only publishes, so a producer is all it needs; an unreachable
	// broker degrades to the logging fallback instead of blocking checkout.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the reservations backend API.
	bookingClient := bookingclient.NewClient(cfg.BookingAPIBaseURL, cfg.BookingAPIKey)

	// Redis backs the per-customer processing flag. Missing or unreachable
	// Redis degrades to the in-process flag, which still guards a single
	// instance.
	var processingFlag app.ProcessingFlag
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; using in-process processing flag\" env=REDIS_URL")
		processingFlag = app.NewMemoryProcessingFlag()
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using in-process processing flag\" err=%v", parseErr)
			processingFlag = app.NewMemoryProcessingFlag()
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; using in-process processing flag\" err=%v", pingErr)
				redisClient.Close()
				processingFlag = app.NewMemoryProcessingFlag()
			} else {
				defer redisClient.Close()
				processingFlag = app.NewRedisProcessingFlag(redisClient, "")
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Session guard and payment gateway adapter.
	sessionGuard := app.NewSessionGuard(cfg.JWTSecret)
	gatewayAdapter := app.NewGatewayAdapter(cfg.GatewayPublicKey, cfg.GatewayWebhookSecret)

	// Initialize the core application service with its dependencies.
	checkoutService := app.NewService(
		repository,
		bookingClient,
		gatewayAdapter,
		sessionGuard,
		producer,
		processingFlag,
		app.Options{
			EventExchange:       cfg.CheckoutEventExchange,
			Currency:            cfg.Currency,
			GatewayBound:        time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
			ProcessingTTL:       time.Duration(cfg.ProcessingFlagTTLSeconds) * time.Second,
			ConvenienceFeeMinor: cfg.ConvenienceFeeMinor,
		},
	)

	// Initialize the API handlers.
	checkoutHandlers := api.NewCheckoutHandlers(checkoutService)

	var allowedOrigins []string
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.CheckoutRoutes(checkoutHandlers, sessionGuard, allowedOrigins))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
