/**
 * @description
 * This package handles the configuration management for the checkout-service.
 * It uses the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the checkout-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string  `mapstructure:"SERVER_PORT"`
	DatabaseURL              string  `mapstructure:"DATABASE_URL"`
	RedisURL                 string  `mapstructure:"REDIS_URL"`
	RabbitMQURL              string  `mapstructure:"RABBITMQ_URL"`
	CheckoutEventExchange    string  `mapstructure:"CHECKOUT_EVENT_EXCHANGE"`
	BookingAPIBaseURL        string  `mapstructure:"BOOKING_API_BASE_URL"`
	BookingAPIKey            string  `mapstructure:"BOOKING_API_KEY"`
	GatewayPublicKey         string  `mapstructure:"GATEWAY_PUBLIC_KEY"`
	GatewayWebhookSecret     string  `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	JWTSecret                string  `mapstructure:"JWT_SECRET"`
	Currency                 string  `mapstructure:"CURRENCY"`
	GatewayTimeoutSeconds    int     `mapstructure:"GATEWAY_TIMEOUT_SECONDS"`
	ProcessingFlagTTLSeconds int     `mapstructure:"PROCESSING_FLAG_TTL_SECONDS"`
	AllowedOrigins           string  `mapstructure:"ALLOWED_ORIGINS"`
	ConvenienceFee           float64 `mapstructure:"CONVENIENCE_FEE"` // decimal currency units
	ConvenienceFeeMinor      int64   `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CHECKOUT_EVENT_EXCHANGE", "stayfront.events")
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 60)
	viper.SetDefault("PROCESSING_FLAG_TTL_SECONDS", 120)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("CONVENIENCE_FEE", 0.0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CHECKOUT_EVENT_EXCHANGE")
	_ = viper.BindEnv("BOOKING_API_BASE_URL")
	_ = viper.BindEnv("BOOKING_API_KEY")
	_ = viper.BindEnv("GATEWAY_PUBLIC_KEY")
	_ = viper.BindEnv("GATEWAY_WEBHOOK_SECRET")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("CURRENCY")
	_ = viper.BindEnv("GATEWAY_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PROCESSING_FLAG_TTL_SECONDS")
	_ = viper.BindEnv("ALLOWED_ORIGINS")
	_ = viper.BindEnv("CONVENIENCE_FEE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(viper.GetString("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.BookingAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.BookingAPIBaseURL), "/")
	config.Currency = strings.ToUpper(strings.TrimSpace(config.Currency))
	if config.Currency == "" {
		config.Currency = "INR"
	}

	if config.GatewayTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive gateway timeout configured; using default\" seconds=%d", config.GatewayTimeoutSeconds)
		config.GatewayTimeoutSeconds = 60
	}
	if config.ProcessingFlagTTLSeconds <= 0 {
		config.ProcessingFlagTTLSeconds = 120
	}

	if config.ConvenienceFee < 0 {
		log.Printf("level=warn component=config msg=\"negative convenience fee configured; coercing to zero\" fee=%f", config.ConvenienceFee)
		config.ConvenienceFee = 0
	}
	config.ConvenienceFeeMinor = minorUnits(config.ConvenienceFee)

	return
}

// minorUnits converts a decimal currency amount into integer minor units.
func minorUnits(amount float64) int64 {
	if amount <= 0 {
		return 0
	}
	return int64(math.Round(amount * 100))
}
