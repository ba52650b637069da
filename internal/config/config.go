package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryDatabaseURI selects the in-memory storage backend.
const MemoryDatabaseURI = "memory://"

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	AuthSecret      string
	AuthTokenTTL    time.Duration
	CallbackToken   string
	LogLevel        string
	ShutdownTimeout time.Duration

	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	Currency              string

	DuplicateWindow     time.Duration
	PaymentTimeout      time.Duration
	GatewayTimeout      time.Duration
	GatewayMaxRetries   int
	GatewayRetryBackoff time.Duration

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	ReconcileBatch    int
	WorkerPoolSize    int

	Card        GatewayConfig
	Wallet      GatewayConfig
	Bank        GatewayConfig
	MobileMoney MobileMoneyConfig

	KafkaBrokers []string
	KafkaTopic   string
}

// GatewayConfig describes an API-key authenticated payment provider.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	Currencies []string
}

// MobileMoneyConfig describes the OAuth authenticated mobile-money provider.
type MobileMoneyConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	CallbackURL    string
	Currency       string
	MSISDNPattern  string
}

const (
	defaultRunAddress          = ":8080"
	defaultAuthSecret          = "change-me-in-production"
	defaultLogLevel            = "info"
	defaultShutdownTimeout     = 10 * time.Second
	defaultAuthTokenTTL        = 24 * time.Hour
	defaultTaxRate             = "0.10"
	defaultShippingFee         = "2.00"
	defaultCurrency            = "USD"
	defaultDuplicateWindow     = 5 * time.Minute
	defaultPaymentTimeout      = 10 * time.Minute
	defaultGatewayTimeout      = 10 * time.Second
	defaultGatewayMaxRetries   = 3
	defaultGatewayRetryBackoff = 200 * time.Millisecond
	defaultReconcileInterval   = 15 * time.Second
	defaultReconcileGrace      = 30 * time.Second
	defaultReconcileBatch      = 32
	defaultWorkerPoolSize      = 4
	defaultCardCurrencies      = "USD,EUR,GBP"
	defaultMobileCurrency      = "KES"
	defaultMSISDNPattern       = `^254(7|1)\d{8}$`
	defaultKafkaTopic          = "checkout.payments"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		AuthSecret:          getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		AuthTokenTTL:        getDuration(lookup, "AUTH_TOKEN_TTL", defaultAuthTokenTTL),
		CallbackToken:       getString(lookup, "CALLBACK_TOKEN", ""),
		LogLevel:            getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Currency:            strings.ToUpper(getString(lookup, "DEFAULT_CURRENCY", defaultCurrency)),
		DuplicateWindow:     getDuration(lookup, "PAYMENT_DUPLICATE_WINDOW", defaultDuplicateWindow),
		PaymentTimeout:      getDuration(lookup, "PAYMENT_TIMEOUT", defaultPaymentTimeout),
		GatewayTimeout:      getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		GatewayMaxRetries:   getInt(lookup, "GATEWAY_MAX_RETRIES", defaultGatewayMaxRetries),
		GatewayRetryBackoff: getDuration(lookup, "GATEWAY_RETRY_BACKOFF", defaultGatewayRetryBackoff),
		ReconcileInterval:   getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileGrace:      getDuration(lookup, "RECONCILE_GRACE", defaultReconcileGrace),
		ReconcileBatch:      getInt(lookup, "RECONCILE_BATCH", defaultReconcileBatch),
		WorkerPoolSize:      getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		Card: GatewayConfig{
			BaseURL:    getString(lookup, "CARD_GATEWAY_URL", ""),
			APIKey:     getString(lookup, "CARD_GATEWAY_KEY", ""),
			Currencies: splitList(strings.ToUpper(getString(lookup, "CARD_CURRENCIES", defaultCardCurrencies))),
		},
		Wallet: GatewayConfig{
			BaseURL: getString(lookup, "WALLET_GATEWAY_URL", ""),
			APIKey:  getString(lookup, "WALLET_GATEWAY_KEY", ""),
		},
		Bank: GatewayConfig{
			BaseURL: getString(lookup, "BANK_GATEWAY_URL", ""),
			APIKey:  getString(lookup, "BANK_GATEWAY_KEY", ""),
		},
		MobileMoney: MobileMoneyConfig{
			BaseURL:        getString(lookup, "MOBILE_MONEY_URL", ""),
			ConsumerKey:    getString(lookup, "MOBILE_MONEY_CONSUMER_KEY", ""),
			ConsumerSecret: getString(lookup, "MOBILE_MONEY_CONSUMER_SECRET", ""),
			ShortCode:      getString(lookup, "MOBILE_MONEY_SHORTCODE", ""),
			CallbackURL:    getString(lookup, "MOBILE_MONEY_CALLBACK_URL", ""),
			Currency:       strings.ToUpper(getString(lookup, "MOBILE_MONEY_CURRENCY", defaultMobileCurrency)),
			MSISDNPattern:  getString(lookup, "MOBILE_MONEY_MSISDN_PATTERN", defaultMSISDNPattern),
		},
		KafkaBrokers: splitList(getString(lookup, "KAFKA_BROKERS", "")),
		KafkaTopic:   getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
	}

	fs := flag.NewFlagSet("gophercheckout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		taxRateStr         = getString(lookup, "TAX_RATE", defaultTaxRate)
		shippingFeeStr     = getString(lookup, "SHIPPING_FEE", defaultShippingFee)
		freeShippingStr    = getString(lookup, "FREE_SHIPPING_THRESHOLD", "0")
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		duplicateWindowStr = cfg.DuplicateWindow.String()
		paymentTimeoutStr  = cfg.PaymentTimeout.String()
		reconcileEveryStr  = cfg.ReconcileInterval.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN or memory://")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret for verifying bearer tokens")
	fs.StringVar(&cfg.CallbackToken, "callback-token", cfg.CallbackToken, "Shared token gateway callbacks must present, empty accepts any")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&taxRateStr, "tax-rate", taxRateStr, "Tax rate applied to subtotal")
	fs.StringVar(&shippingFeeStr, "shipping-fee", shippingFeeStr, "Flat shipping fee")
	fs.StringVar(&freeShippingStr, "free-shipping-threshold", freeShippingStr, "Subtotal from which shipping is free, 0 disables")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&duplicateWindowStr, "duplicate-window", duplicateWindowStr, "Lookback window for duplicate payments")
	fs.StringVar(&paymentTimeoutStr, "payment-timeout", paymentTimeoutStr, "Maximum wait for asynchronous settlement")
	fs.StringVar(&reconcileEveryStr, "reconcile-interval", reconcileEveryStr, "Interval between reconciliation sweeps")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum payments per sweep")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.TaxRate, err = decimal.NewFromString(taxRateStr); err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	if cfg.ShippingFee, err = decimal.NewFromString(shippingFeeStr); err != nil {
		return nil, fmt.Errorf("invalid shipping fee: %w", err)
	}
	if cfg.FreeShippingThreshold, err = decimal.NewFromString(freeShippingStr); err != nil {
		return nil, fmt.Errorf("invalid free shipping threshold: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	if cfg.DuplicateWindow, err = time.ParseDuration(duplicateWindowStr); err != nil {
		return nil, fmt.Errorf("invalid duplicate window: %w", err)
	}
	if cfg.PaymentTimeout, err = time.ParseDuration(paymentTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid payment timeout: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileEveryStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if secretFile, ok := lookup("AUTH_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read auth secret file: %w", err)
		}
		cfg.AuthSecret = strings.TrimSpace(string(content))
	}

	normalize(cfg)

	if cfg.TaxRate.IsNegative() || cfg.ShippingFee.IsNegative() || cfg.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("pricing values must not be negative")
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.ReconcileGrace < 0 {
		cfg.ReconcileGrace = defaultReconcileGrace
	}
	if cfg.AuthTokenTTL <= 0 {
		cfg.AuthTokenTTL = defaultAuthTokenTTL
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = defaultDuplicateWindow
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.GatewayMaxRetries < 0 {
		cfg.GatewayMaxRetries = defaultGatewayMaxRetries
	}
	if cfg.GatewayRetryBackoff <= 0 {
		cfg.GatewayRetryBackoff = defaultGatewayRetryBackoff
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
