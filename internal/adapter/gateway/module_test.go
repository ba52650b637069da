package gateway

import (
	"testing"
	"time"

	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

func TestNewRegistryRegistersConfiguredGateways(t *testing.T) {
	cfg := &config.Config{
		Currency:       "USD",
		GatewayTimeout: time.Second,
		Card:           config.GatewayConfig{BaseURL: "https://card.example", APIKey: "k", Currencies: []string{"USD"}},
		Bank:           config.GatewayConfig{BaseURL: "https://bank.example"},
		MobileMoney: config.MobileMoneyConfig{
			BaseURL:       "https://mm.example",
			ShortCode:     "174379",
			Currency:      "KES",
			MSISDNPattern: `^254\d{9}$`,
		},
	}

	registry, err := newRegistry(registryParams{Config: cfg, Logger: testLogger(), Metrics: metrics.New()})
	if err != nil {
		t.Fatalf("newRegistry: %v", err)
	}
	methods := registry.Methods()
	want := []model.PaymentMethod{model.PaymentMethodBankTransfer, model.PaymentMethodCard, model.PaymentMethodMobileMoney}
	if len(methods) != len(want) {
		t.Fatalf("expected %v, got %v", want, methods)
	}
	for i := range want {
		if methods[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, methods)
		}
	}
}

func TestNewRegistryRejectsBadGatewayURL(t *testing.T) {
	cfg := &config.Config{Wallet: config.GatewayConfig{BaseURL: "relative/path"}}
	if _, err := newRegistry(registryParams{Config: cfg, Logger: testLogger()}); err == nil {
		t.Fatal("expected error for relative wallet url")
	}
}

func TestNewRegistryWithoutGateways(t *testing.T) {
	registry, err := newRegistry(registryParams{Config: &config.Config{}, Logger: testLogger()})
	if err != nil || len(registry.Methods()) != 0 {
		t.Fatalf("expected empty registry, got %v err=%v", registry, err)
	}
}
