package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

// Module exposes the gateway registry to the fx graph.
var Module = fx.Provide(newRegistry)

type registryParams struct {
	fx.In

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collectors
}

// newRegistry registers every gateway whose base URL is configured.
func newRegistry(p registryParams) (*Registry, error) {
	cfg := p.Config
	var adapters []Adapter

	if cfg.Card.BaseURL != "" {
		card, err := NewCardGateway(cfg.Card.BaseURL, cfg.Card.APIKey, cfg.Card.Currencies, cfg.GatewayTimeout, p.Logger, p.Metrics)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, card)
	}
	if cfg.Wallet.BaseURL != "" {
		wallet, err := NewWalletGateway(cfg.Wallet.BaseURL, cfg.Wallet.APIKey, cfg.Wallet.Currencies, cfg.Currency, cfg.GatewayTimeout, p.Logger, p.Metrics)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, wallet)
	}
	if cfg.Bank.BaseURL != "" {
		bank, err := NewBankTransferGateway(cfg.Bank.BaseURL, cfg.Bank.APIKey, cfg.Bank.Currencies, cfg.Currency, cfg.GatewayTimeout, p.Logger, p.Metrics)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, bank)
	}
	if cfg.MobileMoney.BaseURL != "" {
		mobile, err := NewMobileMoneyGateway(cfg.MobileMoney, cfg.GatewayTimeout, p.Logger, p.Metrics)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, mobile)
	}

	registry, err := NewRegistry(adapters...)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		p.Logger.Warn("no payment gateways configured")
	}
	return registry, nil
}
