package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

// WalletGateway debits a customer's stored-value wallet synchronously.
type WalletGateway struct {
	http       *httpClient
	apiKey     string
	currencies currencySet
}

var _ Adapter = (*WalletGateway)(nil)

type walletPaymentRequest struct {
	WalletID  string `json:"wallet_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type walletPaymentResponse struct {
	PaymentID string `json:"payment_id"`
	State     string `json:"state"`
	Reason    string `json:"reason"`
}

// NewWalletGateway creates the wallet adapter. Without configured currencies only
// the store currency is accepted.
func NewWalletGateway(baseURL, apiKey string, currencies []string, storeCurrency string, timeout time.Duration, logger *slog.Logger, m *metrics.Collectors) (*WalletGateway, error) {
	client, err := newHTTPClient("wallet", baseURL, timeout, logger, m)
	if err != nil {
		return nil, err
	}
	return &WalletGateway{http: client, apiKey: apiKey, currencies: newCurrencySet(currencies, storeCurrency)}, nil
}

func (g *WalletGateway) Method() model.PaymentMethod { return model.PaymentMethodWallet }

func (g *WalletGateway) Validate(req model.PaymentRequest) error {
	if err := checkAmount(req.Amount); err != nil {
		return err
	}
	if err := g.currencies.check(req.Currency); err != nil {
		return err
	}
	_, err := requireDetail(req.Details, "wallet_id")
	return err
}

func (g *WalletGateway) Execute(ctx context.Context, req Request) (Result, error) {
	const op = "pay"
	body := walletPaymentRequest{
		WalletID:  req.Details["wallet_id"],
		Amount:    formatAmount(req.Amount),
		Currency:  req.Currency,
		Reference: req.TransactionID,
	}
	headers := http.Header{}
	headers.Set("X-API-Key", g.apiKey)

	var resp walletPaymentResponse
	status, raw, err := g.http.do(ctx, op, http.MethodPost, g.http.endpoint("payments"), headers, body, &resp, http.StatusOK, http.StatusCreated, http.StatusUnprocessableEntity)
	if err != nil {
		return Result{}, err
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusUnprocessableEntity:
	default:
		return Result{}, g.http.unexpected(op, status, raw)
	}

	if resp.State == "APPROVED" {
		return Result{Reference: resp.PaymentID, Status: model.PaymentStatusCompleted, Message: "wallet debited"}, nil
	}
	return Result{Reference: resp.PaymentID, Status: model.PaymentStatusFailed, Message: trimMessage(resp.Reason, "wallet payment declined")}, nil
}
