package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

// CardGateway charges tokenised cards synchronously.
type CardGateway struct {
	http       *httpClient
	apiKey     string
	currencies currencySet
}

var (
	_ Adapter  = (*CardGateway)(nil)
	_ Refunder = (*CardGateway)(nil)
)

type cardChargeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

type cardChargeResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FailureMessage string `json:"failure_message"`
}

type cardRefundRequest struct {
	Charge string `json:"charge"`
	Amount string `json:"amount"`
}

// NewCardGateway creates the card adapter.
func NewCardGateway(baseURL, apiKey string, currencies []string, timeout time.Duration, logger *slog.Logger, m *metrics.Collectors) (*CardGateway, error) {
	client, err := newHTTPClient("card", baseURL, timeout, logger, m)
	if err != nil {
		return nil, err
	}
	return &CardGateway{http: client, apiKey: apiKey, currencies: newCurrencySet(currencies, "")}, nil
}

func (g *CardGateway) Method() model.PaymentMethod { return model.PaymentMethodCard }

// Validate requires a card token and a supported currency.
func (g *CardGateway) Validate(req model.PaymentRequest) error {
	if err := checkAmount(req.Amount); err != nil {
		return err
	}
	if err := g.currencies.check(req.Currency); err != nil {
		return err
	}
	_, err := requireDetail(req.Details, "token")
	return err
}

func (g *CardGateway) headers(idempotencyKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+g.apiKey)
	h.Set("Idempotency-Key", idempotencyKey)
	return h
}

// Execute creates a charge. The transaction id is sent as the idempotency key so
// retried attempts never charge twice.
func (g *CardGateway) Execute(ctx context.Context, req Request) (Result, error) {
	const op = "charge"
	body := cardChargeRequest{
		Amount:      formatAmount(req.Amount),
		Currency:    req.Currency,
		Source:      req.Details["token"],
		Description: "order " + req.OrderNumber,
	}

	var resp cardChargeResponse
	status, raw, err := g.http.do(ctx, op, http.MethodPost, g.http.endpoint("v1", "charges"), g.headers(req.TransactionID), body, &resp, http.StatusOK, http.StatusCreated, http.StatusPaymentRequired)
	if err != nil {
		return Result{}, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusPaymentRequired:
		return cardResult(resp), nil
	default:
		return Result{}, g.http.unexpected(op, status, raw)
	}
}

func cardResult(resp cardChargeResponse) Result {
	switch resp.Status {
	case "succeeded":
		return Result{Reference: resp.ID, Status: model.PaymentStatusCompleted, Message: "charge succeeded"}
	default:
		return Result{Reference: resp.ID, Status: model.PaymentStatusFailed, Message: trimMessage(resp.FailureMessage, "card declined")}
	}
}

// Refund returns amount of a settled charge.
func (g *CardGateway) Refund(ctx context.Context, req RefundRequest) (Result, error) {
	const op = "refund"
	body := cardRefundRequest{Charge: req.Reference, Amount: formatAmount(req.Amount)}

	var resp cardChargeResponse
	status, raw, err := g.http.do(ctx, op, http.MethodPost, g.http.endpoint("v1", "refunds"), g.headers(req.RefundID), body, &resp, http.StatusOK, http.StatusCreated)
	if err != nil {
		return Result{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return Result{}, g.http.unexpected(op, status, raw)
	}
	if resp.Status != "succeeded" && resp.Status != "pending" {
		return Result{}, fmt.Errorf("card refund rejected: %s", trimMessage(resp.FailureMessage, resp.Status))
	}
	return Result{Reference: resp.ID, Status: model.PaymentStatusRefunded, Message: "refund accepted"}, nil
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
