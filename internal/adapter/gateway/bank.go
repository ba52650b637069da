package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// BankTransferGateway initiates credit transfers that settle asynchronously.
type BankTransferGateway struct {
	http       *httpClient
	apiKey     string
	currencies currencySet
}

var (
	_ Adapter        = (*BankTransferGateway)(nil)
	_ StatusChecker  = (*BankTransferGateway)(nil)
	_ CallbackParser = (*BankTransferGateway)(nil)
)

type transferRequest struct {
	IBAN        string `json:"iban"`
	AccountName string `json:"account_name"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
}

type transferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// NewBankTransferGateway creates the bank transfer adapter.
func NewBankTransferGateway(baseURL, apiKey string, currencies []string, storeCurrency string, timeout time.Duration, logger *slog.Logger, m *metrics.Collectors) (*BankTransferGateway, error) {
	client, err := newHTTPClient("bank", baseURL, timeout, logger, m)
	if err != nil {
		return nil, err
	}
	return &BankTransferGateway{http: client, apiKey: apiKey, currencies: newCurrencySet(currencies, storeCurrency)}, nil
}

func (g *BankTransferGateway) Method() model.PaymentMethod { return model.PaymentMethodBankTransfer }

// Validate requires a checksum-valid IBAN and the account holder name.
func (g *BankTransferGateway) Validate(req model.PaymentRequest) error {
	if err := checkAmount(req.Amount); err != nil {
		return err
	}
	if err := g.currencies.check(req.Currency); err != nil {
		return err
	}
	iban, err := requireDetail(req.Details, "iban")
	if err != nil {
		return err
	}
	if !validIBAN(normalizeIBAN(iban)) {
		return domainErrors.NewValidationError("iban", "checksum mismatch or malformed")
	}
	_, err = requireDetail(req.Details, "account_name")
	return err
}

func normalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// validIBAN applies the ISO 13616 mod-97 check.
func validIBAN(iban string) bool {
	if !ibanPattern.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
			continue
		}
		digits.WriteRune(r)
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func (g *BankTransferGateway) headers() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", g.apiKey)
	return h
}

// Execute submits the transfer; the outcome arrives later.
func (g *BankTransferGateway) Execute(ctx context.Context, req Request) (Result, error) {
	const op = "transfer"
	body := transferRequest{
		IBAN:        normalizeIBAN(req.Details["iban"]),
		AccountName: req.Details["account_name"],
		Amount:      formatAmount(req.Amount),
		Currency:    req.Currency,
		Reference:   req.TransactionID,
	}

	var resp transferResponse
	status, raw, err := g.http.do(ctx, op, http.MethodPost, g.http.endpoint("transfers"), g.headers(), body, &resp, http.StatusOK, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return Result{}, err
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return transferResult(resp), nil
	case http.StatusUnprocessableEntity:
		return Result{Status: model.PaymentStatusFailed, Message: "transfer rejected by bank"}, nil
	default:
		return Result{}, g.http.unexpected(op, status, raw)
	}
}

// CheckStatus polls the transfer by its bank reference.
func (g *BankTransferGateway) CheckStatus(ctx context.Context, reference string) (Result, error) {
	const op = "transfer_status"
	var resp transferResponse
	status, raw, err := g.http.do(ctx, op, http.MethodGet, g.http.endpoint("transfers", reference), g.headers(), nil, &resp, http.StatusOK)
	if err != nil {
		return Result{}, err
	}
	if status != http.StatusOK {
		return Result{}, g.http.unexpected(op, status, raw)
	}
	if resp.ID == "" {
		resp.ID = reference
	}
	return transferResult(resp), nil
}

// ParseCallback decodes a transfer status notification.
func (g *BankTransferGateway) ParseCallback(body []byte) (Result, error) {
	var resp transferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.ID == "" {
		return Result{}, fmt.Errorf("%w: missing transfer id", ErrMalformedResponse)
	}
	return transferResult(resp), nil
}

func transferResult(resp transferResponse) Result {
	switch strings.ToLower(resp.Status) {
	case "settled":
		return Result{Reference: resp.ID, Status: model.PaymentStatusCompleted, Message: "transfer settled"}
	case "rejected", "returned":
		return Result{Reference: resp.ID, Status: model.PaymentStatusFailed, Message: trimMessage(resp.Reason, "transfer rejected")}
	default:
		return Result{Reference: resp.ID, Status: model.PaymentStatusProcessing, Message: "transfer pending"}
	}
}
