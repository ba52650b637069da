package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestRegistry(t *testing.T) {
	card, err := NewCardGateway("http://card.example", "key", []string{"USD"}, time.Second, testLogger(), nil)
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	wallet, err := NewWalletGateway("http://wallet.example", "key", nil, "USD", time.Second, testLogger(), nil)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}

	registry, err := NewRegistry(card, wallet)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if got, _ := registry.Get(model.PaymentMethodCard); got != card {
		t.Fatal("expected card adapter")
	}
	if _, err := registry.Get(model.PaymentMethodMobileMoney); !errors.Is(err, domainErrors.ErrUnsupportedMethod) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
	methods := registry.Methods()
	if len(methods) != 2 || methods[0] != model.PaymentMethodCard || methods[1] != model.PaymentMethodWallet {
		t.Fatalf("unexpected methods %v", methods)
	}
	if _, err := NewRegistry(card, card); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if IsAsync(card) {
		t.Fatal("card must be synchronous")
	}
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := newHTTPClient("card", "://bad-url", time.Second, testLogger(), nil); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := newHTTPClient("card", "/relative", time.Second, testLogger(), nil); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestHTTPClientRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", maxResponseBody)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	client, err := newHTTPClient("card", srv.URL, time.Second, testLogger(), nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	var out map[string]string
	status, raw, err := client.do(context.Background(), "charge", http.MethodGet, client.endpoint("charges"), nil, nil, &out, http.StatusOK)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
	if status != http.StatusOK || raw != nil || out != nil {
		t.Fatalf("oversized body must not be returned or decoded, got status=%d len=%d out=%v", status, len(raw), out)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient", err: &TransientError{Op: "charge", Err: errors.New("timeout")}, want: true},
		{name: "wrapped auth", err: errors.Join(errors.New("ctx"), &AuthError{Err: errors.New("expired")}), want: true},
		{name: "status", err: &StatusError{Op: "charge", Status: 401}, want: false},
		{name: "validation", err: domainErrors.NewValidationError("amount", "bad"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCardGatewayValidate(t *testing.T) {
	card, _ := NewCardGateway("http://card.example", "key", []string{"USD", "EUR"}, time.Second, testLogger(), nil)
	tests := []struct {
		name  string
		req   model.PaymentRequest
		field string
	}{
		{name: "ok", req: model.PaymentRequest{Amount: decimal.RequireFromString("10.50"), Currency: "usd", Details: map[string]string{"token": "tok_visa"}}},
		{name: "currency", req: model.PaymentRequest{Amount: decimal.NewFromInt(1), Currency: "JPY", Details: map[string]string{"token": "tok"}}, field: "currency"},
		{name: "token", req: model.PaymentRequest{Amount: decimal.NewFromInt(1), Currency: "USD"}, field: "token"},
		{name: "amount", req: model.PaymentRequest{Amount: decimal.Zero, Currency: "USD", Details: map[string]string{"token": "tok"}}, field: "amount"},
		{name: "precision", req: model.PaymentRequest{Amount: decimal.RequireFromString("1.005"), Currency: "USD", Details: map[string]string{"token": "tok"}}, field: "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := card.Validate(tt.req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *domainErrors.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestCardGatewayExecute(t *testing.T) {
	var lastKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/charges" || r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		lastKey.Store(r.Header.Get("Idempotency-Key"))
		var body cardChargeRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body.Source {
		case "tok_ok":
			writeJSON(w, http.StatusOK, cardChargeResponse{ID: "ch_1", Status: "succeeded"})
		case "tok_declined":
			writeJSON(w, http.StatusPaymentRequired, cardChargeResponse{ID: "ch_2", Status: "failed", FailureMessage: "insufficient funds"})
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	collectors := metrics.New()
	card, err := NewCardGateway(srv.URL, "sk_test", []string{"USD"}, time.Second, testLogger(), collectors)
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	req := Request{TransactionID: "tx-1", OrderNumber: "ORD-1", Amount: decimal.RequireFromString("24.00"), Currency: "USD", Details: map[string]string{"token": "tok_ok"}}

	res, err := card.Execute(context.Background(), req)
	if err != nil || res.Status != model.PaymentStatusCompleted || res.Reference != "ch_1" {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
	if key, _ := lastKey.Load().(string); key != "tx-1" {
		t.Fatalf("expected idempotency key tx-1, got %q", key)
	}

	req.Details = map[string]string{"token": "tok_declined"}
	res, err = card.Execute(context.Background(), req)
	if err != nil || res.Status != model.PaymentStatusFailed || res.Message != "insufficient funds" {
		t.Fatalf("unexpected decline %+v err=%v", res, err)
	}

	req.Details = map[string]string{"token": "tok_down"}
	if _, err := card.Execute(context.Background(), req); !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	unauthorized, _ := NewCardGateway(srv.URL, "wrong", []string{"USD"}, time.Second, testLogger(), nil)
	_, err = unauthorized.Execute(context.Background(), req)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized || IsRetryable(err) {
		t.Fatalf("expected permanent status error, got %v", err)
	}
}

func TestCardGatewayTimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	card, _ := NewCardGateway(srv.URL, "sk", []string{"USD"}, 50*time.Millisecond, testLogger(), nil)
	_, err := card.Execute(context.Background(), Request{TransactionID: "tx", Amount: decimal.NewFromInt(1), Currency: "USD"})
	if !IsRetryable(err) {
		t.Fatalf("expected retryable timeout, got %v", err)
	}
}

func TestCardGatewayRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body cardRefundRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/v1/refunds" || body.Charge != "ch_1" || body.Amount != "5.00" {
			writeJSON(w, http.StatusOK, cardChargeResponse{Status: "failed", FailureMessage: "unknown charge"})
			return
		}
		writeJSON(w, http.StatusOK, cardChargeResponse{ID: "re_1", Status: "succeeded"})
	}))
	defer srv.Close()

	card, _ := NewCardGateway(srv.URL, "sk", []string{"USD"}, time.Second, testLogger(), nil)
	res, err := card.Refund(context.Background(), RefundRequest{RefundID: "rf-1", Reference: "ch_1", Amount: decimal.NewFromInt(5), Currency: "USD"})
	if err != nil || res.Reference != "re_1" {
		t.Fatalf("unexpected refund %+v err=%v", res, err)
	}
	if _, err := card.Refund(context.Background(), RefundRequest{RefundID: "rf-2", Reference: "ch_x", Amount: decimal.NewFromInt(5)}); err == nil {
		t.Fatal("expected rejected refund")
	}
}

func TestWalletGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "wk" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body walletPaymentRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.WalletID == "w-empty" {
			writeJSON(w, http.StatusUnprocessableEntity, walletPaymentResponse{PaymentID: "p-2", State: "DECLINED", Reason: "balance too low"})
			return
		}
		writeJSON(w, http.StatusCreated, walletPaymentResponse{PaymentID: "p-1", State: "APPROVED"})
	}))
	defer srv.Close()

	wallet, _ := NewWalletGateway(srv.URL, "wk", nil, "USD", time.Second, testLogger(), nil)
	if err := wallet.Validate(model.PaymentRequest{Amount: decimal.NewFromInt(3), Currency: "EUR", Details: map[string]string{"wallet_id": "w"}}); err == nil {
		t.Fatal("expected store currency restriction")
	}

	res, err := wallet.Execute(context.Background(), Request{TransactionID: "tx", Amount: decimal.NewFromInt(3), Currency: "USD", Details: map[string]string{"wallet_id": "w-1"}})
	if err != nil || res.Status != model.PaymentStatusCompleted {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
	res, err = wallet.Execute(context.Background(), Request{TransactionID: "tx", Amount: decimal.NewFromInt(3), Currency: "USD", Details: map[string]string{"wallet_id": "w-empty"}})
	if err != nil || res.Status != model.PaymentStatusFailed || res.Message != "balance too low" {
		t.Fatalf("unexpected decline %+v err=%v", res, err)
	}
}

func TestValidIBAN(t *testing.T) {
	tests := map[string]bool{
		"GB82WEST12345698765432": true,
		"DE89370400440532013000": true,
		"GB82WEST12345698765433": false,
		"GB82":                   false,
		"1234WEST12345698765432": false,
	}
	for iban, want := range tests {
		if got := validIBAN(iban); got != want {
			t.Errorf("validIBAN(%s) = %v, want %v", iban, got, want)
		}
	}
}

func TestBankTransferGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transfers":
			var body transferRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.IBAN != "GB82WEST12345698765432" || body.Reference != "tx-9" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusAccepted, transferResponse{ID: "tr-1", Status: "pending"})
		case r.Method == http.MethodGet && r.URL.Path == "/transfers/tr-1":
			writeJSON(w, http.StatusOK, transferResponse{ID: "tr-1", Status: "settled"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	bank, err := NewBankTransferGateway(srv.URL, "bk", nil, "USD", time.Second, testLogger(), nil)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	details := map[string]string{"iban": "gb82 west 1234 5698 7654 32", "account_name": "Jane Doe"}
	if err := bank.Validate(model.PaymentRequest{Amount: decimal.NewFromInt(10), Currency: "USD", Details: details}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !IsAsync(bank) {
		t.Fatal("bank transfer must be asynchronous")
	}

	res, err := bank.Execute(context.Background(), Request{TransactionID: "tx-9", Amount: decimal.NewFromInt(10), Currency: "USD", Details: details})
	if err != nil || res.Status != model.PaymentStatusProcessing || res.Reference != "tr-1" {
		t.Fatalf("unexpected execute %+v err=%v", res, err)
	}
	res, err = bank.CheckStatus(context.Background(), "tr-1")
	if err != nil || res.Status != model.PaymentStatusCompleted {
		t.Fatalf("unexpected status %+v err=%v", res, err)
	}
	if _, err := bank.CheckStatus(context.Background(), "tr-404"); err == nil {
		t.Fatal("expected error for unknown transfer")
	}

	res, err = bank.ParseCallback([]byte(`{"id":"tr-1","status":"rejected","reason":"account closed"}`))
	if err != nil || res.Status != model.PaymentStatusFailed || res.Message != "account closed" {
		t.Fatalf("unexpected callback %+v err=%v", res, err)
	}
	if _, err := bank.ParseCallback([]byte(`{"status":"settled"}`)); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed callback, got %v", err)
	}
}
