package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/gophercheckout/internal/config"
	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

const (
	stkTimestampLayout  = "20060102150405"
	stkTransactionType  = "CustomerPayBillOnline"
	stkStillProcessing  = "500.001.1001"
	stkResultSuccess    = "0"
	stkResponseAccepted = "0"
)

// MobileMoneyGateway sends STK push prompts to the customer's handset and
// learns the outcome from status queries or callbacks.
type MobileMoneyGateway struct {
	http      *httpClient
	tokens    *TokenSource
	shortCode string
	callback  string
	currency  string
	msisdn    *regexp.Regexp
	now       func() time.Time
}

var (
	_ Adapter        = (*MobileMoneyGateway)(nil)
	_ StatusChecker  = (*MobileMoneyGateway)(nil)
	_ CallbackParser = (*MobileMoneyGateway)(nil)
)

type oauthResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string      `json:"ResponseCode"`
	ResultCode   json.Number `json:"ResultCode"`
	ResultDesc   string      `json:"ResultDesc"`
	ErrorCode    string      `json:"errorCode"`
	ErrorMessage string      `json:"errorMessage"`
}

type stkCallbackEnvelope struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string      `json:"MerchantRequestID"`
			CheckoutRequestID string      `json:"CheckoutRequestID"`
			ResultCode        json.Number `json:"ResultCode"`
			ResultDesc        string      `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// NewMobileMoneyGateway creates the mobile-money adapter with its own token cache.
func NewMobileMoneyGateway(cfg config.MobileMoneyConfig, timeout time.Duration, logger *slog.Logger, m *metrics.Collectors) (*MobileMoneyGateway, error) {
	client, err := newHTTPClient("mobile_money", cfg.BaseURL, timeout, logger, m)
	if err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(cfg.MSISDNPattern)
	if err != nil {
		return nil, fmt.Errorf("compile msisdn pattern: %w", err)
	}
	if cfg.ShortCode == "" {
		return nil, errors.New("mobile money short code must be provided")
	}

	g := &MobileMoneyGateway{
		http:      client,
		shortCode: cfg.ShortCode,
		callback:  cfg.CallbackURL,
		currency:  strings.ToUpper(cfg.Currency),
		msisdn:    pattern,
		now:       time.Now,
	}
	g.tokens = NewTokenSource(g.fetchToken(cfg.ConsumerKey, cfg.ConsumerSecret), client.logger, m)
	return g, nil
}

func (g *MobileMoneyGateway) Method() model.PaymentMethod { return model.PaymentMethodMobileMoney }

// Validate checks the handset number against the provider numbering plan. The
// provider only accepts whole amounts in its single currency.
func (g *MobileMoneyGateway) Validate(req model.PaymentRequest) error {
	if !strings.EqualFold(req.Currency, g.currency) {
		return domainErrors.NewValidationError("currency", "mobile money accepts only "+g.currency)
	}
	if req.Amount.LessThan(oneUnit) || !req.Amount.Equal(req.Amount.Truncate(0)) {
		return domainErrors.NewValidationError("amount", "must be a whole number of at least 1")
	}
	msisdn, err := requireDetail(req.Details, "msisdn")
	if err != nil {
		return err
	}
	if !g.msisdn.MatchString(msisdn) {
		return domainErrors.NewValidationError("msisdn", "does not match provider numbering plan")
	}
	return nil
}

func (g *MobileMoneyGateway) fetchToken(key, secret string) TokenFetcher {
	credentials := base64.StdEncoding.EncodeToString([]byte(key + ":" + secret))
	return func(ctx context.Context) (Token, error) {
		const op = "oauth"
		headers := http.Header{}
		headers.Set("Authorization", "Basic "+credentials)

		var resp oauthResponse
		endpoint := g.http.endpoint("oauth", "v1", "generate") + "?grant_type=client_credentials"
		status, raw, err := g.http.do(ctx, op, http.MethodGet, endpoint, headers, nil, &resp, http.StatusOK)
		if err != nil {
			return Token{}, err
		}
		if status != http.StatusOK {
			return Token{}, g.http.unexpected(op, status, raw)
		}
		seconds, err := strconv.ParseInt(resp.ExpiresIn.String(), 10, 64)
		if err != nil || seconds <= 0 {
			return Token{}, fmt.Errorf("%w: expires_in %q", ErrMalformedResponse, resp.ExpiresIn)
		}
		return Token{Value: resp.AccessToken, ExpiresAt: g.now().Add(time.Duration(seconds) * time.Second)}, nil
	}
}

// authorized performs a bearer-authenticated call and drops the token on 401.
func (g *MobileMoneyGateway) authorized(ctx context.Context, op, endpoint string, in, out any) (int, []byte, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return 0, nil, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	status, raw, err := g.http.do(ctx, op, http.MethodPost, endpoint, headers, in, out, http.StatusOK)
	if err == nil && status == http.StatusUnauthorized {
		g.tokens.Invalidate(token)
		return status, raw, &AuthError{Err: fmt.Errorf("%s: token rejected", op)}
	}
	return status, raw, err
}

// Execute sends the payment prompt. The customer confirms on their handset, so
// the attempt stays PROCESSING until a query or callback reports the result.
func (g *MobileMoneyGateway) Execute(ctx context.Context, req Request) (Result, error) {
	const op = "stk_push"
	body := stkPushRequest{
		BusinessShortCode: g.shortCode,
		Timestamp:         g.now().Format(stkTimestampLayout),
		TransactionType:   stkTransactionType,
		Amount:            req.Amount.IntPart(),
		PartyA:            req.Details["msisdn"],
		PartyB:            g.shortCode,
		PhoneNumber:       req.Details["msisdn"],
		CallBackURL:       g.callback,
		AccountReference:  req.OrderNumber,
		TransactionDesc:   req.TransactionID,
	}

	var resp stkPushResponse
	status, raw, err := g.authorized(ctx, op, g.http.endpoint("mpesa", "stkpush", "v1", "processrequest"), body, &resp)
	if err != nil {
		return Result{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusBadRequest:
		_ = json.Unmarshal(raw, &resp)
		return Result{Status: model.PaymentStatusFailed, Message: trimMessage(resp.ErrorMessage, "payment prompt rejected")}, nil
	default:
		return Result{}, g.http.unexpected(op, status, raw)
	}

	if resp.ResponseCode != stkResponseAccepted || resp.CheckoutRequestID == "" {
		return Result{Reference: resp.CheckoutRequestID, Status: model.PaymentStatusFailed, Message: trimMessage(resp.ResponseDescription, "payment prompt rejected")}, nil
	}
	return Result{Reference: resp.CheckoutRequestID, Status: model.PaymentStatusProcessing, Message: trimMessage(resp.ResponseDescription, "payment prompt sent")}, nil
}

// CheckStatus queries the outcome of a previously sent prompt.
func (g *MobileMoneyGateway) CheckStatus(ctx context.Context, reference string) (Result, error) {
	const op = "stk_query"
	body := stkQueryRequest{
		BusinessShortCode: g.shortCode,
		Timestamp:         g.now().Format(stkTimestampLayout),
		CheckoutRequestID: reference,
	}

	var resp stkQueryResponse
	status, raw, err := g.authorized(ctx, op, g.http.endpoint("mpesa", "stkpushquery", "v1", "query"), body, &resp)
	if err != nil {
		// the provider answers 500 while the customer has not responded yet
		var transient *TransientError
		if errors.As(err, &transient) && len(raw) > 0 && json.Unmarshal(raw, &resp) == nil && resp.ErrorCode == stkStillProcessing {
			return Result{Reference: reference, Status: model.PaymentStatusProcessing, Message: trimMessage(resp.ErrorMessage, "awaiting customer")}, nil
		}
		return Result{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusBadRequest:
		_ = json.Unmarshal(raw, &resp)
		if resp.ErrorCode == stkStillProcessing {
			return Result{Reference: reference, Status: model.PaymentStatusProcessing, Message: "awaiting customer"}, nil
		}
		return Result{}, g.http.unexpected(op, status, raw)
	default:
		return Result{}, g.http.unexpected(op, status, raw)
	}
	return stkResult(reference, resp.ResultCode.String(), resp.ResultDesc), nil
}

// ParseCallback decodes the provider's asynchronous result notification.
func (g *MobileMoneyGateway) ParseCallback(body []byte) (Result, error) {
	var envelope stkCallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	cb := envelope.Body.STKCallback
	if cb.CheckoutRequestID == "" || cb.ResultCode == "" {
		return Result{}, fmt.Errorf("%w: incomplete callback", ErrMalformedResponse)
	}
	return stkResult(cb.CheckoutRequestID, cb.ResultCode.String(), cb.ResultDesc), nil
}

func stkResult(reference, code, desc string) Result {
	if code == stkResultSuccess {
		return Result{Reference: reference, Status: model.PaymentStatusCompleted, Message: trimMessage(desc, "payment confirmed")}
	}
	return Result{Reference: reference, Status: model.PaymentStatusFailed, Message: trimMessage(desc, "payment not confirmed (code "+code+")")}
}
