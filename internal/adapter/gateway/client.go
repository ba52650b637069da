package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polkiloo/gophercheckout/internal/metrics"
)

const (
	maxErrorBody    = 512
	maxResponseBody = 1 << 20
)

// httpClient is the JSON transport shared by all adapters.
type httpClient struct {
	method  string
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collectors
}

func newHTTPClient(method, baseURL string, timeout time.Duration, logger *slog.Logger, m *metrics.Collectors) (*httpClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s gateway url: %w", method, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%s gateway url must be absolute", method)
	}
	return &httpClient{
		method:  method,
		baseURL: parsed,
		logger:  logger.With(slog.String("gateway", method)),
		metrics: m,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *httpClient) endpoint(elem ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{u.Path}, elem...)...)
	return u.String()
}

// do sends a JSON request and decodes JSON replies whose status is in accept.
// Other replies are returned as the status code with the drained body.
func (c *httpClient) do(ctx context.Context, op, httpMethod, endpoint string, headers http.Header, in, out any, accept ...int) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.GatewayCall(c.method, op, "network_error", time.Since(started))
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return 0, nil, err
		}
		return 0, nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	c.metrics.GatewayCall(c.method, op, statusOutcome(resp.StatusCode), time.Since(started))
	if err != nil {
		return resp.StatusCode, nil, &TransientError{Op: op, Err: err}
	}
	if len(raw) > maxResponseBody {
		c.logger.Error("gateway response too large", slog.String("op", op), slog.Int("status", resp.StatusCode))
		return resp.StatusCode, nil, fmt.Errorf("%s: %w: body exceeds %d bytes", op, ErrMalformedResponse, maxResponseBody)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("gateway replied with retryable status", slog.String("op", op), slog.Int("status", resp.StatusCode))
		return resp.StatusCode, raw, &TransientError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			if out != nil && len(raw) > 0 {
				if err := json.Unmarshal(raw, out); err != nil {
					return resp.StatusCode, raw, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
				}
			}
			return resp.StatusCode, raw, nil
		}
	}
	return resp.StatusCode, raw, nil
}

func (c *httpClient) unexpected(op string, status int, raw []byte) error {
	body := string(raw)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	c.logger.Error("gateway request failed", slog.String("op", op), slog.Int("status", status), slog.String("body", body))
	return &StatusError{Op: op, Status: status, Body: body}
}

func statusOutcome(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
