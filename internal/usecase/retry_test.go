package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/test"
)

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	transient := &gateway.TransientError{Op: "op", Err: errors.New("reset")}

	cases := []struct {
		name    string
		errs    []error
		calls   int
		wantErr bool
	}{
		{name: "first try", errs: []error{nil}, calls: 1},
		{name: "recovers", errs: []error{transient, nil}, calls: 2},
		{name: "exhausted", errs: []error{transient, transient, transient, nil}, calls: 3, wantErr: true},
		{name: "permanent", errs: []error{errors.New("bad request"), nil}, calls: 1, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			got, err := withRetry(context.Background(), policy, test.DiscardLogger(), "op", func(context.Context) (int, error) {
				e := tc.errs[calls]
				calls++
				if e != nil {
					return 0, e
				}
				return 42, nil
			})
			if calls != tc.calls {
				t.Fatalf("expected %d calls, got %d", tc.calls, calls)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !tc.wantErr && got != 42 {
				t.Fatalf("expected result, got %d", got)
			}
		})
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 10, InitialInterval: time.Hour}

	calls := 0
	_, err := withRetry(ctx, policy, test.DiscardLogger(), "op", func(context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, &gateway.AuthError{Err: errors.New("expired")}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected cancellation to stop retries, calls=%d err=%v", calls, err)
	}
}

func TestNewRetryPolicy(t *testing.T) {
	cfg := &config.Config{GatewayMaxRetries: 4, GatewayRetryBackoff: time.Second, GatewayTimeout: 3 * time.Second}
	policy := NewRetryPolicy(cfg)
	if policy.MaxRetries != 4 || policy.InitialInterval != time.Second || policy.MaxInterval != 3*time.Second {
		t.Fatalf("unexpected policy %+v", policy)
	}
}
