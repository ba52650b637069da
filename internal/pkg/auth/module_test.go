package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/gophercheckout/internal/config"
)

func TestNewTokenStrategy(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{name: "configured ttl", ttl: time.Hour, want: time.Hour},
		{name: "default ttl", want: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := newTokenStrategy(strategyParams{
				Config: &config.Config{AuthSecret: "top-secret", AuthTokenTTL: tt.ttl},
				Logger: logger,
			})
			hmacStrategy, ok := strategy.(*HMACStrategy)
			if !ok {
				t.Fatalf("expected *HMACStrategy, got %T", strategy)
			}
			if string(hmacStrategy.secret) != "top-secret" {
				t.Fatalf("unexpected secret: %q", string(hmacStrategy.secret))
			}
			if hmacStrategy.ttl != tt.want {
				t.Fatalf("unexpected ttl: %s", hmacStrategy.ttl)
			}
		})
	}
}

func TestIssuedTokenExpiresAfterConfiguredTTL(t *testing.T) {
	strategy := newTokenStrategy(strategyParams{
		Config: &config.Config{AuthSecret: "s", AuthTokenTTL: time.Minute},
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}).(*HMACStrategy)

	issued := time.Unix(1_700_000_000, 0)
	strategy.now = func() time.Time { return issued }
	token, err := strategy.IssueToken(Principal{UserID: 1, Roles: []string{RoleCustomer}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	strategy.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := strategy.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
