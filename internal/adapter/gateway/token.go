package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/polkiloo/gophercheckout/internal/metrics"
)

const (
	defaultTokenSkew      = 30 * time.Second
	defaultRefreshTimeout = 10 * time.Second
)

var errEmptyToken = errors.New("provider returned empty access token")

// Token is a bearer credential and the instant it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) validAt(at time.Time) bool {
	return t.Value != "" && at.Before(t.ExpiresAt)
}

// TokenFetcher obtains a new token from the provider.
type TokenFetcher func(ctx context.Context) (Token, error)

// TokenSource caches a single bearer token and refreshes it lazily.
// Concurrent callers share one in-flight refresh.
type TokenSource struct {
	mu    sync.Mutex
	token Token

	group          singleflight.Group
	fetch          TokenFetcher
	skew           time.Duration
	refreshTimeout time.Duration
	now            func() time.Time

	logger  *slog.Logger
	metrics *metrics.Collectors
}

// NewTokenSource creates a cache around fetch.
func NewTokenSource(fetch TokenFetcher, logger *slog.Logger, m *metrics.Collectors) *TokenSource {
	return &TokenSource{
		fetch:          fetch,
		skew:           defaultTokenSkew,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
		logger:         logger,
		metrics:        m,
	}
}

func (s *TokenSource) cached() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Token returns a usable bearer token, refreshing it when it is missing or about to expire.
// When a refresh fails the previous token is served until it actually expires.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if current := s.cached(); current.validAt(s.now().Add(s.skew)) {
		return current.Value, nil
	}

	ch := s.group.DoChan("token", func() (any, error) {
		// another caller may have refreshed between the check and this flight
		if current := s.cached(); current.validAt(s.now().Add(s.skew)) {
			return current, nil
		}
		// the refresh outlives any single caller's cancellation
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()

		token, err := s.fetch(refreshCtx)
		if err == nil && token.Value == "" {
			err = errEmptyToken
		}
		if err != nil {
			s.metrics.TokenRefresh("error")
			return Token{}, err
		}
		s.metrics.TokenRefresh("ok")

		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(Token).Value, nil
		}
		if current := s.cached(); current.validAt(s.now()) {
			s.logger.Warn("token refresh failed, using cached token", slog.String("error", res.Err.Error()), slog.Time("expires_at", current.ExpiresAt))
			return current.Value, nil
		}
		return "", &AuthError{Err: res.Err}
	}
}

// Invalidate drops the cached token if it still equals value.
func (s *TokenSource) Invalidate(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token.Value == value {
		s.token = Token{}
	}
}
