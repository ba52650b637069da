package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/fx"
)

func newShutdownApp(code int, onStop func(context.Context) error) *fx.App {
	return fx.New(
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle, s fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() { _ = s.Shutdown(fx.ExitCode(code)) }()
					return nil
				},
				OnStop: onStop,
			})
		}),
	)
}

func TestRunReturnsShutdownExitCode(t *testing.T) {
	var stderr bytes.Buffer
	app := newShutdownApp(3, nil)

	if code := run(context.Background(), app, &stderr); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}
}

func TestRunStartFailure(t *testing.T) {
	var stderr bytes.Buffer
	app := fx.New(
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{OnStart: func(context.Context) error { return errors.New("listen failed") }})
		}),
	)

	if code := run(context.Background(), app, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "failed to start application") {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}
}

func TestRunStopFailure(t *testing.T) {
	var stderr bytes.Buffer
	app := newShutdownApp(0, func(context.Context) error { return errors.New("flush failed") })

	if code := run(context.Background(), app, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "failed to stop application") {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}
}
