package logger

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module provides the JSON logger and installs it as the slog default so
// packages logging through slog.Default share its level and format.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(slog.SetDefault),
)
