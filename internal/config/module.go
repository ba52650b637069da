package config

import "go.uber.org/fx"

// Module loads Config from process flags and environment.
var Module = fx.Provide(Load)
