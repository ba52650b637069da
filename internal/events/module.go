package events

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/config"
)

// Module provides the event bus and forwards events to kafka when brokers are configured.
var Module = fx.Options(
	fx.Provide(
		NewBus,
		func(b *Bus) Publisher { return b },
	),
	fx.Invoke(registerKafka),
)

type kafkaParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
	Bus       *Bus
}

func registerKafka(p kafkaParams) {
	if len(p.Config.KafkaBrokers) == 0 {
		p.Logger.Info("kafka brokers not configured, events stay in process")
		return
	}
	publisher := NewKafkaPublisher(p.Config.KafkaBrokers, p.Config.KafkaTopic, p.Logger)
	p.Bus.Subscribe(AllEvents, publisher.Publish)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
}
