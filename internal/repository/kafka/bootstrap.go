package kafka

import (
	"context"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the topic exists before joining the group.
// A failure to create it is logged and the reader is still returned; it will
// keep retrying on its own.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, spec TopicSpec, logger *zap.Logger) *Consumer {
	spec.Name = cfg.Topic
	if err := EnsureTopic(ctx, cfg.Brokers, spec, logger); err != nil && logger != nil {
		logger.Warn("ensure topic before consume", zap.Error(err))
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, cfg ProducerConfig, spec TopicSpec) *Producer {
	spec.Name = cfg.Topic
	if err := EnsureTopic(ctx, cfg.Brokers, spec, cfg.Logger); err != nil && cfg.Logger != nil {
		cfg.Logger.Warn("ensure topic before produce", zap.Error(err))
	}
	return NewProducer(cfg)
}
