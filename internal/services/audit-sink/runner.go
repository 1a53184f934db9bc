package auditsink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
)

type Runner struct {
	log  *zap.Logger
	cons *kafkax.Consumer
	h    *Handler
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, h *Handler) *Runner {
	return &Runner{log: log, cons: cons, h: h}
}

func (r *Runner) Run(ctx context.Context) error {
	err := r.cons.Consume(ctx, kafkax.SessionEventHandler(r.h.Handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
