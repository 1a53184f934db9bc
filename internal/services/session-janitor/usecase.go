package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RefreshLedger interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

type RevocationRegistry interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

type Outbox interface {
	PurgeProcessed(ctx context.Context, before time.Time, limit int) (int64, error)
}

type Policy struct {
	// RefreshRetention keeps expired refresh records around for reuse
	// detection before they are deleted.
	RefreshRetention time.Duration
	OutboxRetention  time.Duration
	// MaxRounds bounds how many batches one tick deletes per table.
	MaxRounds int
}

type Result struct {
	Refresh     int64
	Revocations int64
	Outbox      int64
}

func (r Result) Total() int64 { return r.Refresh + r.Revocations + r.Outbox }

type Usecase struct {
	Ledger   RefreshLedger
	Registry RevocationRegistry
	Outbox   Outbox
	Policy   Policy
	Now      func() time.Time
}

func NewUC(ledger RefreshLedger, registry RevocationRegistry, ob Outbox, p Policy) *Usecase {
	if p.MaxRounds <= 0 {
		p.MaxRounds = 10
	}
	return &Usecase{
		Ledger:   ledger,
		Registry: registry,
		Outbox:   ob,
		Policy:   p,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Tick runs one retention pass. A failing table does not stop the others;
// the returned error joins every failure.
func (u *Usecase) Tick(ctx context.Context, limit int) (Result, error) {
	if limit <= 0 {
		limit = 500
	}
	now := u.Now()

	tr := otel.Tracer("janitor.uc")
	ctx, span := tr.Start(ctx, "janitor.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	var (
		res  Result
		errs []error
	)
	if u.Ledger != nil {
		n, err := u.drain(ctx, "refresh_tokens", limit, func(ctx context.Context) (int64, error) {
			return u.Ledger.DeleteExpired(ctx, now.Add(-u.Policy.RefreshRetention), limit)
		})
		res.Refresh = n
		errs = append(errs, err)
	}
	if u.Registry != nil {
		n, err := u.drain(ctx, "revoked_tokens", limit, func(ctx context.Context) (int64, error) {
			return u.Registry.DeleteExpired(ctx, now, limit)
		})
		res.Revocations = n
		errs = append(errs, err)
	}
	if u.Outbox != nil {
		n, err := u.drain(ctx, "outbox", limit, func(ctx context.Context) (int64, error) {
			return u.Outbox.PurgeProcessed(ctx, now.Add(-u.Policy.OutboxRetention), limit)
		})
		res.Outbox = n
		errs = append(errs, err)
	}

	span.SetAttributes(
		attribute.Int64("deleted.refresh", res.Refresh),
		attribute.Int64("deleted.revocations", res.Revocations),
		attribute.Int64("deleted.outbox", res.Outbox),
	)
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (u *Usecase) drain(ctx context.Context, table string, limit int, step func(context.Context) (int64, error)) (int64, error) {
	tr := otel.Tracer("janitor.uc")
	ctx, span := tr.Start(ctx, "janitor.drain", trace.WithAttributes(attribute.String("table", table)))
	defer span.End()

	var total int64
	for round := 0; round < u.Policy.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := step(ctx)
		total += n
		if err != nil {
			span.RecordError(err)
			return total, fmt.Errorf("%s: %w", table, err)
		}
		deleted.WithLabelValues(table).Add(float64(n))
		if n < int64(limit) {
			break
		}
	}
	span.SetAttributes(attribute.Int64("deleted", total))
	return total, nil
}
