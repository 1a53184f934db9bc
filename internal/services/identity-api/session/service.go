// Package session implements the account and session lifecycle: register,
// password and Google sign-in, refresh rotation, logout and account admin.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/role"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
)

type Credentials interface {
	CreateUser(ctx context.Context, email, password string) (*user.User, error)
	VerifyPassword(ctx context.Context, email, password string) (*user.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Roles(ctx context.Context, id uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, id uuid.UUID, role string) error
	FindOrCreateExternalUser(ctx context.Context, ident user.ExternalIdentity) (*user.User, bool, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	Ban(ctx context.Context, id uuid.UUID, until *time.Time) error
}

type AccessIssuer interface {
	IssueAccess(userID uuid.UUID, email string, roles []string) (string, time.Time, error)
	SubjectOfAccess(token string) (uuid.UUID, error)
}

type ExternalValidator interface {
	Validate(ctx context.Context, idToken string) (*user.ExternalIdentity, error)
}

type EventSink interface {
	Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Credentials Credentials
	Access      AccessIssuer
	Refresh     RefreshStrategy
	External    ExternalValidator
	Events      EventSink
	Tx          Transactor
	Roles       *role.Hierarchy
	Logger      *zap.Logger
	Now         func() time.Time
}

type Service struct {
	creds    Credentials
	access   AccessIssuer
	refresh  RefreshStrategy
	external ExternalValidator
	events   EventSink
	tx       Transactor
	roles    *role.Hierarchy
	log      *zap.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

func NewService(d Deps) (*Service, error) {
	switch {
	case d.Credentials == nil:
		return nil, errors.New("session: credentials are required")
	case d.Access == nil:
		return nil, errors.New("session: access issuer is required")
	case d.Refresh == nil:
		return nil, errors.New("session: refresh strategy is required")
	case d.Events == nil:
		return nil, errors.New("session: event sink is required")
	case d.Tx == nil:
		return nil, errors.New("session: transactor is required")
	}
	if d.Roles == nil {
		d.Roles = role.NewHierarchy()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		creds:    d.Credentials,
		access:   d.Access,
		refresh:  d.Refresh,
		external: d.External,
		events:   d.Events,
		tx:       d.Tx,
		roles:    d.Roles,
		log:      d.Logger.With(zap.String("component", "session")),
		now:      d.Now,
		tracer:   otel.Tracer("identity-api.session"),
	}, nil
}

// begin opens the span and returns the function that records the outcome.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "session."+op)
	return ctx, func(errp *error) {
		err := *errp
		res := resultLabel(err)
		span.SetAttributes(attribute.String("session.result", res))
		if res == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, "internal")
		}
		span.End()
		observe(op, start, err)
	}
}

func (s *Service) Hierarchy() *role.Hierarchy { return s.roles }

// StrategyName is the configured refresh strategy.
func (s *Service) StrategyName() string { return s.refresh.Name() }

// fault turns anything that is not a domain rejection into an internal
// error. Domain rejections pass through unchanged.
func (s *Service) fault(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domainsession.AsAuthError(err); ok {
		return err
	}
	if _, ok := domainsession.AsValidationError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domainsession.ErrUnsupported) {
		return err
	}
	s.logWith(ctx).Error("session operation failed", zap.String("op", op), zap.Error(err))
	return err
}
