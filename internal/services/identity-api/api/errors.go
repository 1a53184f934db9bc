package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/NordCoder/Warden/internal/obs"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errBadToken     = errors.New("invalid or expired token")
	errForbidden    = errors.New("insufficient role")
)

const internalDetail = "An unexpected error occurred. Please try again later."

type class int

const (
	classInternal class = iota
	classValidation
	classAuth
	classForbidden
	classUnsupported
	classCanceled
)

func classify(err error) class {
	switch {
	case errors.Is(err, errForbidden):
		return classForbidden
	case errors.Is(err, errMissingToken), errors.Is(err, errBadToken):
		return classAuth
	case errors.Is(err, domainsession.ErrUnsupported):
		return classUnsupported
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return classCanceled
	}
	if _, ok := domainsession.AsValidationError(err); ok {
		return classValidation
	}
	if _, ok := domainsession.AsAuthError(err); ok {
		return classAuth
	}
	return classInternal
}

// invalid builds a single-field validation error for transport-level parsing.
func invalid(field, msg string) error {
	ve := domainsession.NewValidationError()
	ve.Add(field, msg)
	return ve
}

func (s *Server) mapErr(ctx context.Context, op string, err error) error {
	switch classify(err) {
	case classValidation:
		ve, _ := domainsession.AsValidationError(err)
		st := status.New(codes.InvalidArgument, "Validation Error")
		br := &errdetails.BadRequest{}
		for field, msgs := range ve.Fields {
			for _, m := range msgs {
				br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
					Field:       field,
					Description: m,
				})
			}
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()
	case classAuth:
		return status.Error(codes.Unauthenticated, err.Error())
	case classForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case classUnsupported:
		return status.Error(codes.Unimplemented, err.Error())
	case classCanceled:
		return status.FromContextError(err).Err()
	default:
		obs.WithTrace(ctx, s.log).Error("rpc failed", zap.String("op", op), zap.Error(err))
		obs.CaptureError(ctx, op, err)
		return status.Error(codes.Internal, "internal error")
	}
}

func problemFor(ctx context.Context, log *zap.Logger, op string, err error) problem {
	switch classify(err) {
	case classValidation:
		ve, _ := domainsession.AsValidationError(err)
		return problem{Title: "Validation Error", Status: http.StatusBadRequest, Errors: ve.Fields}
	case classAuth:
		return problem{Title: "Authentication Failed", Status: http.StatusUnauthorized, Detail: err.Error()}
	case classForbidden:
		return problem{Title: "Forbidden", Status: http.StatusForbidden, Detail: err.Error()}
	case classUnsupported:
		return problem{Title: "Not Implemented", Status: http.StatusNotImplemented, Detail: err.Error()}
	case classCanceled:
		return problem{Title: "Request Canceled", Status: http.StatusServiceUnavailable, Detail: err.Error()}
	default:
		obs.WithTrace(ctx, log).Error("request failed", zap.String("op", op), zap.Error(err))
		obs.CaptureError(ctx, op, err)
		return problem{Title: "Server Error", Status: http.StatusInternalServerError, Detail: internalDetail}
	}
}
