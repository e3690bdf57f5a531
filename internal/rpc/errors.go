package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/kb"
	"github.com/signalsfoundry/framecheck/model"
)

// ErrInvalidRequest marks request fields that cannot be decoded.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps pipeline errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidTLE),
		errors.Is(err, core.ErrChecksum),
		errors.Is(err, core.ErrInvalidSite),
		errors.Is(err, model.ErrUnknownFrame):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, core.ErrPropagation):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
