package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Category classifies a backend failure.
type Category string

const (
	// CategoryQuota covers rate limits and exhausted quota.
	CategoryQuota Category = "quota"
	// CategoryUnavailable covers outages and timeouts.
	CategoryUnavailable Category = "unavailable"
	// CategoryInvalidModel covers unknown models and rejected requests.
	CategoryInvalidModel Category = "invalid_model"
	// CategoryUnclassified is everything else.
	CategoryUnclassified Category = "unclassified"
)

// Categorize maps err to a Category. It understands langchaingo's error
// codes, gRPC status codes and Google API HTTP errors.
func Categorize(err error) Category {
	var lerr *llms.Error
	if errors.As(err, &lerr) {
		switch lerr.Code {
		case llms.ErrCodeRateLimit, llms.ErrCodeQuotaExceeded:
			return CategoryQuota
		case llms.ErrCodeProviderUnavailable, llms.ErrCodeTimeout:
			return CategoryUnavailable
		case llms.ErrCodeResourceNotFound, llms.ErrCodeInvalidRequest:
			return CategoryInvalidModel
		}
		if lerr.Cause != nil && lerr.Cause != err {
			if c := Categorize(lerr.Cause); c != CategoryUnclassified {
				return c
			}
		}
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted:
			return CategoryQuota
		case codes.Unavailable, codes.DeadlineExceeded:
			return CategoryUnavailable
		case codes.NotFound, codes.InvalidArgument:
			return CategoryInvalidModel
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return CategoryQuota
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return CategoryUnavailable
		case http.StatusNotFound, http.StatusBadRequest:
			return CategoryInvalidModel
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryUnavailable
	}
	return CategoryUnclassified
}
