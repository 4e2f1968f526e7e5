package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/ai/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func backends(bs ...*mock.MockBackend) []ai.Backend {
	out := make([]ai.Backend, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

func TestNewDispatcher(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.ErrorIs(t, err, ErrNoBackends)

	_, err = NewDispatcher([]ai.Backend{nil})
	assert.Error(t, err)

	d, err := NewDispatcher(backends(mock.NewMockBackend("a", ""), mock.NewMockBackend("b", "")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, d.Backends())
}

func TestGenerate_FailsOver(t *testing.T) {
	a := mock.NewFailingBackend("a", llms.NewError(llms.ErrCodeRateLimit, "googleai", "quota exceeded"))
	b := mock.NewFailingBackend("b", llms.NewError(llms.ErrCodeResourceNotFound, "googleai", "model not found"))
	c := mock.NewMockBackend("c", "C says hi")

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_attempts_total"}, []string{"backend", "outcome"})
	d, err := NewDispatcher(backends(a, b, c), WithMetrics(attempts, nil))
	require.NoError(t, err)

	text, err := d.Generate(context.Background(), ai.TextPart("hello"))
	require.NoError(t, err)
	assert.Equal(t, "C says hi", text)
	assert.Equal(t, 1, a.CallCount())
	assert.Equal(t, 1, b.CallCount())
	assert.Equal(t, 1, c.CallCount())
	assert.Equal(t, "hello", c.LastPrompt())

	assert.Equal(t, float64(1), testutil.ToFloat64(attempts.WithLabelValues("a", "quota")))
	assert.Equal(t, float64(1), testutil.ToFloat64(attempts.WithLabelValues("b", "invalid_model")))
	assert.Equal(t, float64(1), testutil.ToFloat64(attempts.WithLabelValues("c", "success")))
}

func TestGenerate_StopsAtFirstSuccess(t *testing.T) {
	a := mock.NewMockBackend("a", "first")
	b := mock.NewMockBackend("b", "second")
	d, err := NewDispatcher(backends(a, b))
	require.NoError(t, err)

	text, err := d.Generate(context.Background(), ai.TextPart("x"))
	require.NoError(t, err)
	assert.Equal(t, "first", text)
	assert.Zero(t, b.CallCount())
}

func TestGenerate_Exhausted(t *testing.T) {
	a := mock.NewFailingBackend("gemini-2.5-flash", llms.NewError(llms.ErrCodeQuotaExceeded, "googleai", "billing"))
	b := mock.NewFailingBackend("gemini-2.0-flash", errors.New("socket hang up"))
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_exhausted_total"})
	d, err := NewDispatcher(backends(a, b), WithMetrics(nil, exhausted))
	require.NoError(t, err)

	_, err = d.Generate(context.Background(), ai.TextPart("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	assert.Contains(t, err.Error(), "gemini-2.0-flash")
	assert.Contains(t, err.Error(), "socket hang up")

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	require.Len(t, ex.Attempts, 2)
	assert.Equal(t, CategoryQuota, ex.Attempts[0].Category)
	assert.Equal(t, CategoryUnclassified, ex.Attempts[1].Category)
	assert.Equal(t, float64(1), testutil.ToFloat64(exhausted))

	t.Run("no cooldown between calls", func(t *testing.T) {
		_, err := d.Generate(context.Background(), ai.TextPart("x"))
		assert.ErrorIs(t, err, ErrGenerationExhausted)
		assert.Equal(t, 2, a.CallCount())
		assert.Equal(t, 2, b.CallCount())
	})
}

func TestGenerate_PerAttemptTimeout(t *testing.T) {
	slow := mock.NewMockBackend("slow", "")
	slow.GenerateFunc = func(ctx context.Context, parts []ai.Part) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	fast := mock.NewMockBackend("fast", "ok")
	d, err := NewDispatcher(backends(slow, fast), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	text, err := d.Generate(context.Background(), ai.TextPart("x"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGenerate_CancelledContext(t *testing.T) {
	a := mock.NewMockBackend("a", "ok")
	d, err := NewDispatcher(backends(a))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Generate(ctx, ai.TextPart("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.CallCount())
}

func TestGenerate_BinaryParts(t *testing.T) {
	a := mock.NewMockBackend("a", "a cat")
	d, err := NewDispatcher(backends(a))
	require.NoError(t, err)

	_, err = d.Generate(context.Background(), ai.TextPart("describe"), ai.BinaryPart("image/png", []byte{0x89, 'P'}))
	require.NoError(t, err)
	parts := a.LastParts()
	require.Len(t, parts, 2)
	assert.True(t, parts[1].IsBinary())
	assert.Equal(t, "image/png", parts[1].MIMEType)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"llms rate limit", llms.NewError(llms.ErrCodeRateLimit, "googleai", "429"), CategoryQuota},
		{"llms quota", llms.NewError(llms.ErrCodeQuotaExceeded, "openai", "billing"), CategoryQuota},
		{"llms unavailable", llms.NewError(llms.ErrCodeProviderUnavailable, "googleai", "503"), CategoryUnavailable},
		{"llms timeout", llms.NewError(llms.ErrCodeTimeout, "openai", "slow"), CategoryUnavailable},
		{"llms not found", llms.NewError(llms.ErrCodeResourceNotFound, "googleai", "model not found"), CategoryInvalidModel},
		{"llms invalid request", llms.NewError(llms.ErrCodeInvalidRequest, "googleai", "400"), CategoryInvalidModel},
		{"llms unknown with grpc cause",
			llms.NewError(llms.ErrCodeUnknown, "googleai", "x").WithCause(status.Error(codes.ResourceExhausted, "quota")),
			CategoryQuota},
		{"llms auth", llms.NewError(llms.ErrCodeAuthentication, "googleai", "bad key"), CategoryUnclassified},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), CategoryQuota},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), CategoryUnavailable},
		{"grpc not found", status.Error(codes.NotFound, "no model"), CategoryInvalidModel},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad"), CategoryInvalidModel},
		{"wrapped grpc", fmt.Errorf("generate: %w", status.Error(codes.Unavailable, "down")), CategoryUnavailable},
		{"googleapi 429", &googleapi.Error{Code: 429}, CategoryQuota},
		{"googleapi 503", &googleapi.Error{Code: 503}, CategoryUnavailable},
		{"googleapi 404", &googleapi.Error{Code: 404}, CategoryInvalidModel},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CategoryUnavailable},
		{"plain", errors.New("boom"), CategoryUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}
