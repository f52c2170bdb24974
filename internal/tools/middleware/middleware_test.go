package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/tools"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

func flakyTool(failures int, err error) (tools.Tool, *int) {
	calls := 0
	return tools.New("flaky", "fails a few times", func(ctx context.Context, args interface{}) (interface{}, error) {
		calls++
		if calls <= failures {
			return nil, err
		}
		return "ok", nil
	}), &calls
}

func TestRetryMiddleware(t *testing.T) {
	ctx := context.Background()

	t.Run("retries unavailable", func(t *testing.T) {
		tool, calls := flakyTool(2, errors.Wrap(errors.ErrUnavailable, "redis"))
		got, err := RetryMiddleware{Attempts: 3}.Wrap(tool).Execute(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, *calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		tool, calls := flakyTool(5, errors.ErrUnavailable)
		_, err := RetryMiddleware{Attempts: 2}.Wrap(tool).Execute(ctx, nil)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
		assert.Equal(t, 2, *calls)
	})

	t.Run("does not retry validation errors", func(t *testing.T) {
		tool, calls := flakyTool(1, errors.NewValidationError("offer", "bad", "x"))
		_, err := RetryMiddleware{Attempts: 3}.Wrap(tool).Execute(ctx, nil)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		assert.Equal(t, 1, *calls)
	})
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := tools.New("slow", "", func(ctx context.Context, args interface{}) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := TimeoutMiddleware{Timeout: 10 * time.Millisecond}.Wrap(slow).Execute(context.Background(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Same(t, slow, TimeoutMiddleware{}.Wrap(slow))
}

func TestChainKeepsIdentity(t *testing.T) {
	tool, _ := flakyTool(0, nil)
	wrapped := Chain(tool,
		MetricsMiddleware{Log: logger.Nop()},
		RetryMiddleware{Attempts: 2},
		TimeoutMiddleware{Timeout: time.Second},
	)

	assert.Equal(t, "flaky", wrapped.Name())
	got, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
