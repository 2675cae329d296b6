package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

var errBoom = errors.New("boom")

// TestDo_ReturnsValue passes through results and errors.
func TestDo_ReturnsValue(t *testing.T) {
	t.Parallel()

	v, err := Do(context.Background(), time.Second, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)

	err = Call(context.Background(), time.Second, func(context.Context) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
}

// TestDo_Timeout returns ErrCollaboratorTimeout for a stalled call.
func TestDo_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := Call(context.Background(), 20*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})

	require.ErrorIs(t, err, domain.ErrCollaboratorTimeout)
	require.Less(t, time.Since(start), time.Second)
}

// TestDo_RecoversPanic converts panics into errors.
func TestDo_RecoversPanic(t *testing.T) {
	t.Parallel()

	err := Call(context.Background(), time.Second, func(context.Context) error {
		panic("detector exploded")
	})
	require.ErrorContains(t, err, "detector exploded")
}

// TestDo_ParentCancel reports the parent's cancellation rather than a timeout.
func TestDo_ParentCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Call(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}
