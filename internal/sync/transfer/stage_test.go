package transfer

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStage(t *testing.T) {
	h := NewHashStage()
	out, err := io.ReadAll(h.Wrap(bytes.NewReader([]byte("payload"))))
	require.NoError(t, err)

	assert.Equal(t, "payload", string(out))
	assert.Equal(t, "321c3cf486ed509164edec1e1981fec8", h.Sum())
	assert.Equal(t, int64(7), h.Bytes())
}

// advanceWhileWaiting moves a fake clock forward whenever something is
// blocked on it, until ctx is done.
func advanceWhileWaiting(ctx context.Context, clock *clockwork.FakeClock, step time.Duration) {
	for {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			return
		}
		clock.Advance(step)
	}
}

func TestThrottleStage_RateBound(t *testing.T) {
	const limit = 10_000
	data := bytes.Repeat([]byte("x"), 100_000)

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go advanceWhileWaiting(ctx, clock, 5*time.Millisecond)

	stage := NewThrottleStage(ctx, limit, clock)
	assert.Equal(t, limit, stage.Burst())

	start := clock.Now()
	n, err := io.Copy(io.Discard, stage.Wrap(bytes.NewReader(data)))
	require.NoError(t, err)
	elapsed := clock.Since(start)

	assert.Equal(t, int64(len(data)), n)
	// The bucket starts full, so at most one burst rides on top of the limit.
	minElapsed := time.Duration(float64(len(data)-stage.Burst()) / limit * float64(time.Second))
	assert.GreaterOrEqual(t, elapsed, minElapsed-time.Millisecond)
	assert.LessOrEqual(t, float64(n), limit*elapsed.Seconds()+float64(stage.Burst())+1)
	assert.Less(t, elapsed, minElapsed+time.Second)
}

func TestThrottleStage_SmallLimitCapsReads(t *testing.T) {
	stage := NewThrottleStage(context.Background(), 100, clockwork.NewFakeClock())
	assert.Equal(t, 100, stage.Burst())

	r := stage.Wrap(bytes.NewReader(make([]byte, 1000)))
	buf := make([]byte, 512)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestThrottleStage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := NewThrottleStage(ctx, 10, clockwork.NewFakeClock())
	r := stage.Wrap(bytes.NewReader(make([]byte, 100)))

	buf := make([]byte, 10)
	_, err := r.Read(buf)
	require.NoError(t, err)

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}
