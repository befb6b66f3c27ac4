package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyQueue_FIFOOrder(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	q.push([]byte("one"))
	q.push([]byte("two"))
	q.push([]byte("three"))

	for _, want := range []string{"one", "two", "three"} {
		got, err := q.pop(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestNotifyQueue_NeverDropsUnderBurst(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	const n = 10_000
	for i := 0; i < n; i++ {
		q.push([]byte{byte(i % 256)})
	}

	for i := 0; i < n; i++ {
		got, err := q.pop(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, byte(i%256), got[0])
	}
}

func TestNotifyQueue_PopTimesOutWhenEmpty(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	_, err := q.pop(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNotifyQueue_ClosedAfterInputClosed(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	q.closeInput()
	_, err := q.pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestNotifyQueue_Drain(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	q.push([]byte("stale-1"))
	q.push([]byte("stale-2"))
	q.drain()

	_, err := q.pop(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

// TestNotifyQueue_DrainRacesPushWithoutSleep exercises drain() with no
// settling delay: pushes land concurrently with the drain call, so a
// payload can still be sitting in q.in or the pump's internal buffer
// rather than already forwarded to q.out. drain() must still remove it.
func TestNotifyQueue_DrainRacesPushWithoutSleep(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.push([]byte("stale-1"))
		q.push([]byte("stale-2"))
	}()
	q.drain()
	<-done
	q.drain()

	_, err := q.pop(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNotifyQueue_PushAfterCloseIsIgnored(t *testing.T) {
	q := newNotifyQueue()
	defer q.stop()

	q.closeInput()
	q.push([]byte("too-late")) // must not panic

	_, err := q.pop(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrChannelClosed)
}
