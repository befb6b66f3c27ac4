package transport

import (
	"context"
	"sync"
	"time"

	"github.com/srg/divex/internal/groutine"
)

// notifyQueue is the device handle's receive queue (spec: "unbounded
// semantically... drop-oldest on overflow ruled out — the transport MUST
// NOT lose notifications while a transfer is in flight").
//
// The teacher's BLECharacteristic.EnqueueValue drops the oldest queued
// value once its fixed-size channel fills. That's wrong here: a segmented
// SDO transfer can have many notifications in flight between two recv
// calls, and losing one desyncs the toggle. notifyQueue instead pumps
// through a growable internal slice, so push never blocks and never
// drops — only the process's memory bounds it.
type notifyQueue struct {
	in       chan []byte
	out      chan []byte
	drainReq chan chan struct{}
	stopped  chan struct{}
	cancel   context.CancelFunc
	closeMu  sync.Mutex
	inClosed bool
}

func newNotifyQueue() *notifyQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &notifyQueue{
		in:       make(chan []byte, 1),
		out:      make(chan []byte),
		drainReq: make(chan chan struct{}),
		stopped:  make(chan struct{}),
		cancel:   cancel,
	}
	groutine.Go(ctx, "transport-notify-pump", q.pump)
	return q
}

// push enqueues a received payload. May be called concurrently with
// closeInput (the go-ble notification callback and the disconnect watcher
// run on different goroutines); closeMu makes the two mutually exclusive
// so push never sends on a channel closeInput has already closed.
func (q *notifyQueue) push(data []byte) {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.inClosed {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	q.in <- cp
}

// closeInput signals that no more values will be pushed. Called when the
// forwarder stops (disconnect, or the notification source closed). Safe
// to call more than once.
func (q *notifyQueue) closeInput() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if !q.inClosed {
		q.inClosed = true
		close(q.in)
	}
}

func (q *notifyQueue) pump(ctx context.Context) {
	defer close(q.out)
	defer close(q.stopped)
	var buf [][]byte
	inOpen := true

	// drainNow discards buf and anything already sitting in q.in, so a
	// drain request serviced here sees the same state a concurrent push
	// would race against — nothing queued survives it.
	drainNow := func(done chan struct{}) {
		buf = nil
		for {
			select {
			case _, ok := <-q.in:
				if !ok {
					inOpen = false
					close(done)
					return
				}
			default:
				close(done)
				return
			}
		}
	}

	for inOpen || len(buf) > 0 {
		if len(buf) == 0 {
			select {
			case v, ok := <-q.in:
				if !ok {
					inOpen = false
					continue
				}
				buf = append(buf, v)
			case done := <-q.drainReq:
				drainNow(done)
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case v, ok := <-q.in:
			if !ok {
				inOpen = false
				continue
			}
			buf = append(buf, v)
		case q.out <- buf[0]:
			buf = buf[1:]
		case done := <-q.drainReq:
			drainNow(done)
		case <-ctx.Done():
			return
		}
	}
}

// pop returns the next payload, blocking up to timeout. Returns ErrTimeout
// if nothing arrives in time, ErrChannelClosed if the forwarder has exited
// and the queue has drained.
func (q *notifyQueue) pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v, ok := <-q.out:
		if !ok {
			return nil, ErrChannelClosed
		}
		return v, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drain removes all currently queued payloads, including any not yet
// forwarded from the pump's internal buffer to q.out. It hands the pump
// goroutine a request and waits for it to service it, so the two never
// race over what "currently queued" means. A no-op if the pump has
// already stopped.
func (q *notifyQueue) drain() {
	done := make(chan struct{})
	select {
	case q.drainReq <- done:
	case <-q.stopped:
		return
	}
	select {
	case <-done:
	case <-q.stopped:
	}
}

// stop tears down the pump goroutine. Safe to call after closeInput.
func (q *notifyQueue) stop() {
	q.cancel()
}
