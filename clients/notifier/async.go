package notifier

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultQueueSize is the number of notices an AsyncNotifier buffers.
const DefaultQueueSize = 32

// AsyncNotifier hands notices to a slow channel (chat APIs) on its own
// goroutine so callers never wait on the network. Notices arriving while the
// queue is full are dropped.
type AsyncNotifier struct {
	logger *zap.Logger
	next   Notifier

	mu     sync.RWMutex
	closed bool
	queue  chan Notice
	done   chan struct{}
	once   sync.Once
	err    error
}

func NewAsyncNotifier(logger *zap.Logger, next Notifier, size int) *AsyncNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &AsyncNotifier{
		logger: logger,
		next:   next,
		queue:  make(chan Notice, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncNotifier) run() {
	defer close(a.done)
	for n := range a.queue {
		a.next.SendNotice(n)
	}
}

// SendNotice queues n and returns immediately.
func (a *AsyncNotifier) SendNotice(n Notice) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- n:
	default:
		a.logger.Warn("notice queue full, dropping notice",
			zap.String("action", n.Action),
			zap.String("message", n.Message),
		)
	}
}

// Close delivers what is already queued, then closes the wrapped notifier.
func (a *AsyncNotifier) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
		<-a.done
		a.err = a.next.Close()
	})
	return a.err
}
