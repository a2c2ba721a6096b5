package audit

import (
	"context"
	"sync"
	"time"

	"github.com/familyspend/ExpenseTracker/internal/log"
)

const (
	DefaultQueueSize = 256
	storeTimeout     = 5 * time.Second
)

// Recorder queues entries and writes them to every store from a single
// worker goroutine.
type Recorder struct {
	stores []Store
	queue  chan Entry
	logger *log.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRecorder(queueSize int, logger *log.Logger, stores ...Store) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		stores: stores,
		queue:  make(chan Entry, queueSize),
		logger: logger.WithComponent(log.ComponentAudit),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go r.worker()
	return r
}

// Record enqueues entry. When the queue is full the entry is dropped.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	entry.normalize(r.now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.WarnContext(ctx, "audit recorder closed, dropping entry",
			log.FieldAction, string(entry.Action), log.FieldResource, entry.Resource)
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.WarnContext(ctx, "audit queue full, dropping entry",
			log.FieldAction, string(entry.Action), log.FieldResource, entry.Resource)
	}
}

func (r *Recorder) worker() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry Entry) {
	for _, store := range r.stores {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := store.Write(ctx, entry); err != nil {
			r.logger.Error("failed to write audit entry",
				log.FieldAction, string(entry.Action),
				log.FieldResource, entry.Resource,
				log.FieldError, err)
		}
		cancel()
	}
}

// Close stops accepting entries and blocks until the queue is drained.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}
