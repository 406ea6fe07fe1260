// Package audit records authentication lifecycle events asynchronously.
// Recording never blocks or fails the request path: when the buffer is full
// the event is dropped and counted.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/es"
	"github.com/blogplatform/auth_service/internal/mykafka"
)

const (
	EventUserRegistered  = "user_registered"
	EventUserLoggedIn    = "user_logged_in"
	EventUserLoggedOut   = "user_logged_out"
	EventSessionsRevoked = "sessions_revoked"
	EventTokenRefreshed  = "token_refreshed"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
}

const defaultBuffer = 256

// Recorder fans audit events out to kafka and elasticsearch from a single
// worker goroutine. Either sink may be nil.
type Recorder struct {
	producer *mykafka.Producer
	search   *es.Client
	index    string
	logger   *slog.Logger

	ch      chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once
}

// NewRecorder starts the worker. A non-positive buffer falls back to the
// default capacity.
func NewRecorder(producer *mykafka.Producer, search *es.Client, index string, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Recorder{
		producer: producer,
		search:   search,
		index:    index,
		logger:   logger,
		ch:       make(chan Event, buffer),
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues an event, dropping it if the buffer is full.
func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case r.ch <- event:
	case <-r.done:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close drains the buffer and stops the worker.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.ch:
			r.emit(event)
		case <-r.done:
			for {
				select {
				case event := <-r.ch:
					r.emit(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) emit(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.producer != nil {
		if err := r.producer.PublishEvent(ctx, event.UserID, event); err != nil {
			r.logger.Error("audit kafka publish failed", "type", event.Type, "error", err)
		}
	}

	if r.search != nil {
		body, err := json.Marshal(event)
		if err != nil {
			r.logger.Error("audit marshal failed", "type", event.Type, "error", err)
			return
		}
		if err := r.search.Index(ctx, r.index, uuid.NewString(), body); err != nil {
			r.logger.Error("audit index failed", "type", event.Type, "error", err)
		}
	}
}
