package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/partner-review/internal/domain/event"
)

// Dispatcher delivers form events to the post-commit handlers (notifications,
// audit). Events are published only after the transition committed, so a
// handler failure is reported but never undoes the transition.
type Dispatcher interface {
	// Subscribe registers handler for eventType under a generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers handler for eventType under name
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes every handler called name from eventType
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs the handlers of evt.Type in registration order and waits
	// for them. Every handler runs; the returned error joins the failures.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the handlers of evt.Type in the background. Close
	// waits for them.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers describes the handlers registered for eventType
	ListHandlers(eventType event.Type) []HandlerInfo

	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type postCommitDispatcher struct {
	mu     sync.RWMutex
	routes map[event.Type][]HandlerInfo
	seq    map[event.Type]int

	logger  Logger
	timeout time.Duration

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*postCommitDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *postCommitDispatcher) {
		d.logger = logger
	}
}

// WithHandlerTimeout bounds each handler run. Zero means no bound.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *postCommitDispatcher) {
		d.timeout = timeout
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &postCommitDispatcher{
		routes: make(map[event.Type][]HandlerInfo),
		seq:    make(map[event.Type]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *postCommitDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	name := fmt.Sprintf("%s#%d", eventType, d.seq[eventType])
	d.mu.Unlock()

	d.SubscribeNamed(eventType, name, handler)
}

func (d *postCommitDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.seq[eventType]++
	d.routes[eventType] = append(d.routes[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})
	d.mu.Unlock()

	d.info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *postCommitDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	kept := d.routes[eventType][:0:0]
	for _, h := range d.routes[eventType] {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	d.routes[eventType] = kept
	d.mu.Unlock()

	d.info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

// Dispatch detaches the handlers from ctx cancellation: the request that
// committed the transition may end before delivery does.
func (d *postCommitDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}

	handlers := d.handlersFor(evt.Type)
	d.info("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"form_id", evt.FormID,
		"handler_count", len(handlers),
	)

	base := context.WithoutCancel(ctx)
	var errs []error
	for _, h := range handlers {
		if err := d.run(base, evt, h); err != nil {
			errs = append(errs, fmt.Errorf("handler %s failed: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *postCommitDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if evt == nil {
		return
	}
	if d.closed.Load() {
		d.error("Dropping event, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}

	base := context.WithoutCancel(ctx)
	for _, h := range d.handlersFor(evt.Type) {
		d.inflight.Add(1)
		go func(h HandlerInfo) {
			defer d.inflight.Done()
			_ = d.run(base, evt, h)
		}(h)
	}
}

func (d *postCommitDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.handlersFor(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

// Close stops accepting events and waits for background handlers
func (d *postCommitDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.inflight.Wait()
	d.info("Dispatcher closed")
	return nil
}

func (d *postCommitDispatcher) handlersFor(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.routes[eventType]...)
}

// run executes one handler, turning a panic into an error and logging the outcome
func (d *postCommitDispatcher) run(ctx context.Context, evt *event.Event, h HandlerInfo) (err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			d.error("Handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"form_id", evt.FormID,
				"handler_name", h.Name,
				"elapsed", time.Since(started),
				"error", err,
			)
		}
	}()

	return h.Handler(ctx, evt)
}

func (d *postCommitDispatcher) info(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *postCommitDispatcher) error(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
