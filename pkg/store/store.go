package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/domain"
)

// Observer receives every transition, in the order transitions were applied.
// The states carried by the event must be treated as read-only.
type Observer func(ctx context.Context, event *domain.DispatchEvent)

// Store is the live state container. Safe for concurrent use.
//
// Transitions are applied one at a time under a mutex and queued for
// delivery. A single goroutine at a time drains the queue, so hooks,
// observers and listeners see transitions in apply order. Delivery may run
// on the goroutine of another dispatcher.
type Store struct {
	name    string
	reducer Reducer

	mu      sync.Mutex // serializes transitions
	state   domain.State
	seq     uint64
	pending []transition

	dmu       sync.Mutex // held while delivering
	delivered domain.State

	lmu       sync.Mutex
	listeners map[uint64]Observer
	order     []uint64
	nextID    uint64

	middleware []Middleware
	observers  []Observer
	dispatch   DispatchFunc

	hooks  domain.Hooks
	logger *slog.Logger
}

type transition struct {
	ctx   context.Context
	event *domain.DispatchEvent
}

// New creates a store around reducer. A nil initial state is computed by
// running the reducer once with InitSignal.
func New(reducer Reducer, initial domain.State, opts ...Option) *Store {
	s := &Store{
		name:      "default",
		reducer:   reducer,
		listeners: make(map[uint64]Observer),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if initial == nil {
		initial = reducer(nil, InitSignal)
	}
	s.state = initial.Clone()
	s.delivered = s.state
	s.logger = s.logger.With("store", s.name)

	api := API{
		Dispatch: func(ctx context.Context, action any) error { return s.dispatch(ctx, action) },
		GetState: s.current,
	}
	s.dispatch = chain(api, s.apply, s.middleware)
	return s
}

// Name returns the store label.
func (s *Store) Name() string {
	return s.name
}

// Dispatch sends an action through the middleware chain.
// Unknown signal kinds are applied as no-ops, never as errors.
func (s *Store) Dispatch(ctx context.Context, action any) error {
	return s.dispatch(ctx, action)
}

// GetState returns a copy of the current whole state.
func (s *Store) GetState() domain.State {
	return s.current().Clone()
}

// CallsInProgress returns the in-flight counter.
func (s *Store) CallsInProgress() int {
	return s.current().CallsInProgress()
}

// Loading reports whether any call is in flight.
func (s *Store) Loading() bool {
	return s.current().Loading()
}

// Replace swaps the whole state and notifies observers and listeners.
func (s *Store) Replace(state domain.State) {
	next := state.Clone()
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.enqueue(context.Background(), &domain.DispatchEvent{
		Phase:    domain.PhaseNone,
		Replaced: true,
		Prev:     prev,
		Next:     next,
	})
	s.mu.Unlock()
	s.deliver()
}

// Subscribe registers fn to be called with the state after every transition.
// Listeners run outside the transition lock, in registration order.
func (s *Store) Subscribe(fn func(domain.State)) (unsubscribe func()) {
	return s.Observe(func(_ context.Context, e *domain.DispatchEvent) {
		fn(e.Next.Clone())
	})
}

// Observe registers fn to receive every later transition.
func (s *Store) Observe(fn Observer) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Watch streams state updates until ctx is done, then closes the channel.
// Updates are dropped when the consumer falls behind.
func (s *Store) Watch(ctx context.Context) <-chan domain.State {
	ch := make(chan domain.State, DefaultWatchBuffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := s.Subscribe(func(state domain.State) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- state:
		default:
			s.logger.Warn("Watch: consumer buffer full, dropping update")
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

// Sync runs fn with the last state handed to observers, while no delivery
// is in progress. Transitions applied meanwhile are delivered after fn returns.
// It must not be called from an observer or listener.
func (s *Store) Sync(fn func(domain.State) error) error {
	s.dmu.Lock()
	err := fn(s.delivered.Clone())
	s.dmu.Unlock()
	s.deliver()
	return err
}

func (s *Store) current() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// apply is the end of the dispatch chain.
func (s *Store) apply(ctx context.Context, action any) error {
	sig, ok := SignalOf(action)
	if !ok {
		return fmt.Errorf("%w: %T", domain.ErrUnsupportedAction, action)
	}

	s.mu.Lock()
	prev := s.state
	next := s.reducer(prev, sig)
	if next == nil {
		next = domain.State{}
	}
	s.state = next
	s.enqueue(ctx, &domain.DispatchEvent{
		Signal: sig,
		Phase:  sig.Phase(),
		Prev:   prev,
		Next:   next,
	})
	s.mu.Unlock()

	s.deliver()
	return nil
}

// enqueue must be called with s.mu held.
func (s *Store) enqueue(ctx context.Context, e *domain.DispatchEvent) {
	s.seq++
	e.Seq = s.seq
	e.Timestamp = time.Now()
	e.Before = e.Prev.CallsInProgress()
	e.After = e.Next.CallsInProgress()
	s.pending = append(s.pending, transition{ctx: context.WithoutCancel(ctx), event: e})
}

// deliver drains the queue unless another goroutine already is. The holder
// of dmu rechecks the queue after releasing it, so nothing is left behind.
func (s *Store) deliver() {
	for {
		if !s.dmu.TryLock() {
			return
		}
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		s.emit(batch)

		s.mu.Lock()
		more := len(s.pending) > 0
		s.mu.Unlock()
		if !more {
			return
		}
	}
}

func (s *Store) emit(batch []transition) {
	defer s.dmu.Unlock()
	for _, t := range batch {
		if !t.event.Replaced {
			s.fireHooks(t.ctx, t.event)
		}
		for _, obs := range s.observers {
			obs(t.ctx, t.event)
		}
		for _, fn := range s.snapshotListeners() {
			fn(t.ctx, t.event)
		}
		s.delivered = t.event.Next
	}
}

func (s *Store) fireHooks(ctx context.Context, event *domain.DispatchEvent) {
	if s.hooks.OnDispatch != nil {
		s.hooks.OnDispatch(ctx, event)
	}
	if s.hooks.OnImbalance != nil && event.Phase.Ends() && event.Before <= 0 {
		s.hooks.OnImbalance(ctx, event)
	}
}

func (s *Store) snapshotListeners() []Observer {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	fns := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	return fns
}
