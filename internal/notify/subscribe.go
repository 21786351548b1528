package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/events"
)

// EventHandlers reacts to reservation events.
type EventHandlers interface {
	OnReservationCreated(e events.Event) error
	OnStatusChanged(e events.Event) error
}

// Subscription tracks the notifications started by Subscribe.
type Subscription struct {
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// Subscribe attaches h to the bus. Each handler runs in its own goroutine
// and failures are only logged; Drain waits for them.
func Subscribe(bus *events.EventBus, h EventHandlers, logger zerolog.Logger) *Subscription {
	s := &Subscription{logger: logger}
	bus.Subscribe(events.ReservationCreated, s.detach(h.OnReservationCreated))
	bus.Subscribe(events.ReservationStatusChanged, s.detach(h.OnStatusChanged))
	return s
}

func (s *Subscription) detach(fn events.EventHandler) events.EventHandler {
	return func(e events.Event) error {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := fn(e); err != nil {
				s.logger.Error().Err(err).Str("event", e.Type).Str("event_id", e.ID).Msg("notification failed")
			}
		}()
		return nil
	}
}

// Drain blocks until in-flight notifications finish or ctx ends.
func (s *Subscription) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("notifications still in flight at shutdown")
		return ctx.Err()
	}
}
