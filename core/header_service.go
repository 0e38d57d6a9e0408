package core

import "context"

// HeaderService answers header-range lookups and hands out a live
// subscription to newly indexed headers. Grounded on
// original_source/src/net/header.rs.
type HeaderService struct {
	store *Store
	sm    *StateManager
	bus   *Bus[HeaderUpdate]
}

// NewHeaderService constructs a header service.
func NewHeaderService(store *Store, sm *StateManager, bus *Bus[HeaderUpdate]) *HeaderService {
	return &HeaderService{store: store, sm: sm, bus: bus}
}

// Headers returns up to count headers starting at start, after taking
// the admission path through the state manager.
func (s *HeaderService) Headers(start, count uint32) ([]BlockHeader, error) {
	release, err := s.sm.Admit()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.store.GetHeaders(start, count)
}

// Subscribe hands out a channel of header updates until ctx is cancelled
// or the returned cancel function is called; the subscription does not
// itself take the admission path, since it touches only the bus.
func (s *HeaderService) Subscribe(ctx context.Context) (<-chan HeaderUpdate, func()) {
	ch, unsubscribe := s.bus.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch, unsubscribe
}
