package core

import "context"

// HistoryView is the response shape for a script-hash history lookup.
type HistoryView struct {
	// Confirmed is a placeholder and is always empty: there is no
	// confirmed-history index on top of the tx-by-prefix store, so only
	// mempool touches are populated.
	Confirmed []TxID
	Mempool   []TxID
}

// ScriptHashService answers per-address history and status-change
// subscriptions. Grounded on
// original_source/src/net/script_hash.rs.
type ScriptHashService struct {
	mempool *Mempool
	sm      *StateManager
	bus     *Bus[StatusUpdate]
}

// NewScriptHashService constructs a script-hash service.
func NewScriptHashService(mempool *Mempool, sm *StateManager, bus *Bus[StatusUpdate]) *ScriptHashService {
	return &ScriptHashService{mempool: mempool, sm: sm, bus: bus}
}

// History returns the confirmed (placeholder) and, if requested,
// mempool-derived touching transactions for scriptHash.
func (s *ScriptHashService) History(scriptHash ScriptHash, includeMempool bool) (HistoryView, error) {
	release, err := s.sm.Admit()
	if err != nil {
		return HistoryView{}, err
	}
	defer release()

	view := HistoryView{}
	if includeMempool {
		view.Mempool = s.mempool.Touches(scriptHash)
	}
	return view, nil
}

// Subscribe filters the script-hash bus to scriptHash, re-emitting each
// matching update on the returned channel until ctx is cancelled.
func (s *ScriptHashService) Subscribe(ctx context.Context, scriptHash ScriptHash) (<-chan StatusUpdate, func()) {
	upstream, unsubscribe := s.bus.Subscribe()
	filtered := make(chan StatusUpdate, busCapacity)

	go func() {
		defer close(filtered)
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case update, ok := <-upstream:
				if !ok {
					return
				}
				if update.ScriptHash != scriptHash {
					continue
				}
				select {
				case filtered <- update:
				case <-ctx.Done():
					unsubscribe()
					return
				}
			}
		}
	}()
	return filtered, unsubscribe
}
