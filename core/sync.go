package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// blockResult is one fetch+decode outcome, delivered out of order.
type blockResult struct {
	height uint32
	block  *Block
	err    error
}

// OnBlockCommitted is a per-block hook called after each block is
// committed, implemented as a plain function value rather than an
// interface. Checkpointing and progress logging happen inline in
// commitInOrder, not through this hook; a non-nil error aborts the sync.
type OnBlockCommitted func(height uint32) error

// Synchronize runs the historical catch-up pipeline: it fetches blocks
// from start to the node's current tip with bounded concurrency
// (blockChunkSize), decodes them, and commits them to store strictly in
// height order, persisting the sync position every
// persistSyncPosInterval blocks and logging every progressLogInterval
// blocks. If resume is non-nil, it overrides the persisted sync position
// as the starting height. Grounded on
// original_source/src/synchronization.rs +
// bitcoin/block_processing.rs + bitcoin/tx_processing.rs, restructured
// per the design notes into explicit fetch/decode/commit stages
// connected by channels.
func Synchronize(ctx context.Context, client *NodeClient, store *Store, sm *StateManager, resume *uint32, lg *logrus.Logger, onBlockCommitted OnBlockCommitted) error {
	tip, err := client.BlockCount()
	if err != nil {
		return err
	}

	var start uint32
	if resume != nil {
		start = *resume
	} else {
		start, err = store.GetSyncPosition()
		if err != nil {
			return err
		}
	}
	sm.SetSyncPosition(start)

	if start >= tip {
		return nil
	}

	results := make(chan blockResult, blockChunkSize)
	sem := make(chan struct{}, blockChunkSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(results)
		var wg sync.WaitGroup
		for h := start; h < tip; h++ {
			h := h
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				wg.Wait()
				return gctx.Err()
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				raw, fetchErr := client.BlockFromHeight(h)
				if fetchErr != nil {
					sendResult(gctx, results, blockResult{height: h, err: fetchErr})
					return
				}
				blk, decodeErr := DecodeBlock(h, raw)
				if decodeErr != nil {
					sendResult(gctx, results, blockResult{height: h, err: decodeErr})
					return
				}
				sendResult(gctx, results, blockResult{height: h, block: blk})
			}()
		}
		wg.Wait()
		return nil
	})

	g.Go(func() error {
		return commitInOrder(gctx, results, start, tip, store, sm, lg, onBlockCommitted)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return store.SetSyncPosition(sm.SyncPosition())
}

func sendResult(ctx context.Context, results chan<- blockResult, r blockResult) {
	select {
	case results <- r:
	case <-ctx.Done():
	}
}

// commitInOrder is the single in-order commit stage: it buffers
// out-of-order fetch/decode results and writes them to the store in
// strict height order, resolving the "in-order commit" Open Question in
// favour of option (a) from the design notes.
func commitInOrder(ctx context.Context, results <-chan blockResult, start, tip uint32, store *Store, sm *StateManager, lg *logrus.Logger, onBlockCommitted OnBlockCommitted) error {
	pending := make(map[uint32]*Block)
	next := start
	var sinceCheckpoint uint32

	flush := func(height uint32) error {
		blk := pending[height]
		batch := store.NewBatch()
		if err := batch.PutHeader(height, blk.Header); err != nil {
			return err
		}
		for i := range blk.RawTxs {
			rec := TxRecord{Height: height, Pos: uint32(i)}
			if path, _, err := MerklePath(blk.RawTxs, uint32(i)); err == nil {
				rec.Merkle = path
			}
			if err := batch.PutTx(blk.TxIDs[i], rec); err != nil {
				return err
			}
		}

		newPos := height + 1
		sm.SetSyncPosition(newPos)
		sinceCheckpoint++
		if sinceCheckpoint >= persistSyncPosInterval {
			if err := batch.SetSyncPosition(newPos); err != nil {
				return err
			}
			sinceCheckpoint = 0
		}
		if err := batch.Commit(); err != nil {
			return err
		}

		if lg != nil && newPos%progressLogInterval == 0 {
			lg.WithField("height", newPos).Info("sync progress")
		}
		delete(pending, height)
		if onBlockCommitted != nil {
			if err := onBlockCommitted(height); err != nil {
				return err
			}
		}
		return nil
	}

	for next < tip {
		for {
			if _, ok := pending[next]; !ok {
				break
			}
			if err := flush(next); err != nil {
				return err
			}
			next++
		}
		if next >= tip {
			break
		}
		select {
		case res, ok := <-results:
			if !ok {
				return fmt.Errorf("sync: result stream closed before reaching tip")
			}
			if res.err != nil {
				return res.err
			}
			pending[res.height] = res.block
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
