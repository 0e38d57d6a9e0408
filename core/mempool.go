package core

import (
	"bytes"
	"sort"
	"sync"
)

// Transaction is the minimal parsed shape the mempool needs: the raw
// bytes plus the script of each output, used to compute script hashes.
type Transaction struct {
	RawTx         []byte
	OutputScripts [][]byte
}

// Mempool is the in-memory view of unconfirmed transactions and the
// per-script-hash status digests they touch. Grounded on
// original_source/src/mempool.rs; guarded by a single mutex with short
// hold times per the concurrency model.
type Mempool struct {
	mu     sync.Mutex
	pool   map[TxID]*Transaction
	status map[ScriptHash][]TxID
}

// NewMempool constructs an empty mempool, pre-sizing its maps to the
// capacity hints from the data model (pool ~1024, status ~2048).
func NewMempool() *Mempool {
	return &Mempool{
		pool:   make(map[TxID]*Transaction, mempoolPoolCapacityHint),
		status: make(map[ScriptHash][]TxID, mempoolStatusCapacityHint),
	}
}

// PutTransaction inserts tx into the pool under id.
func (m *Mempool) PutTransaction(id TxID, tx *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool[id] = tx
}

// AppendStatus inserts id into the sorted id list for scriptHash
// (duplicates are no-ops) and returns the resulting status digest: the
// double-hash of the sorted id concatenation.
func (m *Mempool) AppendStatus(scriptHash ScriptHash, id TxID) [32]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.status[scriptHash]
	i := sort.Search(len(ids), func(i int) bool {
		return bytes.Compare(ids[i][:], id[:]) >= 0
	})
	if i == len(ids) || ids[i] != id {
		ids = append(ids, TxID{})
		copy(ids[i+1:], ids[i:])
		ids[i] = id
	}
	m.status[scriptHash] = ids
	return digestOf(ids)
}

// GetStatus returns the current status digest for scriptHash, and
// whether any touching transaction is known.
func (m *Mempool) GetStatus(scriptHash ScriptHash) ([32]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.status[scriptHash]
	if !ok || len(ids) == 0 {
		return [32]byte{}, false
	}
	return digestOf(ids), true
}

// Touches returns a copy of the sorted transaction ids touching
// scriptHash in the mempool.
func (m *Mempool) Touches(scriptHash ScriptHash) []TxID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.status[scriptHash]
	if len(ids) == 0 {
		return nil
	}
	out := make([]TxID, len(ids))
	copy(out, ids)
	return out
}

// GetTransaction returns the pooled transaction for id, if any.
func (m *Mempool) GetTransaction(id TxID) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.pool[id]
	return tx, ok
}

// Flush resets both maps. No reorg or shutdown path in this repository
// calls it.
func (m *Mempool) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool = make(map[TxID]*Transaction, mempoolPoolCapacityHint)
	m.status = make(map[ScriptHash][]TxID, mempoolStatusCapacityHint)
}

func digestOf(ids []TxID) [32]byte {
	buf := make([]byte, 0, len(ids)*32)
	for _, id := range ids {
		buf = append(buf, id[:]...)
	}
	return DoubleSHA256(buf)
}
