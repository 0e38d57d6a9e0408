// Package core implements the ingest and liveness pipeline: the node RPC
// client, the index store, the mempool view, the broadcast bus, the state
// manager, the block-sync engine, the live-tail handler, and the query
// services built on top of them.
package core

import "time"

// BlockHeader is the raw 80-byte Bitcoin-family block header, exactly as
// it appears on the wire.
type BlockHeader [80]byte

// TxID is a transaction id in internal (little-endian, as produced by
// double-SHA256) byte order. Callers that round-trip to the wire or to a
// client must reverse it to display-endian.
type TxID [32]byte

// ScriptHash is the double-hash of a transaction output's locking script.
type ScriptHash [32]byte

const (
	// txIDPrefixLen is the number of leading bytes of a TxID used as the
	// transaction record's store key. Left at the original's width per
	// the "tx id prefix collisions" Open Question: collisions are
	// accepted as a cache miss and silently overwritten, and a future
	// widening is a one-line change here.
	txIDPrefixLen = 8

	// blockChunkSize bounds historical-sync fetch/decode concurrency.
	blockChunkSize = 128

	// persistSyncPosInterval is how often (in blocks) the historical
	// sync engine persists its in-memory sync position.
	persistSyncPosInterval = 128

	// progressLogInterval is how often (in blocks) the historical sync
	// engine emits a progress log line.
	progressLogInterval = 1000

	// busCapacity is the per-subscriber buffer depth of a Bus[T].
	busCapacity = 256

	// parkQueueCapacity bounds the state manager's admission park queue.
	parkQueueCapacity = 2048

	// mempoolPoolCapacityHint and mempoolStatusCapacityHint size the
	// mempool's maps at construction; they are hints, not hard limits.
	mempoolPoolCapacityHint   = 1024
	mempoolStatusCapacityHint = 2048
)

// TxRecord is the persisted value for a transaction key. RawTx is empty
// when the transaction is "indexed but not cached"; it is filled in on
// first client fetch (write-through).
type TxRecord struct {
	RawTx  []byte
	Height uint32
	Pos    uint32
	Merkle [][]byte
}

// HeaderUpdate is published on the header bus whenever the live-tail
// handler indexes a new block; historical sync does not publish.
type HeaderUpdate struct {
	Height uint32
	Header BlockHeader
}

// StatusUpdate is published on the script-hash bus whenever a script
// hash's touching-transaction set changes.
type StatusUpdate struct {
	ScriptHash   ScriptHash
	StatusDigest [32]byte
}

// VersionInfo is the Utility service's version response.
type VersionInfo struct {
	Agent   string
	Version string
}

// Block is a decoded block: its raw header plus its ordered transactions.
type Block struct {
	Height  uint32
	Header  BlockHeader
	RawTxs  [][]byte
	TxIDs   []TxID
	Fetched time.Time
}
