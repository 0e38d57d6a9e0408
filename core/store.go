package core

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"

	"github.com/cashweb/photon-go/pkg/perr"
)

const (
	namespaceHeader byte = 'h'
	namespaceTx     byte = 't'
	namespaceSync   byte = 's'
)

// Store is a typed wrapper over an ordered key-value engine: headers by
// height, transactions by id prefix, and the scalar sync position.
// Grounded on original_source/src/db.rs, backed by pebble instead of
// rocksdb as pebble's direct Go-ecosystem counterpart.
type Store struct {
	db *pebble.DB
	lg *logrus.Logger
}

// OpenStore opens (creating if missing) the index store at path.
func OpenStore(path string, lg *logrus.Logger) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, perr.Wrap(perr.Store, err)
	}
	return &Store{db: db, lg: lg}, nil
}

// Close releases the underlying engine handle.
func (s *Store) Close() error {
	return perr.Wrap(perr.Store, s.db.Close())
}

func headerKey(height uint32) []byte {
	key := make([]byte, 5)
	key[0] = namespaceHeader
	binary.BigEndian.PutUint32(key[1:], height)
	return key
}

func txKey(id TxID) []byte {
	key := make([]byte, 1+txIDPrefixLen)
	key[0] = namespaceTx
	copy(key[1:], id[:txIDPrefixLen])
	return key
}

var syncPosKey = []byte{namespaceSync}

// PutHeader writes the 80-byte header for height.
func (s *Store) PutHeader(height uint32, h BlockHeader) error {
	return perr.Wrap(perr.Store, s.db.Set(headerKey(height), h[:], nil))
}

// GetHeaders returns up to count headers starting at start, in height
// order. count == 0 means "scan to the namespace boundary".
func (s *Store) GetHeaders(start uint32, count uint32) ([]BlockHeader, error) {
	lower := headerKey(start)
	upper := []byte{namespaceHeader + 1}
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, perr.Wrap(perr.Store, err)
	}
	defer iter.Close()

	var out []BlockHeader
	for iter.First(); iter.Valid(); iter.Next() {
		if count != 0 && uint32(len(out)) >= count {
			break
		}
		var h BlockHeader
		copy(h[:], iter.Value())
		out = append(out, h)
	}
	if err := iter.Error(); err != nil {
		return nil, perr.Wrap(perr.Store, err)
	}
	return out, nil
}

// PutTx writes rec under id's key prefix, silently overwriting any prior
// record sharing the same prefix (accepted collision, per the tx-id
// prefix Open Question).
func (s *Store) PutTx(id TxID, rec TxRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return perr.Wrap(perr.Decode, err)
	}
	return perr.Wrap(perr.Store, s.db.Set(txKey(id), buf.Bytes(), nil))
}

// GetTx returns the transaction record for id's prefix, and whether one
// was found.
func (s *Store) GetTx(id TxID) (*TxRecord, bool, error) {
	val, closer, err := s.db.Get(txKey(id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrap(perr.Store, err)
	}
	defer closer.Close()

	var rec TxRecord
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&rec); err != nil {
		return nil, false, perr.Wrap(perr.Decode, err)
	}
	return &rec, true, nil
}

// GetSyncPosition returns the persisted sync position, defaulting to 0.
func (s *Store) GetSyncPosition() (uint32, error) {
	val, closer, err := s.db.Get(syncPosKey)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, perr.Wrap(perr.Store, err)
	}
	defer closer.Close()
	return binary.LittleEndian.Uint32(val), nil
}

// SetSyncPosition persists pos.
func (s *Store) SetSyncPosition(pos uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, pos)
	return perr.Wrap(perr.Store, s.db.Set(syncPosKey, buf, nil))
}

// Batch exposes a pebble write batch, used by the sync engine's in-order
// commit stage and the live-tail block handler to write a block's header,
// transaction records and sync position atomically.
type Batch struct {
	b *pebble.Batch
}

// NewBatch starts a new write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{b: s.db.NewBatch()}
}

func (b *Batch) PutHeader(height uint32, h BlockHeader) error {
	return b.b.Set(headerKey(height), h[:], nil)
}

func (b *Batch) PutTx(id TxID, rec TxRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return perr.Wrap(perr.Decode, err)
	}
	return b.b.Set(txKey(id), buf.Bytes(), nil)
}

func (b *Batch) SetSyncPosition(pos uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, pos)
	return b.b.Set(syncPosKey, buf, nil)
}

// Commit applies the batch, durably syncing it to the engine's WAL.
func (b *Batch) Commit() error {
	return perr.Wrap(perr.Store, b.b.Commit(pebble.Sync))
}
