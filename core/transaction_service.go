package core

import "errors"

// ErrTxNotFound is returned by Transaction when no record exists for the
// requested id's prefix.
var ErrTxNotFound = errors.New("transaction not found")

// TxView is the client-facing view of a transaction record.
type TxView struct {
	RawTx  []byte
	Height uint32
	Pos    uint32
	Merkle [][]byte
}

// TransactionService handles broadcast and lookup-by-id requests.
// Grounded on original_source/src/net/transaction.rs.
type TransactionService struct {
	client *NodeClient
	store  *Store
	sm     *StateManager
}

// NewTransactionService constructs a transaction service.
func NewTransactionService(client *NodeClient, store *Store, sm *StateManager) *TransactionService {
	return &TransactionService{client: client, store: store, sm: sm}
}

// Broadcast forwards raw to the node. A node-level rejection (fee,
// double-spend) is returned as *perr.NodeRejection; any other failure is
// returned as-is.
func (s *TransactionService) Broadcast(raw []byte) (TxID, error) {
	release, err := s.sm.Admit()
	if err != nil {
		return TxID{}, err
	}
	defer release()
	return s.client.BroadcastTx(raw)
}

// Transaction looks up the record for id. Absent records return
// ErrTxNotFound. A present record with empty raw bytes triggers a
// write-through fetch from the node. If merkle is false, the Merkle
// portion is stripped before returning.
func (s *TransactionService) Transaction(id TxID, merkle bool) (*TxView, error) {
	release, err := s.sm.Admit()
	if err != nil {
		return nil, err
	}
	defer release()

	rec, ok, err := s.store.GetTx(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTxNotFound
	}

	if len(rec.RawTx) == 0 {
		raw, err := s.client.RawTx(id)
		if err != nil {
			return nil, err
		}
		rec.RawTx = raw
		if err := s.store.PutTx(id, *rec); err != nil {
			return nil, err
		}
	}

	view := &TxView{RawTx: rec.RawTx, Height: rec.Height, Pos: rec.Pos}
	if merkle {
		view.Merkle = rec.Merkle
	}
	return view, nil
}
