package core

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cashweb/photon-go/pkg/perr"
)

func TestTransactionServiceNotFound(t *testing.T) {
	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	svc := NewTransactionService(nil, store, sm)
	var id TxID
	id[0] = 1

	if _, err := svc.Transaction(id, false); err != ErrTxNotFound {
		t.Fatalf("expected ErrTxNotFound, got %v", err)
	}
}

func TestTransactionServiceWriteThroughFill(t *testing.T) {
	rawHex := hex.EncodeToString([]byte("raw-transaction-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testNodeRPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		writeResult(w, req.ID, rawHex)
	}))
	defer srv.Close()

	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	svc := NewTransactionService(client, store, sm)

	var id TxID
	id[0] = 2
	if err := store.PutTx(id, TxRecord{Height: 5, Pos: 0}); err != nil {
		t.Fatalf("PutTx failed: %v", err)
	}

	view, err := svc.Transaction(id, false)
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if hex.EncodeToString(view.RawTx) != rawHex {
		t.Fatalf("expected write-through raw bytes, got %x", view.RawTx)
	}

	rec, ok, err := store.GetTx(id)
	if err != nil || !ok {
		t.Fatalf("expected cached record, ok=%v err=%v", ok, err)
	}
	if hex.EncodeToString(rec.RawTx) != rawHex {
		t.Fatalf("expected store to be updated with fetched raw bytes")
	}
}

func TestTransactionServiceBroadcastSuccess(t *testing.T) {
	txidHex := hex.EncodeToString(bytes.Repeat([]byte{0xAB}, 32))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testNodeRPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		writeResult(w, req.ID, txidHex)
	}))
	defer srv.Close()

	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	svc := NewTransactionService(client, store, sm)

	id, err := svc.Broadcast([]byte("raw"))
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if hex.EncodeToString(id[:]) != txidHex {
		t.Fatalf("expected txid %s, got %x", txidHex, id)
	}
}

func TestTransactionServiceBroadcastRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testNodeRPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Result interface{} `json:"result"`
			Error  interface{} `json:"error"`
			ID     uint64      `json:"id"`
		}{Result: nil, Error: map[string]interface{}{"code": -26, "message": "insufficient fee"}, ID: req.ID}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	svc := NewTransactionService(client, store, sm)

	_, err := svc.Broadcast([]byte("raw"))
	if err == nil {
		t.Fatalf("expected a rejection error")
	}
	var rejection *perr.NodeRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected *perr.NodeRejection, got %T: %v", err, err)
	}
}

func TestTransactionServiceStripsMerkleWhenNotRequested(t *testing.T) {
	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	svc := NewTransactionService(nil, store, sm)

	var id TxID
	id[0] = 3
	rec := TxRecord{RawTx: []byte("cached"), Height: 1, Pos: 0, Merkle: [][]byte{[]byte("sibling")}}
	if err := store.PutTx(id, rec); err != nil {
		t.Fatalf("PutTx failed: %v", err)
	}

	view, err := svc.Transaction(id, false)
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if view.Merkle != nil {
		t.Fatalf("expected Merkle to be stripped, got %v", view.Merkle)
	}

	viewWithMerkle, err := svc.Transaction(id, true)
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if len(viewWithMerkle.Merkle) != 1 {
		t.Fatalf("expected Merkle to be present, got %v", viewWithMerkle.Merkle)
	}
}
