package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cashweb/photon-go/pkg/perr"
)

// testNodeRPCRequest mirrors the envelope NodeClient sends.
type testNodeRPCRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     uint64        `json:"id"`
}

func newMockNode(t *testing.T, blockCount uint32, blocks map[uint32][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testNodeRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")

		switch req.Method {
		case "getblockcount":
			writeResult(w, req.ID, blockCount)
		case "getblockhash":
			height := uint32(req.Params[0].(float64))
			writeResult(w, req.ID, fmt.Sprintf("%064x", height+1))
		case "getblock":
			hashHex := req.Params[0].(string)
			var h uint64
			if _, err := fmt.Sscanf(hashHex, "%x", &h); err != nil {
				t.Fatalf("parse fake hash: %v", err)
			}
			height := uint32(h) - 1
			raw, ok := blocks[height]
			if !ok {
				t.Fatalf("no mock block for height %d", height)
			}
			writeResult(w, req.ID, hex.EncodeToString(raw))
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
}

func writeResult(w http.ResponseWriter, id uint64, result interface{}) {
	payload, _ := json.Marshal(result)
	resp := struct {
		Result json.RawMessage `json:"result"`
		Error  interface{}     `json:"error"`
		ID     uint64          `json:"id"`
	}{Result: payload, Error: nil, ID: id}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNodeClientBlockCount(t *testing.T) {
	srv := newMockNode(t, 7, nil)
	defer srv.Close()

	client := NewNodeClient(srv.URL, "user", "pass", 2*time.Second, nil)
	count, err := client.BlockCount()
	if err != nil {
		t.Fatalf("BlockCount failed: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected count 7, got %d", count)
	}
}

func TestNodeClientMissingContentTypeIsOverload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A nil value suppresses net/http's content sniffing, so the
		// response really carries no Content-Type header.
		w.Header()["Content-Type"] = nil
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	_, err := client.BlockCount()
	if err == nil {
		t.Fatalf("expected an error")
	}
	kind, ok := perr.Of(err)
	if !ok || kind != perr.NodeOverload {
		t.Fatalf("expected NodeOverload, got %v (ok=%v)", kind, ok)
	}
}

func TestNodeClientHTMLContentTypeIsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	_, err := client.BlockCount()
	if err == nil {
		t.Fatalf("expected an error")
	}
	kind, ok := perr.Of(err)
	if !ok || kind != perr.NodeAuth {
		t.Fatalf("expected NodeAuth, got %v (ok=%v)", kind, ok)
	}
}

func TestNodeClientNonceMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeResult(w, 999999, uint32(1))
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL, "u", "p", 2*time.Second, nil)
	_, err := client.BlockCount()
	if err == nil {
		t.Fatalf("expected a nonce mismatch error")
	}
	kind, ok := perr.Of(err)
	if !ok || kind != perr.NodeProtocol {
		t.Fatalf("expected NodeProtocol, got %v (ok=%v)", kind, ok)
	}
}
