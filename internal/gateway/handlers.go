package gateway

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cashweb/photon-go/core"
	"github.com/cashweb/photon-go/pkg/perr"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (g *Gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	g.utility.Ping()
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (g *Gateway) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"banner": g.utility.Banner()})
}

func (g *Gateway) handleDonationAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"donation_address": g.utility.DonationAddress()})
}

func (g *Gateway) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.utility.Version())
}

func (g *Gateway) handleHeaders(w http.ResponseWriter, r *http.Request) {
	start, err := parseUint32Query(r, "start_height", 0)
	if err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}
	count, err := parseUint32Query(r, "count", 0)
	if err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}

	headers, err := g.header.Headers(start, count)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = hex.EncodeToString(h[:])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"headers": out})
}

func (g *Gateway) handleHeaderSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := contextFromConn(conn)
	defer cancel()

	updates, unsubscribe := g.header.Subscribe(ctx)
	defer unsubscribe()

	for update := range updates {
		frame := map[string]interface{}{
			"height": update.Height,
			"header": hex.EncodeToString(update.Header[:]),
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (g *Gateway) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawTx string `json:"raw_tx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}
	raw, err := hex.DecodeString(body.RawTx)
	if err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}

	txID, err := g.transaction.Broadcast(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx_id": hex.EncodeToString(txID[:])})
}

func (g *Gateway) handleTransaction(w http.ResponseWriter, r *http.Request) {
	idHex := mux.Vars(r)["id"]
	idBytes, err := hex.DecodeString(idHex)
	if err == nil && len(idBytes) != 32 {
		err = fmt.Errorf("tx id must be 32 bytes, got %d", len(idBytes))
	}
	if err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}
	var id core.TxID
	copy(id[:], idBytes)

	includeMerkle := r.URL.Query().Get("merkle") == "true"

	view, err := g.transaction.Transaction(id, includeMerkle)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{"raw_tx": hex.EncodeToString(view.RawTx)}
	if includeMerkle {
		merkle := make([]string, len(view.Merkle))
		for i, m := range view.Merkle {
			merkle[i] = hex.EncodeToString(m)
		}
		resp["merkle"] = merkle
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	hashHex := mux.Vars(r)["hash"]
	hashBytes, err := hex.DecodeString(hashHex)
	if err == nil && len(hashBytes) != 32 {
		err = fmt.Errorf("script hash must be 32 bytes, got %d", len(hashBytes))
	}
	if err != nil {
		writeError(w, perr.Wrap(perr.Decode, err))
		return
	}
	var sh core.ScriptHash
	copy(sh[:], hashBytes)

	includeMempool := r.URL.Query().Get("include_mempool_items") == "true"

	history, err := g.scriptHash.History(sh, includeMempool)
	if err != nil {
		writeError(w, err)
		return
	}

	mempoolIDs := make([]string, len(history.Mempool))
	for i, id := range history.Mempool {
		mempoolIDs[i] = hex.EncodeToString(id[:])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mempool": mempoolIDs})
}

func (g *Gateway) handleScriptHashSubscribe(w http.ResponseWriter, r *http.Request) {
	hashHex := mux.Vars(r)["hash"]
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil || len(hashBytes) != 32 {
		http.Error(w, "invalid-argument", http.StatusBadRequest)
		return
	}
	var sh core.ScriptHash
	copy(sh[:], hashBytes)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := contextFromConn(conn)
	defer cancel()

	updates, unsubscribe := g.scriptHash.Subscribe(ctx, sh)
	defer unsubscribe()

	for update := range updates {
		frame := map[string]string{
			"unconfirmed_status": hex.EncodeToString(update.StatusDigest[:]),
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func parseUint32Query(r *http.Request, key string, def uint32) (uint32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
