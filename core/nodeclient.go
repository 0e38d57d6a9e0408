package core

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"

	"github.com/cashweb/photon-go/pkg/perr"
)

// NodeClient is a JSON-RPC 1.0-style client for a Bitcoin-family full
// node, with HTTP basic auth. Grounded on
// original_source/src/net/jsonrpc_client.rs and bitcoin/client.rs,
// written in the idiom of one *http.Client field configured once and
// reused.
type NodeClient struct {
	url      string
	user     string
	password string
	http     *http.Client
	lg       *logrus.Logger

	nonce uint64
}

// NewNodeClient constructs a client for the node's JSON-RPC endpoint.
func NewNodeClient(url, user, password string, timeout time.Duration, lg *logrus.Logger) *NodeClient {
	return &NodeClient{
		url:      url,
		user:     user,
		password: password,
		http:     &http.Client{Timeout: timeout},
		lg:       lg,
	}
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     uint64        `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
	ID     uint64          `json:"id"`
}

// call issues method(params) and decodes result into out (if non-nil).
func (c *NodeClient) call(method string, params []interface{}, out interface{}) error {
	id := atomic.AddUint64(&c.nonce, 1)
	reqBody, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: id})
	if err != nil {
		return perr.Wrap(perr.NodeProtocol, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return perr.Wrap(perr.NodeTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Wrap(perr.NodeTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return perr.Wrap(perr.NodeTransport, err)
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case contentType == "":
		return perr.Wrap(perr.NodeOverload, fmt.Errorf("missing content-type"))
	case contentType == "text/html; charset=ISO-8859-1":
		return perr.Wrap(perr.NodeAuth, fmt.Errorf("incorrect credentials"))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if contentType != "application/json" {
			return perr.Wrap(perr.NodeProtocol, fmt.Errorf("unexpected content-type %q", contentType))
		}
		return perr.Wrap(perr.NodeProtocol, err)
	}

	if rpcResp.ID != id {
		return perr.Wrap(perr.NodeProtocol, fmt.Errorf("nonce mismatch: sent %d got %d", id, rpcResp.ID))
	}
	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return &perr.NodeRejection{Payload: rpcResp.Error}
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return perr.Wrap(perr.NodeProtocol, err)
		}
	}
	return nil
}

// BlockCount returns the node's current chain length.
func (c *NodeClient) BlockCount() (uint32, error) {
	var count uint32
	if err := c.call("getblockcount", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// BlockHash returns the display-endian block hash at height.
func (c *NodeClient) BlockHash(height uint32) (chainhash.Hash, error) {
	var hexHash string
	if err := c.call("getblockhash", []interface{}{height}, &hexHash); err != nil {
		return chainhash.Hash{}, err
	}
	h, err := chainhash.NewHashFromStr(hexHash)
	if err != nil {
		return chainhash.Hash{}, perr.Wrap(perr.NodeProtocol, err)
	}
	return *h, nil
}

// Block returns the raw bytes of the non-verbose block with the given
// hash.
func (c *NodeClient) Block(hash chainhash.Hash) ([]byte, error) {
	var hexBlock string
	if err := c.call("getblock", []interface{}{hash.String(), 0}, &hexBlock); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(hexBlock)
	if err != nil {
		return nil, perr.Wrap(perr.NodeProtocol, err)
	}
	return raw, nil
}

// BlockFromHeight composes BlockHash and Block.
func (c *NodeClient) BlockFromHeight(height uint32) ([]byte, error) {
	hash, err := c.BlockHash(height)
	if err != nil {
		return nil, err
	}
	return c.Block(hash)
}

// RawTx returns the raw bytes of the transaction with the given id.
func (c *NodeClient) RawTx(id TxID) ([]byte, error) {
	hash := chainhash.Hash(id)
	var hexTx string
	if err := c.call("getrawtransaction", []interface{}{hash.String()}, &hexTx); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(hexTx)
	if err != nil {
		return nil, perr.Wrap(perr.NodeProtocol, err)
	}
	return raw, nil
}

// BroadcastTx submits raw to the node's mempool and returns the resulting
// txid.
func (c *NodeClient) BroadcastTx(raw []byte) (TxID, error) {
	var hexTxID string
	if err := c.call("sendrawtransaction", []interface{}{hex.EncodeToString(raw)}, &hexTxID); err != nil {
		return TxID{}, err
	}
	h, err := chainhash.NewHashFromStr(hexTxID)
	if err != nil {
		return TxID{}, perr.Wrap(perr.NodeProtocol, err)
	}
	return TxID(*h), nil
}

type chainTip struct {
	Height uint32 `json:"height"`
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// ChainTip walks getchaintips and returns the height of the entry whose
// status is "active".
func (c *NodeClient) ChainTip() (uint32, error) {
	var tips []chainTip
	if err := c.call("getchaintips", nil, &tips); err != nil {
		return 0, err
	}
	for _, t := range tips {
		if t.Status == "active" {
			return t.Height, nil
		}
	}
	return 0, perr.Wrap(perr.NodeProtocol, fmt.Errorf("no active chain tip"))
}

// DecodeBlock decodes raw wire bytes into a Block at height.
func DecodeBlock(height uint32, raw []byte) (*Block, error) {
	msg := wire.MsgBlock{}
	if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, perr.Wrap(perr.Decode, err)
	}

	var header BlockHeader
	var hbuf bytes.Buffer
	if err := msg.Header.Serialize(&hbuf); err != nil {
		return nil, perr.Wrap(perr.Decode, err)
	}
	copy(header[:], hbuf.Bytes())

	rawTxs := make([][]byte, len(msg.Transactions))
	txIDs := make([]TxID, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		var tbuf bytes.Buffer
		if err := tx.Serialize(&tbuf); err != nil {
			return nil, perr.Wrap(perr.Decode, err)
		}
		rawTxs[i] = tbuf.Bytes()
		// TxHash excludes witness data, matching the canonical (legacy)
		// txid; tx.Serialize above keeps the full witness-inclusive bytes
		// for RawTx, so a segwit transaction is indexed under its real
		// txid rather than its wtxid.
		txIDs[i] = TxID(tx.TxHash())
	}

	return &Block{
		Height: height,
		Header: header,
		RawTxs: rawTxs,
		TxIDs:  txIDs,
	}, nil
}
