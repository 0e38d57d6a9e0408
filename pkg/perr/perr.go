// Package perr defines the closed set of error kinds this indexer ever
// surfaces across package boundaries, plus the mapping from a kind to the
// status a client-facing handler should report.
package perr

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped under StateBarrier; core/state.go returns these
// so a handler can distinguish the two admission-rejection shapes without
// perr depending on core.
var (
	ErrSyncing       = errors.New("server syncing")
	ErrReorgOverflow = errors.New("request expelled during reorg")
)

// Kind classifies an error into one of the categories §7 of the design
// names. Every error that crosses a component boundary carries one.
type Kind int

const (
	NodeTransport Kind = iota
	NodeProtocol
	NodeAuth
	NodeOverload
	Decode
	Store
	MempoolLock
	BusBroker
	StateBarrier
	Config
	TlsMaterial
	CliParse
)

func (k Kind) String() string {
	switch k {
	case NodeTransport:
		return "node_transport"
	case NodeProtocol:
		return "node_protocol"
	case NodeAuth:
		return "node_auth"
	case NodeOverload:
		return "node_overload"
	case Decode:
		return "decode"
	case Store:
		return "store"
	case MempoolLock:
		return "mempool_lock"
	case BusBroker:
		return "bus_broker"
	case StateBarrier:
		return "state_barrier"
	case Config:
		return "config"
	case TlsMaterial:
		return "tls_material"
	case CliParse:
		return "cli_parse"
	default:
		return "unknown"
	}
}

// NodeRejection wraps a non-null "error" field from the node's JSON-RPC
// envelope — as opposed to a transport/protocol failure — so a broadcast
// rejection (insufficient fee, double-spend) can be told apart from an
// internal error and mapped to "failed-precondition".
type NodeRejection struct {
	Payload []byte
}

func (e *NodeRejection) Error() string {
	return fmt.Sprintf("node rejected request: %s", string(e.Payload))
}

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a Kind to err. It returns nil if err is nil, mirroring
// pkg/utils.Wrap's nil-passthrough behaviour.
func Wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: err}
}

// Of reports the Kind carried by err, if any, and whether one was found.
func Of(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if pe, ok := err.(*Error); ok {
			e = pe
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return 0, false
	}
	return e.Kind, true
}

// HTTPStatus maps err to an HTTP status code and a short, non-leaking
// message, per the user-visible mapping table in the error handling design.
// Anything not recognised collapses to 500/"internal" so internal error
// shapes never reach a client.
func HTTPStatus(err error) (int, string) {
	var rejection *NodeRejection
	if errors.As(err, &rejection) {
		return 412, "failed-precondition"
	}

	kind, ok := Of(err)
	if !ok {
		return 500, "internal"
	}
	switch kind {
	case StateBarrier:
		if errors.Is(err, ErrReorgOverflow) {
			return 429, "resource-exhausted: request expelled during reorg"
		}
		return 503, "unavailable: server syncing"
	case Decode:
		return 400, "invalid-argument"
	default:
		return 500, "internal"
	}
}
