package gateway

import (
	"context"

	"github.com/gorilla/websocket"
)

// contextFromConn returns a context cancelled as soon as conn's read side
// errors (typically the client disconnecting), so a subscription handler
// can drop its bus subscriber without further cleanup, per the
// cancellation model in §5.
func contextFromConn(conn *websocket.Conn) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return ctx, cancel
}
