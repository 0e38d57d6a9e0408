// Package gateway is the client-facing HTTP+WebSocket transport bound on
// top of the query services in package core. spec.md places the RPC
// framing format used to publish the service's own API out of scope,
// describing it transport-agnostically; this is the thin ambient
// transport this repo carries, grounded on cmd/explorer/server.go
// and walletserver/routes/routes.go.
package gateway

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cashweb/photon-go/core"
	"github.com/cashweb/photon-go/pkg/config"
	"github.com/cashweb/photon-go/pkg/perr"
)

// Gateway wires the four query services to an HTTP router.
type Gateway struct {
	bind string
	tls  config.TLSConfig

	utility     *core.UtilityService
	header      *core.HeaderService
	transaction *core.TransactionService
	scriptHash  *core.ScriptHashService

	lg *logrus.Logger

	server *http.Server
}

// New constructs a Gateway bound to bind, wiring the given services.
func New(bind string, tlsCfg config.TLSConfig, utility *core.UtilityService, header *core.HeaderService, transaction *core.TransactionService, scriptHash *core.ScriptHashService, lg *logrus.Logger) *Gateway {
	return &Gateway{
		bind:        bind,
		tls:         tlsCfg,
		utility:     utility,
		header:      header,
		transaction: transaction,
		scriptHash:  scriptHash,
		lg:          lg,
	}
}

// routes builds the mux.Router mapping the utility, header, transaction
// and script-hash operations onto HTTP handlers.
func (g *Gateway) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(g.lg))

	r.HandleFunc("/ping", g.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/banner", g.handleBanner).Methods(http.MethodGet)
	r.HandleFunc("/donation_address", g.handleDonationAddress).Methods(http.MethodGet)
	r.HandleFunc("/version", g.handleVersion).Methods(http.MethodGet)

	r.HandleFunc("/headers", g.handleHeaders).Methods(http.MethodGet)
	r.HandleFunc("/headers/subscribe", g.handleHeaderSubscribe).Methods(http.MethodGet)

	r.HandleFunc("/tx/broadcast", g.handleBroadcast).Methods(http.MethodPost)
	r.HandleFunc("/tx/{id}", g.handleTransaction).Methods(http.MethodGet)

	r.HandleFunc("/scripthash/{hash}/history", g.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/scripthash/{hash}/subscribe", g.handleScriptHashSubscribe).Methods(http.MethodGet)

	return r
}

// Run serves the gateway until ctx is cancelled, at which point it shuts
// down gracefully. TLS is used when both certificate fields are set.
func (g *Gateway) Run(ctx context.Context) error {
	g.server = &http.Server{
		Addr:              g.bind,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if g.tls.Enabled() {
			cert, err := tls.LoadX509KeyPair(g.tls.PEMPath, g.tls.KeyPath)
			if err != nil {
				errCh <- perr.Wrap(perr.TlsMaterial, err)
				return
			}
			g.server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
			errCh <- g.server.ListenAndServeTLS("", "")
			return
		}
		errCh <- g.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return g.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
