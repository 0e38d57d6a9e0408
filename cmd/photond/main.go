// Command photond runs the Photon indexer and query gateway: historical
// block-sync to catch up with the node, then the live-tail handler and
// client-facing gateway for the process lifetime. Construction runs
// store -> state -> client -> sync; the gateway and live tail are then
// joined fail-fast. Follows original_source/src/main.rs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cashweb/photon-go/core"
	"github.com/cashweb/photon-go/internal/gateway"
	"github.com/cashweb/photon-go/pkg/config"
)

const agentVersion = "photond/0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photond",
		Short: "Photon UTXO chain indexer and query gateway",
		RunE:  run,
	}
	cmd.Flags().Bool("resync", false, "restart historical sync from height 0")
	cmd.Flags().Int64("sync-from", -1, "restart historical sync from the given height")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	resync, err := cmd.Flags().GetBool("resync")
	if err != nil {
		return err
	}
	syncFrom, err := cmd.Flags().GetInt64("sync-from")
	if err != nil {
		return err
	}
	if resync && syncFrom >= 0 {
		return fmt.Errorf("--resync and --sync-from are mutually exclusive")
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	lg := logrus.New()

	store, err := core.OpenStore(expandHome(cfg.DBPath), lg)
	if err != nil {
		return err
	}
	defer store.Close()

	sm := core.NewStateManager()
	mempool := core.NewMempool()
	headerBus := core.NewBus[core.HeaderUpdate]()
	statusBus := core.NewBus[core.StatusUpdate]()

	client := core.NewNodeClient(nodeURL(cfg.Bitcoin), cfg.Bitcoin.User, cfg.Bitcoin.Password, 30*time.Second, lg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var resume *uint32
	switch {
	case resync:
		h := uint32(0)
		resume = &h
	case syncFrom >= 0:
		h := uint32(syncFrom)
		resume = &h
	}

	// The checkpoint/log policy itself lives inline in commitInOrder
	// (core/sync.go); this hook is for callers that want a side effect
	// per committed block, which photond does not need.
	onBlockCommitted := func(height uint32) error { return nil }
	if err := core.Synchronize(ctx, client, store, sm, resume, lg, onBlockCommitted); err != nil {
		return err
	}
	if err := sm.Transition(core.StateActive); err != nil {
		return err
	}

	utility := core.NewUtilityService(cfg.Banner, cfg.DonationAddress, "photond", agentVersion)
	headerSvc := core.NewHeaderService(store, sm, headerBus)
	txSvc := core.NewTransactionService(client, store, sm)
	scriptHashSvc := core.NewScriptHashService(mempool, sm, statusBus)

	gw := gateway.New(cfg.Bind, cfg.TLS, utility, headerSvc, txSvc, scriptHashSvc, lg)
	liveTail := core.NewLiveTail(cfg.Bitcoin.ZMQBlockAddr, cfg.Bitcoin.ZMQTxAddr, store, mempool, sm, headerBus, statusBus, lg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gw.Run(gctx) })
	g.Go(func() error { return liveTail.Run(gctx) })
	return g.Wait()
}

func nodeURL(cfg config.BitcoinConfig) string {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.RPCPort)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "$HOME") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "$HOME")
}
