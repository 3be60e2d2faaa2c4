package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/config"
	"github.com/novo-network/biterc/internal/da"
	"github.com/novo-network/biterc/internal/derive"
	"github.com/novo-network/biterc/internal/engine"
	"github.com/novo-network/biterc/internal/logging"
	"github.com/novo-network/biterc/internal/metrics"
	"github.com/novo-network/biterc/internal/producer"
	"github.com/novo-network/biterc/internal/rpc"
)

func nodeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "node",
		Short: "run the derivation pipeline and submission RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "biterc.toml", "path to the node's TOML config file")
	return cmd
}

func runNode(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	params, err := netParams(cfg.BTC.Network)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	feeAddress, err := btcutil.DecodeAddress(cfg.BTC.FeeAddress, params)
	if err != nil {
		return fmt.Errorf("fee address: %w", err)
	}
	daFee := btcutil.Amount(cfg.BTC.DAFeeSats)

	daMgr, err := buildDAManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("da manager: %w", err)
	}
	btc, err := dialBitcoinRPC(cfg.BTC)
	if err != nil {
		return fmt.Errorf("bitcoin rpc: %w", err)
	}
	defer btc.Shutdown()
	electrum, err := dialElectrum(ctx, cfg.BTC.ElectrsURL)
	if err != nil {
		return fmt.Errorf("electrum: %w", err)
	}
	builder := btctx.NewBuilder(btc, electrum, params)

	store, err := producer.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("cursor store: %w", err)
	}

	eng := engine.NewMemoryEngine(0)
	chainID, err := resolveChainID(ctx, store, eng, btc, builder, daMgr, feeAddress, daFee, log)
	if err != nil {
		return fmt.Errorf("resolve chain id: %w", err)
	}

	startHeight, err := producer.ComputeStartHeight(ctx, store, eng)
	if err != nil {
		return fmt.Errorf("compute start height: %w", err)
	}

	fetcher, err := derive.NewFetcher(btc, builder, daMgr, feeAddress, daFee, startHeight, chainID, log)
	if err != nil {
		return fmt.Errorf("new fetcher: %w", err)
	}

	collector := metrics.New()
	metricsSrv, err := collector.Serve(ctx, cfg.MetricsAddr, log)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	_ = metricsSrv

	rpcSrv := rpc.NewServer(daMgr, btc, feeAddress, daFee, params, log)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: rpcSrv}
	loop := producer.NewLoop(fetcher, eng, store, 0, log)

	// Both the submission RPC server and the producer loop run for the
	// life of the process; an errgroup supervises them so a fatal error
	// in either one (a derivation failure, an unrecoverable listener
	// error) cancels the other's context and brings the process down
	// with the first real error instead of leaking a goroutine.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("submission rpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpSrv.Shutdown(context.Background())
	})
	g.Go(func() error {
		log.WithField("start_height", startHeight).WithField("chain_id", chainID).Info("producer loop starting")
		return loop.Run(gctx)
	})

	return g.Wait()
}

// resolveChainID loads the persisted chain config if one exists, or
// performs the one-time bootstrap scan on a fresh datadir.
func resolveChainID(
	ctx context.Context,
	store *producer.Store,
	eng *engine.MemoryEngine,
	btc btctx.BitcoinClient,
	builder *btctx.Builder,
	daMgr *da.Manager,
	feeAddress btcutil.Address,
	daFee btcutil.Amount,
	log *logrus.Logger,
) (uint32, error) {
	if cfg, ok, err := store.LoadChainConfig(); err != nil {
		return 0, err
	} else if ok {
		if err := eng.SetChainID(ctx, cfg.ChainID); err != nil {
			return 0, err
		}
		return cfg.ChainID, nil
	}

	bootstrapFetcher, err := derive.NewFetcher(btc, builder, daMgr, feeAddress, daFee, 0, 0, log)
	if err != nil {
		return 0, err
	}
	return producer.Bootstrap(ctx, bootstrapFetcher, eng, store)
}
