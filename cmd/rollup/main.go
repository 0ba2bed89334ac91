// Copyright 2025 Certen Protocol

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/certen/chess-rollup/pkg/bridge"
	"github.com/certen/chess-rollup/pkg/chess"
	"github.com/certen/chess-rollup/pkg/config"
	"github.com/certen/chess-rollup/pkg/prover"
	"github.com/certen/chess-rollup/pkg/sequencer"
	"github.com/certen/chess-rollup/pkg/server"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/storage"
	"github.com/certen/chess-rollup/pkg/withdraw"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		configPath = flag.String("config", "config.yaml", "path to the rollup config file")
		showHelp   = flag.Bool("help", false, "show help message")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	store, err := storage.Open(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	ext := chess.Extension{}

	var st *state.State
	if store.HasState() {
		log.Printf("restoring state from %s by replaying the sequenced log", cfg.Storage.Root)
		st, err = store.LoadAndReplay(&ext)
		if err != nil {
			log.Fatalf("failed to replay persisted state: %v", err)
		}
	} else {
		log.Printf("no persisted state found, starting from genesis")
		st = state.New(ext.Default())
	}

	ingestor := bridge.NewIngestor(st, log.New(log.Writer(), "[bridge] ", log.LstdFlags))
	batcher := withdraw.New(withdraw.Config{
		MaxBatchSize: cfg.Batcher.MaxBatchSize,
		MaxBatchAge:  cfg.Batcher.MaxBatchAge.Duration(),
	}, nil)

	var prv prover.Prover = prover.ExternalProver{
		BinaryPath: cfg.Prover.BinaryPath,
		OutputPath: cfg.Storage.Root + "/proofs/proof.json",
	}

	loop := sequencer.New(st, &ext, ingestor, batcher, store, prv, cfg.Prover.ProgramELF, log.New(log.Writer(), "[sequencer] ", log.LstdFlags))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sequencer loop exited: %v", err)
		}
	}()

	if cfg.Bridge.EthereumURL != "" {
		client, err := bridge.Dial(cfg.Bridge.EthereumURL)
		if err != nil {
			log.Fatalf("failed to dial L1 RPC: %v", err)
		}
		watcherCfg := bridge.Config{
			ContractAddress: ethcommon.HexToAddress(cfg.Bridge.ContractAddress),
			PollInterval:    cfg.Bridge.PollInterval.Duration(),
			MaxBlockRange:   cfg.Bridge.MaxBlockRange,
			BlockLookback:   cfg.Bridge.BlockLookback,
			RetryAttempts:   cfg.Bridge.RetryAttempts,
			RetryDelay:      cfg.Bridge.RetryDelay.Duration(),
		}

		cursor, ok, err := store.LoadCursor()
		if err != nil {
			log.Fatalf("failed to load persisted bridge cursor: %v", err)
		}
		if ok {
			log.Printf("resuming bridge watcher from block=%d index=%d", cursor.LastBlock, cursor.LastLogIndex)
		} else {
			log.Printf("no persisted bridge cursor found, replaying last %d blocks", watcherCfg.BlockLookback)
		}

		sink := func(l ethtypes.Log) error {
			loop.Submit(sequencer.L1Log{Log: l})
			return nil
		}
		watcher := bridge.NewWatcher(watcherCfg, client, cursor, sink, store.SaveCursor, log.New(log.Writer(), "[bridge] ", log.LstdFlags))
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("bridge watcher exited: %v", err)
			}
		}()
	}

	httpServer := server.New(cfg.Server.ListenAddr, cfg.Server.MetricsAddr, loop, nil)
	go func() {
		if err := httpServer.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("http server exited: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down")
	cancel()
	time.Sleep(200 * time.Millisecond)
}
