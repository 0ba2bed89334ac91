// Copyright 2025 Certen Protocol
//
// Watcher polls L1 for Deposit/BatchPosted logs and feeds them to an
// Ingestor in (block, log-index) order. Structurally grounded on the
// teacher's pkg/anchor/event_watcher.go: a capped-range FilterLogs poll
// loop with retry/backoff, driven by a time.Ticker inside a
// context-cancellable goroutine. Historical replay on startup then live
// polling follows spec.md sec. 4.3's "get_logs(from=cursor, to=latest)
// followed by a live subscription" -- this implementation uses polling
// for both phases (go-ethereum's SubscribeFilterLogs requires a WebSocket
// endpoint, which not every configured L1 RPC provides; polling degrades
// gracefully to either transport).

package bridge

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Config controls a Watcher's polling and filtering behavior.
type Config struct {
	ContractAddress common.Address

	PollInterval  time.Duration
	MaxBlockRange uint64 // capped per-query block span, e.g. RPC provider limits
	BlockLookback uint64 // how many blocks back of history to replay on start, if no cursor is persisted

	RetryAttempts int
	RetryDelay    time.Duration

	// RollupID, if non-nil, is ANDed in as an additional topic filter.
	// The source historically filtered by a rollup_id topic and an
	// ETH-only policy (spec.md sec. 4.3); this rollup's Deposit/BatchPosted
	// ABI carries neither field, so RollupID has no effect unless the
	// configured contract actually emits a matching indexed topic. ETHOnly
	// is accepted for configuration compatibility and is not read.
	RollupID *big.Int
	ETHOnly  bool
}

// DefaultConfig mirrors the teacher's DefaultEventWatcherConfig defaults,
// adjusted for the Alchemy-style free-tier eth_getLogs range cap.
func DefaultConfig(contract common.Address) Config {
	return Config{
		ContractAddress: contract,
		PollInterval:    15 * time.Second,
		MaxBlockRange:   9,
		BlockLookback:   100,
		RetryAttempts:   3,
		RetryDelay:      2 * time.Second,
	}
}

// Watcher drives the polling loop. Sink receives every log in ascending
// (block, log-index) order; Ingestor.HandleLog is the typical sink.
type Watcher struct {
	cfg     Config
	client  *Client
	sink    func(ethtypes.Log) error
	persist func(Cursor) error
	logger  *log.Logger

	cursor    Cursor
	nextBlock uint64 // first block not yet scanned in this process
}

// NewWatcher builds a Watcher starting from cursor (the persisted
// watermark a caller loaded at startup; zero value replays from
// BlockLookback blocks back). persist is called with the advanced cursor
// after every log the sink successfully applies, so a restart resumes
// from the last applied log instead of redelivering it (spec.md sec. 4.3,
// sec. 8's idempotent-ingestion law); persist may be nil, but then a
// restart always replays BlockLookback blocks of history.
func NewWatcher(cfg Config, client *Client, cursor Cursor, sink func(ethtypes.Log) error, persist func(Cursor) error, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[bridge] ", log.LstdFlags)
	}
	return &Watcher{cfg: cfg, client: client, sink: sink, persist: persist, cursor: cursor, logger: logger}
}

// Run blocks, polling on cfg.PollInterval until ctx is cancelled. It
// performs one immediate poll on entry so historical replay happens before
// the first tick.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.poll(ctx); err != nil {
		w.logger.Printf("initial poll failed: %v", err)
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.Printf("poll failed: %v", err)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("bridge: get L1 head: %w", err)
	}

	fromBlock := w.cursor.LastBlock
	if w.nextBlock > fromBlock {
		fromBlock = w.nextBlock
	}
	if fromBlock == 0 && w.cfg.BlockLookback > 0 {
		if head > w.cfg.BlockLookback {
			fromBlock = head - w.cfg.BlockLookback
		}
	}
	if fromBlock > head {
		return nil
	}

	toBlock := head
	if w.cfg.MaxBlockRange > 0 && toBlock-fromBlock > w.cfg.MaxBlockRange {
		toBlock = fromBlock + w.cfg.MaxBlockRange
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{w.cfg.ContractAddress},
		Topics:    [][]common.Hash{{TopicDeposit, TopicBatchPosted}},
	}
	if w.cfg.RollupID != nil {
		query.Topics = append(query.Topics, []common.Hash{common.BigToHash(w.cfg.RollupID)})
	}

	var logs []ethtypes.Log
	for attempt := 0; attempt < w.cfg.RetryAttempts; attempt++ {
		logs, err = w.client.Raw().FilterLogs(ctx, query)
		if err == nil {
			break
		}
		if attempt < w.cfg.RetryAttempts-1 {
			time.Sleep(w.cfg.RetryDelay)
		}
	}
	if err != nil {
		return fmt.Errorf("bridge: filter logs after %d attempts: %w", w.cfg.RetryAttempts, err)
	}

	for _, l := range logs {
		if !w.cursor.After(l.BlockNumber, l.Index) {
			continue // already applied; duplicate delivery must be a no-op
		}
		if err := w.sink(l); err != nil {
			return fmt.Errorf("bridge: handling log block=%d index=%d: %w", l.BlockNumber, l.Index, err)
		}
		w.cursor = w.cursor.Advance(l.BlockNumber, l.Index)
		if w.persist != nil {
			if err := w.persist(w.cursor); err != nil {
				return fmt.Errorf("bridge: persisting cursor after block=%d index=%d: %w", l.BlockNumber, l.Index, err)
			}
		}
	}
	w.nextBlock = toBlock + 1
	if toBlock < head {
		return w.poll(ctx)
	}
	return nil
}

// Cursor returns the watcher's current watermark, for persistence.
func (w *Watcher) Cursor() Cursor {
	return w.cursor
}
