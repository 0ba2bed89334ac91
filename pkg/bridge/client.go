// Copyright 2025 Certen Protocol
//
// A thin L1 client wrapper, grounded on the teacher's pkg/ethereum/client.go
// (a small struct around *ethclient.Client exposing only the calls this
// package needs).

package bridge

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an *ethclient.Client with just the calls the bridge
// ingestor needs: current block height and log filtering/subscription.
type Client struct {
	eth *ethclient.Client
	url string
}

// Dial connects to an L1 JSON-RPC (or WebSocket) endpoint.
func Dial(url string) (*Client, error) {
	eth, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect to L1 at %s: %w", url, err)
	}
	return &Client{eth: eth, url: url}, nil
}

// BlockNumber returns the L1 chain head.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// Raw exposes the underlying *ethclient.Client for FilterLogs/
// SubscribeFilterLogs, kept on Client so callers share one connection.
func (c *Client) Raw() *ethclient.Client {
	return c.eth
}

func (c *Client) Close() {
	c.eth.Close()
}
