package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC. It satisfies bind.ContractBackend and
// bind.DeployBackend through the embedded ethclient.
type Client struct {
	*ethclient.Client
	rpcClient *rpc.Client
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		Client:    ethclient.NewClient(rpcClient),
		rpcClient: rpcClient,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID as uint64.
func (c *Client) GetChainID(ctx context.Context) (uint64, error) {
	id, err := c.Client.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return chainIDValue(id)
}

func chainIDValue(id *big.Int) (uint64, error) {
	if id == nil || !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %v", id)
	}
	return id.Uint64(), nil
}
