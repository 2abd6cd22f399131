package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Caller is the read-only subset of the RPC surface used for eth_call.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RetryCaller retries failed eth_calls with exponential backoff. Writes
// never go through it.
type RetryCaller struct {
	Caller     Caller
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

// CallContract implements Caller.
func (r *RetryCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context) error {
		var err error
		out, err = r.Caller.CallContract(ctx, msg, blockNumber)
		if err != nil && r.Logger != nil {
			to := common.Address{}
			if msg.To != nil {
				to = *msg.To
			}
			r.Logger.Warn("eth_call failed", zap.Error(err), zap.String("to", to.Hex()))
		}
		return err
	})
	return out, err
}

// WithRetry runs fn until it succeeds, maxRetries is exhausted, or ctx ends.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
