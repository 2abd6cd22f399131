package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
)

type flakyCaller struct {
	failures int
	calls    int
}

func (f *flakyCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("temporary rpc failure")
	}
	return []byte{0x01}, nil
}

func TestRetryCallerRecovers(t *testing.T) {
	inner := &flakyCaller{failures: 2}
	caller := &RetryCaller{Caller: inner, MaxRetries: 3, Backoff: time.Millisecond}

	out, err := caller.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || inner.calls != 3 {
		t.Fatalf("unexpected result: out=%x calls=%d", out, inner.calls)
	}
}

func TestRetryCallerGivesUp(t *testing.T) {
	inner := &flakyCaller{failures: 10}
	caller := &RetryCaller{Caller: inner, MaxRetries: 1, Backoff: time.Millisecond}

	if _, err := caller.CallContract(context.Background(), ethereum.CallMsg{}, nil); err == nil {
		t.Fatalf("expected error after retries")
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithRetry(ctx, 5, time.Hour, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestLoadKeyFromHex(t *testing.T) {
	const hexKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	key, err := LoadKey(SignerConfig{PrivateKey: hexKey})
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	opts, err := NewTransactOpts(key, 5001)
	if err != nil {
		t.Fatalf("transact opts: %v", err)
	}
	if got := opts.From.Hex(); got != "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23" {
		t.Fatalf("unexpected address: %s", got)
	}
}

func TestLoadKeyRequiresSource(t *testing.T) {
	if _, err := LoadKey(SignerConfig{}); err == nil {
		t.Fatalf("expected error without key source")
	}
}
