package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"deltaLens/internal/model"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Backend is the RPC surface needed to send and await transactions.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Writer signs, sends and waits for state-changing calls.
type Writer struct {
	backend Backend
	opts    *bind.TransactOpts
	logger  *zap.Logger
}

// NewWriter binds a signer to a backend.
func NewWriter(backend Backend, opts *bind.TransactOpts, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{backend: backend, opts: opts, logger: logger}
}

// From returns the signing account.
func (w *Writer) From() common.Address {
	return w.opts.From
}

// Send submits method on the contract at to and blocks until it is mined.
func (w *Writer) Send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (model.Receipt, error) {
	opts := *w.opts
	opts.Context = ctx

	contract := bind.NewBoundContract(to, parsed, w.backend, w.backend, w.backend)
	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("send %s: %w", method, err)
	}
	w.logger.Info("transaction sent",
		zap.String("method", method),
		zap.String("to", to.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
	)

	mined, err := bind.WaitMined(ctx, w.backend, tx)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("wait %s: %w", method, err)
	}

	receipt := buildReceipt(method, to, mined)
	if mined.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s %s", ErrReverted, method, receipt.TxHash)
	}
	return receipt, nil
}

func buildReceipt(method string, to common.Address, mined *types.Receipt) model.Receipt {
	receipt := model.Receipt{
		Method:  method,
		To:      to.Hex(),
		TxHash:  mined.TxHash.Hex(),
		GasUsed: mined.GasUsed,
		Status:  mined.Status,
	}
	if mined.BlockNumber != nil {
		receipt.BlockNumber = mined.BlockNumber.Uint64()
	}
	return receipt
}
