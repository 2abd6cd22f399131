package tx

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"deltaLens/internal/metrics"
	"deltaLens/internal/model"
	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
	"deltaLens/internal/units"
)

// DefaultApprovalBuffer is added on top of the requested amount, in whole
// token units, when an approval is needed.
const DefaultApprovalBuffer = 2

// AllowanceReader reads ERC20 allowances.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// Sender submits one state-changing call and waits for it to be mined.
type Sender interface {
	From() common.Address
	Send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (model.Receipt, error)
}

// Config holds the contracts that receive writes. A nil ApprovalBuffer
// means DefaultApprovalBuffer; zero approves the exact amount.
type Config struct {
	Lending        common.Address
	Insurance      common.Address
	ApprovalBuffer *int64
	Metrics        *metrics.Metrics
}

// Result is the outcome of one user operation. Approval is set only when an
// approval transaction was submitted first.
type Result struct {
	Approval *model.Receipt `json:"approval,omitempty"`
	Receipt  model.Receipt  `json:"receipt"`
}

// Submitter wraps protocol writes with the allowance pre-check.
type Submitter struct {
	cfg        Config
	buffer     int64
	allowances AllowanceReader
	sender     Sender
	logger     *zap.Logger
}

func NewSubmitter(cfg Config, allowances AllowanceReader, sender Sender, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	buffer := int64(DefaultApprovalBuffer)
	if cfg.ApprovalBuffer != nil && *cfg.ApprovalBuffer >= 0 {
		buffer = *cfg.ApprovalBuffer
	}
	return &Submitter{cfg: cfg, buffer: buffer, allowances: allowances, sender: sender, logger: logger}
}

// Supply lends amount of asset to the lending contract.
func (s *Submitter) Supply(ctx context.Context, asset registry.Asset, amount string) (Result, error) {
	return s.lendingWrite(ctx, asset, amount, "supply", true)
}

// Borrow draws amount of asset against supplied collateral.
func (s *Submitter) Borrow(ctx context.Context, asset registry.Asset, amount string) (Result, error) {
	return s.lendingWrite(ctx, asset, amount, "borrow", false)
}

// Withdraw takes back supplied asset.
func (s *Submitter) Withdraw(ctx context.Context, asset registry.Asset, amount string) (Result, error) {
	return s.lendingWrite(ctx, asset, amount, "withdraw", false)
}

// RepayBorrow pays back borrowed asset.
func (s *Submitter) RepayBorrow(ctx context.Context, asset registry.Asset, amount string) (Result, error) {
	return s.lendingWrite(ctx, asset, amount, "repayBorrow", true)
}

// SplitRisk deposits amount of asset into the insurance tranches.
func (s *Submitter) SplitRisk(ctx context.Context, asset registry.Asset, amount string) (Result, error) {
	value, err := parseAmount(asset, amount)
	if err != nil {
		return Result{}, err
	}
	parsed, err := protocol.InsuranceABI()
	if err != nil {
		return Result{}, err
	}

	var result Result
	result.Approval, err = s.EnsureAllowance(ctx, asset, s.cfg.Insurance, value)
	if err != nil {
		return result, err
	}
	result.Receipt, err = s.send(ctx, s.cfg.Insurance, parsed, "splitRisk", asset.Address, value)
	return result, err
}

// Invest moves the account's insurance position of asset into the protocol.
func (s *Submitter) Invest(ctx context.Context, asset registry.Asset) (Result, error) {
	return s.insuranceWrite(ctx, asset, "invest")
}

// Divest withdraws the account's insurance position of asset from the protocol.
func (s *Submitter) Divest(ctx context.Context, asset registry.Asset) (Result, error) {
	return s.insuranceWrite(ctx, asset, "divest")
}

// ClaimAll redeems both insurance tranches of asset.
func (s *Submitter) ClaimAll(ctx context.Context, asset registry.Asset) (Result, error) {
	return s.insuranceWrite(ctx, asset, "claimAll")
}

// EnsureAllowance approves spender for amount plus the buffer unless the
// current allowance already exceeds amount. It returns the approval receipt
// whenever one was sent, including alongside the error of a failed approval.
func (s *Submitter) EnsureAllowance(ctx context.Context, asset registry.Asset, spender common.Address, amount *big.Int) (*model.Receipt, error) {
	if s.allowances == nil || s.sender == nil {
		return nil, fmt.Errorf("submitter is not configured")
	}
	owner := s.sender.From()
	allowance, err := s.allowances.Allowance(ctx, asset.Address, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("read allowance: %w", err)
	}
	if allowance.Cmp(amount) > 0 {
		s.cfg.Metrics.ObserveApproval("skipped")
		s.logger.Debug("allowance sufficient",
			zap.String("asset", asset.Symbol),
			zap.String("allowance", allowance.String()),
		)
		return nil, nil
	}

	approveAmount := new(big.Int).Add(amount, units.WholeUnits(s.buffer, asset.Decimals))
	parsed, err := protocol.ERC20ABI()
	if err != nil {
		return nil, err
	}
	receipt, err := s.send(ctx, asset.Address, parsed, "approve", spender, approveAmount)
	if err != nil {
		if receipt.TxHash == "" {
			return nil, fmt.Errorf("approve %s: %w", asset.Symbol, err)
		}
		return &receipt, fmt.Errorf("approve %s: %w", asset.Symbol, err)
	}
	s.cfg.Metrics.ObserveApproval("issued")
	s.logger.Info("approval mined",
		zap.String("asset", asset.Symbol),
		zap.String("spender", spender.Hex()),
		zap.String("amount", approveAmount.String()),
	)
	return &receipt, nil
}

func (s *Submitter) lendingWrite(ctx context.Context, asset registry.Asset, amount, method string, needsApproval bool) (Result, error) {
	value, err := parseAmount(asset, amount)
	if err != nil {
		return Result{}, err
	}
	parsed, err := protocol.LendingABI()
	if err != nil {
		return Result{}, err
	}

	var result Result
	if needsApproval {
		result.Approval, err = s.EnsureAllowance(ctx, asset, s.cfg.Lending, value)
		if err != nil {
			return result, err
		}
	}
	result.Receipt, err = s.send(ctx, s.cfg.Lending, parsed, method, asset.Address, value)
	return result, err
}

func (s *Submitter) insuranceWrite(ctx context.Context, asset registry.Asset, method string) (Result, error) {
	parsed, err := protocol.InsuranceABI()
	if err != nil {
		return Result{}, err
	}
	receipt, err := s.send(ctx, s.cfg.Insurance, parsed, method, asset.Address)
	return Result{Receipt: receipt}, err
}

func (s *Submitter) send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (model.Receipt, error) {
	if s.sender == nil {
		return model.Receipt{}, fmt.Errorf("sender is nil")
	}
	if to == (common.Address{}) {
		return model.Receipt{}, fmt.Errorf("%s: %w", method, registry.ErrMissingContract)
	}
	receipt, err := s.sender.Send(ctx, to, parsed, method, args...)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.cfg.Metrics.ObserveTransaction(method, status)
	return receipt, err
}

func parseAmount(asset registry.Asset, amount string) (*big.Int, error) {
	value, err := units.ToBaseUnits(amount, asset.Decimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s must be positive", units.ErrInvalidAmount, amount)
	}
	return value, nil
}
