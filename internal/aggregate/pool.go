package aggregate

import (
	"math"
	"math/big"

	"deltaLens/internal/model"
	"deltaLens/internal/registry"
	"deltaLens/internal/units"
)

// ratioDecimals is the fixed-point scale of the protocol collateral ratio.
const ratioDecimals = 18

// Position holds the raw base-unit reads for one asset.
type Position struct {
	Asset     registry.Asset
	Balance   *big.Int
	Liquidity *big.Int
	Supply    model.BalanceSplit
	Borrow    model.BalanceSplit
}

// MaxBorrow returns supplyWithInterest / ratio where ratio is 1e18-scaled.
// A zero or negative ratio yields zero.
func MaxBorrow(supplyWithInterest, ratio *big.Int) *big.Int {
	if supplyWithInterest == nil || ratio == nil || ratio.Sign() <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(supplyWithInterest, units.Scale(ratioDecimals))
	return out.Quo(out, ratio)
}

// BorrowLimit returns borrowWithInterest / maxBorrow * 100 rounded to two
// places and clamped to [0, 100]. over reports whether the raw figure
// exceeded 100.
func BorrowLimit(borrowWithInterest, maxBorrow *big.Int) (limit float64, over bool) {
	if borrowWithInterest == nil || maxBorrow == nil || maxBorrow.Sign() <= 0 {
		return 0, false
	}
	ratio := new(big.Rat).SetFrac(borrowWithInterest, maxBorrow)
	ratio.Mul(ratio, big.NewRat(100, 1))
	raw, _ := ratio.Float64()
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}
	raw = math.Round(raw*100) / 100
	switch {
	case raw > 100:
		return 100, true
	case raw < 0:
		return 0, false
	}
	return raw, false
}

// BuildPool converts one position into its view-model.
func BuildPool(pos Position, ratio *big.Int) model.Pool {
	decimals := pos.Asset.Decimals
	maxBorrow := MaxBorrow(pos.Supply.WithInterest, ratio)
	limit, over := BorrowLimit(pos.Borrow.WithInterest, maxBorrow)
	balance := units.FromBaseUnits(pos.Balance, decimals)

	return model.Pool{
		Address:   pos.Asset.Address.Hex(),
		Symbol:    pos.Asset.Symbol,
		Balance:   balance,
		Liquidity: units.FromBaseUnits(pos.Liquidity, decimals),

		LendBalance:  units.FromBaseUnits(pos.Supply.Principal, decimals),
		LendInterest: units.FromBaseUnits(pos.Supply.Interest(), decimals),
		LendAPY:      pos.Asset.LendAPY,
		MaxDeposit:   model.PoolCap{Amount: balance, Symbol: pos.Asset.Symbol},

		BorrowBalance:  units.FromBaseUnits(pos.Borrow.Principal, decimals),
		BorrowInterest: units.FromBaseUnits(pos.Borrow.Interest(), decimals),
		BorrowLimit:    limit,
		OverLimit:      over,
		BorrowAPY:      pos.Asset.BorrowAPY,
		MaxBorrow: model.PoolCap{
			Amount: units.FromBaseUnits(maxBorrow, decimals),
			Symbol: pos.Asset.Symbol,
		},
	}
}
