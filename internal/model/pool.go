package model

// Pool is the per-asset account view assembled by one aggregation pass.
// Amounts are decimal strings in whole-token units.
type Pool struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Balance   string `json:"balance"`
	Liquidity string `json:"liquidity"`

	LendBalance  string  `json:"lend_balance"`
	LendInterest string  `json:"lend_interest"`
	LendAPY      float64 `json:"lend_apy"`
	MaxDeposit   PoolCap `json:"max_deposit"`

	BorrowBalance  string  `json:"borrow_balance"`
	BorrowInterest string  `json:"borrow_interest"`
	BorrowLimit    float64 `json:"borrow_limit"`
	OverLimit      bool    `json:"over_limit,omitempty"`
	BorrowAPY      float64 `json:"borrow_apy"`
	MaxBorrow      PoolCap `json:"max_borrow"`
}

// PoolCap pairs a limit amount with the asset symbol it is denominated in.
type PoolCap struct {
	Amount string `json:"amount"`
	Symbol string `json:"symbol"`
}

// FindPool returns the pool whose asset symbol matches.
func FindPool(pools []Pool, symbol string) (Pool, bool) {
	for _, pool := range pools {
		if pool.MaxDeposit.Symbol == symbol {
			return pool, true
		}
	}
	return Pool{}, false
}
