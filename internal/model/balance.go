package model

import "math/big"

// BalanceSplit is a principal/with-interest pair read from the lending contract.
type BalanceSplit struct {
	Principal    *big.Int
	WithInterest *big.Int
}

// Interest returns WithInterest - Principal in base units.
func (b BalanceSplit) Interest() *big.Int {
	principal := b.Principal
	if principal == nil {
		principal = new(big.Int)
	}
	withInterest := b.WithInterest
	if withInterest == nil {
		withInterest = new(big.Int)
	}
	return new(big.Int).Sub(withInterest, principal)
}

// InsuranceBalances holds the two tranche balances of an account's
// insurance position and their sum, in whole-token units.
type InsuranceBalances struct {
	Account string `json:"account"`
	Safe    string `json:"safe"`
	Risky   string `json:"risky"`
	Total   string `json:"total"`
}
