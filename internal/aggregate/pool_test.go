package aggregate

import (
	"math/big"
	"testing"
)

func TestMaxBorrowZeroRatio(t *testing.T) {
	if got := MaxBorrow(big.NewInt(100), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("expected 0, got %s", got)
	}
}

func TestBorrowLimitZeroMaxBorrow(t *testing.T) {
	limit, over := BorrowLimit(big.NewInt(10), big.NewInt(0))
	if limit != 0 || over {
		t.Fatalf("expected 0/false, got %v/%v", limit, over)
	}
}

func TestBorrowLimitRoundsAndClamps(t *testing.T) {
	limit, over := BorrowLimit(big.NewInt(1), big.NewInt(3))
	if limit != 33.33 || over {
		t.Fatalf("expected 33.33, got %v", limit)
	}

	limit, over = BorrowLimit(big.NewInt(3), big.NewInt(2))
	if limit != 100 || !over {
		t.Fatalf("expected clamp to 100 with over flag, got %v/%v", limit, over)
	}
}
