package fees

import "testing"

func TestSplitWaivesDustAmounts(t *testing.T) {
	for _, amount := range []uint64{0, 1, 50, 99} {
		take, fee := Split(amount, DefaultRatePerMille)
		if fee != 0 {
			t.Fatalf("amount %d: expected waived fee, got %d", amount, fee)
		}
		if take != amount {
			t.Fatalf("amount %d: expected full take-home, got %d", amount, take)
		}
	}
}

func TestSplitMinimumFee(t *testing.T) {
	// 100 * 3 / 1000 rounds to zero, so the minimum of one unit applies.
	take, fee := Split(100, DefaultRatePerMille)
	if fee != 1 {
		t.Fatalf("expected minimum fee of 1, got %d", fee)
	}
	if take != 99 {
		t.Fatalf("expected take-home 99, got %d", take)
	}
}

func TestSplitProportionalFee(t *testing.T) {
	take, fee := Split(5000, DefaultRatePerMille)
	if fee != 15 {
		t.Fatalf("expected fee 15, got %d", fee)
	}
	if take != 4985 {
		t.Fatalf("expected take-home 4985, got %d", take)
	}
}

func TestSplitConservesAmount(t *testing.T) {
	amounts := []uint64{0, 1, 99, 100, 101, 999, 1000, 5000, 123_456_789, 2_000_000_000, ^uint64(0)}
	for _, amount := range amounts {
		take, fee := Split(amount, DefaultRatePerMille)
		if take+fee != amount {
			t.Fatalf("amount %d: take %d + fee %d != amount", amount, take, fee)
		}
		if amount < WaiverThreshold && fee != 0 {
			t.Fatalf("amount %d: fee %d despite waiver", amount, fee)
		}
	}
}

func TestSplitLargeAmountNoOverflow(t *testing.T) {
	amount := ^uint64(0)
	take, fee := Split(amount, DefaultRatePerMille)
	if take+fee != amount {
		t.Fatalf("overflowed 128-bit intermediate: take %d fee %d", take, fee)
	}
	if fee == 0 {
		t.Fatalf("expected non-zero fee for max amount")
	}
}
