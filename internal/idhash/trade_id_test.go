package idhash

import "testing"

func TestComputeTradeID_Deterministic(t *testing.T) {
	a := ComputeTradeID("wallet1", "mint1", "buy", 0.5, "key1")
	b := ComputeTradeID("wallet1", "mint1", "buy", 0.5, "key1")

	if a != b {
		t.Errorf("Same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64-char hex ID, got %d chars", len(a))
	}
}

func TestComputeTradeID_DistinctInputs(t *testing.T) {
	base := ComputeTradeID("wallet1", "mint1", "buy", 0.5, "key1")

	variants := []string{
		ComputeTradeID("wallet2", "mint1", "buy", 0.5, "key1"),
		ComputeTradeID("wallet1", "mint2", "buy", 0.5, "key1"),
		ComputeTradeID("wallet1", "mint1", "sell", 0.5, "key1"),
		ComputeTradeID("wallet1", "mint1", "buy", 0.6, "key1"),
		ComputeTradeID("wallet1", "mint1", "buy", 0.5, "key2"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("Variant %d collided with base ID", i)
		}
	}
}
