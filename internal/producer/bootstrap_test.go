package producer

import (
	"context"
	"testing"
)

// TestComputeStartHeight_RestartIsIdempotent reproduces the scenario
// spec's Testable Property 7 requires: a bootstrap height persisted
// once, followed by several L1 blocks applied (each sealing exactly one
// EVM block whether or not it carried items), must yield the same next
// height on restart as the live fetcher had already reached — never
// replaying an L1 height already consumed, never skipping one either.
func TestComputeStartHeight_RestartIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.SaveHeight(6); err != nil {
		t.Fatalf("seed bootstrap height: %v", err)
	}
	engine := newFakeEngine()

	got, err := ComputeStartHeight(context.Background(), store, engine)
	if err != nil {
		t.Fatalf("compute start height: %v", err)
	}
	if got != 6 {
		t.Fatalf("expected fresh bootstrap to start at height 6, got %d", got)
	}

	// the loop processes L1 heights 6, 7, and 8, sealing one EVM block
	// per height without ever rewriting the height cursor itself.
	for i := 0; i < 3; i++ {
		bp, err := engine.GenerateBlockProducer(context.Background(), 0)
		if err != nil {
			t.Fatalf("generate block producer: %v", err)
		}
		if _, err := bp.ProduceBlock(context.Background(), nil); err != nil {
			t.Fatalf("produce block: %v", err)
		}
	}

	got, err = ComputeStartHeight(context.Background(), store, engine)
	if err != nil {
		t.Fatalf("compute start height after restart: %v", err)
	}
	if got != 9 {
		t.Fatalf("expected restart to resume at height 9 (6 + 3 sealed blocks), got %d", got)
	}
}

// TestComputeStartHeight_FreshDatadirStartsAtGenesis covers the case
// where no height has ever been persisted: LoadHeight's zero default
// combines with an empty EVM chain to start scanning from height 0.
func TestComputeStartHeight_FreshDatadirStartsAtGenesis(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine := newFakeEngine()

	got, err := ComputeStartHeight(context.Background(), store, engine)
	if err != nil {
		t.Fatalf("compute start height: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected a fresh datadir to start at height 0, got %d", got)
	}
}
