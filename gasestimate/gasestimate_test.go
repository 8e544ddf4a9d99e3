package gasestimate

import (
	"context"
	"testing"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
)

func mustAddr(t *testing.T, hex string) chaintypes.Address {
	t.Helper()
	a, err := chaintypes.AddressFromHex(hex)
	if err != nil {
		t.Fatalf("address from hex: %v", err)
	}
	return a
}

// TestLimitCreationS2 is scenario S2's gas-limit half: estimate + 15000
// (creation) + 200000 (universal).
func TestLimitCreationS2(t *testing.T) {
	b := backend.NewFake()
	ctx := context.Background()
	account := mustAddr(t, "0x0000000000000000000000000000000000000a")

	limit, err := Limit(ctx, b, account, chaintypes.AddressEmpty, chaintypes.Zero(), []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("Limit: %v", err)
	}
	// backend.Fake.EstimateGas returns 500_000 for creation destinations.
	want := uint64(500_000 + CreationPad + UniversalPad)
	if limit != want {
		t.Fatalf("Limit = %d, want %d", limit, want)
	}
}

func TestLimitCall(t *testing.T) {
	b := backend.NewFake()
	ctx := context.Background()
	account := mustAddr(t, "0x0000000000000000000000000000000000000a")
	to := mustAddr(t, "0x00000000000000000000000000000000000b0b")

	limit, err := Limit(ctx, b, account, to, chaintypes.Zero(), nil)
	if err != nil {
		t.Fatalf("Limit: %v", err)
	}
	want := uint64(50_000 + UniversalPad)
	if limit != want {
		t.Fatalf("Limit = %d, want %d", limit, want)
	}
}

func TestPriceEstimatorRefreshes(t *testing.T) {
	b := backend.NewFake()
	ctx := context.Background()

	est, err := NewPriceEstimator(ctx, b, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewPriceEstimator: %v", err)
	}
	defer est.Close()

	if est.SuggestGasPrice().IsZero() {
		t.Fatal("want nonzero initial gas price")
	}

	updated := chaintypes.Wei(42)
	b.SetGasPrice(updated)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if est.SuggestGasPrice().Cmp(updated) == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("gas price never refreshed to updated value")
}
