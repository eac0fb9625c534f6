package provider

import (
	"errors"
	"sort"
	"testing"

	"github.com/marketfall/marketfall"
)

func TestResolve(t *testing.T) {
	c, ok := Resolve("bitcoin")
	if !ok {
		t.Fatal("bitcoin missing from registry")
	}
	if c.Symbol != "BTC" || c.PaprikaID != "btc-bitcoin" {
		t.Errorf("unexpected entry: %+v", c)
	}

	if _, ok := Resolve("not-a-coin"); ok {
		t.Error("unknown coin resolved")
	}
}

func TestMustResolve(t *testing.T) {
	if _, err := MustResolve("ethereum"); err != nil {
		t.Fatalf("MustResolve(ethereum): %v", err)
	}

	_, err := MustResolve("not-a-coin")
	if err == nil {
		t.Fatal("expected error for unknown coin")
	}
	if !errors.Is(err, marketfall.ErrUnsupportedCoin) {
		t.Errorf("expected UNSUPPORTED_COIN, got %v", err)
	}
}

func TestIDs(t *testing.T) {
	ids := IDs()
	if len(ids) != len(coins) {
		t.Fatalf("IDs() returned %d entries, registry has %d", len(ids), len(coins))
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("IDs() not sorted")
	}
}

func TestRegistryComplete(t *testing.T) {
	for id, c := range coins {
		if c.ID != id {
			t.Errorf("%s: entry ID %q does not match key", id, c.ID)
		}
		if c.Symbol == "" {
			t.Errorf("%s: missing symbol", id)
		}
		if c.PaprikaID == "" {
			t.Errorf("%s: missing paprika id", id)
		}
	}
}
