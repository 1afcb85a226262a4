package asset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/congo-pay/algopay/internal/node/nodetest"
)

func TestResolve(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		selector string
		want     Asset
	}{
		{"", Native},
		{"ALGO", Native},
		{"algo", Native},
		{"0", Native},
		{"USDC", USDC},
		{" usdc ", USDC},
		{"10458941", USDC},
	}
	for _, tc := range cases {
		got, err := r.Resolve(tc.selector)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.selector, err)
		}
		if got != tc.want {
			t.Fatalf("resolve %q = %+v, want %+v", tc.selector, got, tc.want)
		}
	}

	for _, bad := range []string{"DOGE", "12345", "-1"} {
		if _, err := r.Resolve(bad); !errors.Is(err, ErrUnknownAsset) {
			t.Fatalf("resolve %q: expected ErrUnknownAsset, got %v", bad, err)
		}
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(USDC, Asset{ID: 99, Symbol: "usdc"}); err == nil {
		t.Fatalf("expected duplicate symbol error")
	}
	if _, err := NewRegistry(USDC, Asset{ID: USDC.ID, Symbol: "OTHER"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, err := NewRegistry(Asset{ID: 0, Symbol: "ZERO"}); err == nil {
		t.Fatalf("expected reserved id error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	doc := []byte(`
assets:
  - symbol: usdc
    id: 10458941
    decimals: 6
  - symbol: GOLD
    id: 777
    name: Gold Token
    decimals: 2
discovery:
  gold: [1, 777]
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	gold, err := r.Resolve("gold")
	if err != nil {
		t.Fatalf("resolve gold: %v", err)
	}
	if gold.Decimals != 2 || gold.Name != "Gold Token" {
		t.Fatalf("unexpected gold asset %+v", gold)
	}
	if len(r.All()) != 3 {
		t.Fatalf("expected native plus two assets, got %d", len(r.All()))
	}
	if got := r.Candidates("GOLD"); len(got) != 2 || got[1] != 777 {
		t.Fatalf("unexpected candidates %v", got)
	}
}

func TestDiscover(t *testing.T) {
	fake := nodetest.New()
	fake.AddAsset(10458942, "Some Token", "SOME", 2)
	fake.AddAsset(37074699, "USDC Testnet", "USDC", 6)

	got, err := Discover(context.Background(), fake, []uint64{10458941, 10458942, 37074699, 312769}, "usdc")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if got.ID != 37074699 || got.Decimals != 6 || got.Symbol != "USDC" {
		t.Fatalf("unexpected asset %+v", got)
	}
	if fake.Calls("Asset") != 3 {
		t.Fatalf("expected probing to stop at the match, got %d calls", fake.Calls("Asset"))
	}

	if _, err := Discover(context.Background(), fake, []uint64{1, 2}, "USDC"); !errors.Is(err, ErrNotDiscovered) {
		t.Fatalf("expected ErrNotDiscovered, got %v", err)
	}
}
