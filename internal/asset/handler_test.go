package asset

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/node/nodetest"
)

func TestDiscoverHandler(t *testing.T) {
	fake := nodetest.New()
	fake.AddAsset(37074699, "USD Coin", "USDC", 6)

	h := NewHandler(DefaultRegistry(), fake)
	app := fiber.New()
	app.Get("/assets", h.List)
	app.Get("/assets/discover/:symbol", h.Discover)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/assets/discover/usdc", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var found Asset
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if found.ID != 37074699 {
		t.Fatalf("unexpected asset %+v", found)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/assets/discover/DOGE", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without candidates, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/assets", nil))
	var listed struct {
		Assets []Asset `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Assets) != 2 || listed.Assets[0].Symbol != "ALGO" {
		t.Fatalf("unexpected list %+v", listed.Assets)
	}
}
