package balance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/logging"
	"github.com/congo-pay/algopay/internal/node/nodetest"
)

type staticSession string

func (s staticSession) CurrentAccount() (string, bool) { return string(s), s != "" }

func newTestApp(fake *nodetest.Fake, session AccountSource) *fiber.App {
	h := NewHandler(fake, session, logging.Discard())
	app := fiber.New()
	app.Get("/balance", h.Balance)
	app.Get("/assets/:assetId", h.AssetInfo)
	return app
}

func TestBalanceHandlerDefaultsToConnectedAccount(t *testing.T) {
	acct := crypto.GenerateAccount().Address.String()
	fake := nodetest.New()
	fake.Fund(acct, 7_000_000)
	app := newTestApp(fake, staticSession(acct))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/balance", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var b Balance
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Address != acct || b.Native != 7 {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func TestBalanceHandlerErrors(t *testing.T) {
	app := newTestApp(nodetest.New(), staticSession(""))

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/balance", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/balance?address=bogus", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed address, got %d", resp.StatusCode)
	}

	// Unknown accounts degrade to an empty balance.
	acct := crypto.GenerateAccount().Address.String()
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/balance?address="+acct, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for best-effort lookup, got %d", resp.StatusCode)
	}
}

func TestAssetInfoHandler(t *testing.T) {
	fake := nodetest.New()
	fake.AddAsset(10458941, "USDC", "USDC", 6)
	app := newTestApp(fake, staticSession(""))

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/assets/10458941", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Symbol != "USDC" || info.Decimals != 6 {
		t.Fatalf("unexpected info %+v", info)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/assets/5", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/assets/abc", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
