package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHandlerSessionLifecycle(t *testing.T) {
	s, _, node := newTestSession(t, accountA)
	node.Fund(accountA, 1_000_000)
	h := NewHandler(s)

	app := fiber.New()
	app.Post("/session/connect", h.Connect)
	app.Post("/session/disconnect", h.Disconnect)
	app.Get("/session", h.Status)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/session/connect", nil))
	if err != nil {
		t.Fatalf("connect request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var connected map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&connected); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if connected["account"] != accountA || connected["balance"] != 1.0 {
		t.Fatalf("unexpected body %v", connected)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/session", nil))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Connected || st.Account != accountA {
		t.Fatalf("unexpected state %+v", st)
	}

	if _, err := app.Test(httptest.NewRequest(http.MethodPost, "/session/disconnect", nil)); err != nil {
		t.Fatalf("disconnect request: %v", err)
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/session", nil))
	st = stateResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Connected {
		t.Fatalf("expected disconnected state")
	}
}

func TestHandlerConnectWithoutAccounts(t *testing.T) {
	s, _, _ := newTestSession(t)
	app := fiber.New()
	app.Post("/session/connect", NewHandler(s).Connect)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/session/connect", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
