package routes

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/algopay/internal/config"
	"github.com/congo-pay/algopay/internal/logging"
	"github.com/congo-pay/algopay/internal/metrics"
	"github.com/congo-pay/algopay/internal/node/nodetest"
	"github.com/congo-pay/algopay/internal/signer/signertest"
)

const testAPIKey = "let-me-in"

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	account := crypto.GenerateAccount().Address.String()
	n := nodetest.New()
	n.Fund(account, 5_000_000)

	app := fiber.New()
	err = Setup(app, Deps{
		Cfg: config.Config{
			AppEnv:             "development",
			ConfirmationRounds: 4,
			APIKeyHash:         string(hash),
		},
		Logger:  logging.Discard(),
		Node:    n,
		Signer:  signertest.New(account),
		Metrics: metrics.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app, account
}

func do(t *testing.T, app *fiber.App, method, path, body string, authed bool) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	err := Setup(fiber.New(), Deps{
		Cfg:    config.Config{AppEnv: "production"},
		Logger: logging.Discard(),
		Node:   nodetest.New(),
		Signer: signertest.New(),
	})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)

	status, out := do(t, app, fiber.MethodGet, "/healthz", "", false)
	assert.Equal(t, fiber.StatusOK, status)
	checks, _ := out["status"].(map[string]any)
	assert.Equal(t, "ok", checks["algod"])
	assert.Equal(t, "disabled", checks["postgres"])
}

func TestSessionAndPaymentFlow(t *testing.T) {
	app, account := newTestApp(t)

	status, _ := do(t, app, fiber.MethodPost, "/api/v1/session/connect", "", false)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, out := do(t, app, fiber.MethodPost, "/api/v1/session/connect", "", true)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, account, out["account"])

	status, out = do(t, app, fiber.MethodGet, "/api/v1/balance", "", false)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 5.0, out["native"])

	recipient := crypto.GenerateAccount().Address.String()
	status, out = do(t, app, fiber.MethodPost, "/api/v1/payments", `{"recipient":"`+recipient+`","amount":1.5}`, true)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "confirmed", out["status"])

	txID, _ := out["tx_id"].(string)
	status, out = do(t, app, fiber.MethodGet, "/api/v1/payments/"+txID, "", false)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "payment", out["kind"])

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/disconnect", "", true)
	require.Equal(t, fiber.StatusOK, status)
	status, out = do(t, app, fiber.MethodPost, "/api/v1/payments", `{"recipient":"`+recipient+`","amount":1}`, true)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "not_connected", out["kind"])

	status, _ = do(t, app, fiber.MethodGet, "/metrics", "", false)
	assert.Equal(t, fiber.StatusOK, status)
}
