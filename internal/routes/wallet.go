package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/balance"
	"github.com/congo-pay/algopay/internal/wallet"
)

// RegisterWalletRoutes wires session endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/session/connect", h.Connect)
	r.Post("/session/reconnect", h.Reconnect)
	r.Post("/session/disconnect", h.Disconnect)
	r.Get("/session", h.Status)
}

// RegisterBalanceRoutes wires balance and asset metadata endpoints.
func RegisterBalanceRoutes(r fiber.Router, b *balance.Handler, a *asset.Handler) {
	r.Get("/balance", b.Balance)
	r.Get("/assets", a.List)
	r.Get("/assets/discover/:symbol", a.Discover)
	r.Get("/assets/:assetId", b.AssetInfo)
}
