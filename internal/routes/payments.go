package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/payments"
)

// RegisterPaymentRoutes wires the endpoints that sign and broadcast.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/payments", h.Send)
	r.Post("/payments/bulk", h.SendBulk)
	r.Post("/assets/:asset/opt-in", h.OptIn)
}

// RegisterPaymentReadRoutes wires submission history lookups.
func RegisterPaymentReadRoutes(r fiber.Router, h *payments.Handler) {
	r.Get("/payments", h.History)
	r.Get("/payments/:txId", h.Get)
}
