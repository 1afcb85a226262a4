package balance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/node"
)

// AccountSource supplies the connected account when no address is given.
type AccountSource interface {
	CurrentAccount() (string, bool)
}

// Handler exposes balance and asset metadata endpoints.
type Handler struct {
	balances *Aggregator
	assets   *Aggregator
	session  AccountSource
}

// NewHandler builds a handler. Balances are best-effort; asset lookups report errors.
func NewHandler(n Reader, session AccountSource, logger *slog.Logger) *Handler {
	return &Handler{
		balances: NewAggregator(n, BestEffort, logger),
		assets:   NewAggregator(n, Strict, logger),
		session:  session,
	}
}

// Balance returns balances for ?address= or the connected account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	addr := c.Query("address")
	if addr == "" {
		acct, ok := h.session.CurrentAccount()
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "wallet not connected and no address given")
		}
		addr = acct
	} else {
		normalized, err := address.Normalize(addr)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		addr = normalized
	}

	b, _ := h.balances.Balance(c.UserContext(), addr)
	return c.Status(http.StatusOK).JSON(b)
}

// AssetInfo returns metadata for :assetId.
func (h *Handler) AssetInfo(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("assetId"), 10, 64)
	if err != nil || id == 0 {
		return fiber.NewError(http.StatusBadRequest, "asset id must be a positive integer")
	}
	info, err := h.assets.AssetInfo(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, node.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(info)
}
