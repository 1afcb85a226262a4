package asset

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the registry over HTTP.
type Handler struct {
	registry *Registry
	node     MetadataReader
}

// NewHandler builds a registry handler.
func NewHandler(registry *Registry, n MetadataReader) *Handler {
	return &Handler{registry: registry, node: n}
}

// List returns the configured assets.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"assets": h.registry.All()})
}

// Discover probes the configured candidate ids for :symbol.
func (h *Handler) Discover(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	candidates := h.registry.Candidates(symbol)
	if len(candidates) == 0 {
		return fiber.NewError(http.StatusNotFound, "no discovery candidates configured for "+symbol)
	}
	found, err := Discover(c.UserContext(), h.node, candidates, symbol)
	if err != nil {
		if errors.Is(err, ErrNotDiscovered) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(found)
}
