package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/signer"
)

// Handler exposes session HTTP endpoints.
type Handler struct {
	session *Session
}

// NewHandler builds a session HTTP handler.
func NewHandler(session *Session) *Handler {
	return &Handler{session: session}
}

type stateResponse struct {
	Connected bool     `json:"connected"`
	Account   string   `json:"account,omitempty"`
	Short     string   `json:"short,omitempty"`
	Balance   *float64 `json:"balance,omitempty"`
}

// Connect pairs with the wallet.
func (h *Handler) Connect(c *fiber.Ctx) error {
	conn, err := h.session.Connect(c.UserContext())
	if err != nil {
		return sessionError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":      conn.Account,
		"accounts":     conn.Accounts,
		"balance":      conn.Balance,
		"connected_at": conn.ConnectedAt,
	})
}

// Reconnect restores a previous pairing if one exists.
func (h *Handler) Reconnect(c *fiber.Ctx) error {
	conn, ok, err := h.session.Reconnect(c.UserContext())
	if err != nil {
		return sessionError(err)
	}
	if !ok {
		return c.Status(http.StatusOK).JSON(stateResponse{Connected: false})
	}
	return c.Status(http.StatusOK).JSON(stateResponse{
		Connected: true,
		Account:   conn.Account,
		Short:     address.Short(conn.Account),
		Balance:   conn.Balance,
	})
}

// Disconnect ends the pairing.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	if err := h.session.Disconnect(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(stateResponse{Connected: false})
}

// Status reports the bound account.
func (h *Handler) Status(c *fiber.Ctx) error {
	st := h.session.State()
	if !st.Connected {
		return c.Status(http.StatusOK).JSON(stateResponse{Connected: false})
	}
	return c.Status(http.StatusOK).JSON(stateResponse{
		Connected: true,
		Account:   st.Account,
		Short:     address.Short(st.Account),
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrNoAccountsFound):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, signer.ErrRejected):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
