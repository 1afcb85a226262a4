package payments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/journal"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
	journal journal.Journal
}

// NewHandler constructs a payment handler. j may be nil when no journal is kept.
func NewHandler(service *Service, j journal.Journal) *Handler {
	return &Handler{service: service, journal: j}
}

// Send processes a single transfer.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.SendPayment(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, res)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// SendBulk processes a grouped transfer to many recipients.
func (h *Handler) SendBulk(c *fiber.Ctx) error {
	var req BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.SendBulkPayment(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, res)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// OptIn opts the connected account in to :asset.
func (h *Handler) OptIn(c *fiber.Ctx) error {
	res, err := h.service.OptIn(c.UserContext(), c.Params("asset"))
	if err != nil {
		return respondError(c, err, res)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Get returns the journal entry for :txId.
func (h *Handler) Get(c *fiber.Ctx) error {
	if h.journal == nil {
		return fiber.NewError(http.StatusNotFound, "submission history is not kept")
	}
	entry, err := h.journal.Get(c.UserContext(), c.Params("txId"))
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(entry)
}

// History lists recent submissions of ?sender, defaulting to the connected account.
func (h *Handler) History(c *fiber.Ctx) error {
	if h.journal == nil {
		return c.JSON(fiber.Map{"submissions": []journal.Entry{}})
	}
	sender := c.Query("sender")
	if sender == "" {
		acct, err := h.service.Session.Require()
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		sender = acct
	} else if _, err := address.Normalize(sender); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.journal.ListBySender(c.UserContext(), sender, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"submissions": entries})
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindNoValidRecipients:
		return http.StatusBadRequest
	case KindNotConnected:
		return http.StatusUnauthorized
	case KindNotOptedIn, KindRecipientUnfunded:
		return http.StatusUnprocessableEntity
	case KindSignerRejected:
		return http.StatusForbidden
	case KindBroadcastRejected:
		return http.StatusBadGateway
	case KindConfirmationTimeout:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the failure together with whatever result the flow
// produced, so a timed-out submission still reports its transaction id.
func respondError(c *fiber.Ctx, err error, result any) error {
	kind := KindOf(err)
	return c.Status(statusFor(kind)).JSON(fiber.Map{
		"error":  err.Error(),
		"kind":   kind,
		"result": result,
	})
}
