package payments

import (
	"errors"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/eligibility"
	"github.com/congo-pay/algopay/internal/submit"
	"github.com/congo-pay/algopay/internal/txbuild"
	"github.com/congo-pay/algopay/internal/wallet"
)

// Kind classifies a failed flow.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotConnected        Kind = "not_connected"
	KindNotOptedIn          Kind = "not_opted_in"
	KindRecipientUnfunded   Kind = "recipient_unfunded"
	KindSignerRejected      Kind = "signer_rejected"
	KindBroadcastRejected   Kind = "broadcast_rejected"
	KindConfirmationTimeout Kind = "confirmation_timeout"
	KindNoValidRecipients   Kind = "no_valid_recipients"
	KindInternal            Kind = "internal"
)

// ErrNoValidRecipients is returned when screening leaves nothing to send.
var ErrNoValidRecipients = errors.New("no valid recipients")

// Error is the single failure shape returned by the payment flows.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, wallet.ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ErrNoValidRecipients):
		return KindNoValidRecipients
	case errors.Is(err, eligibility.ErrNotOptedIn):
		return KindNotOptedIn
	case errors.Is(err, eligibility.ErrRecipientUnfunded):
		return KindRecipientUnfunded
	case errors.Is(err, submit.ErrSignerRejected):
		return KindSignerRejected
	case errors.Is(err, submit.ErrBroadcastRejected):
		return KindBroadcastRejected
	case errors.Is(err, submit.ErrConfirmationTimeout):
		return KindConfirmationTimeout
	case errors.Is(err, ErrMalformedRecipient),
		errors.Is(err, address.ErrInvalid),
		errors.Is(err, amount.ErrNotPositive),
		errors.Is(err, amount.ErrNotFinite),
		errors.Is(err, amount.ErrTooSmall),
		errors.Is(err, amount.ErrTooLarge),
		errors.Is(err, amount.ErrDecimals),
		errors.Is(err, asset.ErrUnknownAsset),
		errors.Is(err, txbuild.ErrInvalidIntent),
		errors.Is(err, txbuild.ErrGroupTooLarge),
		errors.Is(err, txbuild.ErrEmptyGroup):
		return KindValidation
	default:
		return KindInternal
	}
}

// fail wraps err in an *Error with a message for the caller.
func fail(msg string, err error) *Error {
	pe := &Error{Kind: classify(err), Err: err}
	if msg != "" {
		pe.Message = msg + ": " + err.Error()
	}
	return pe
}
