package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRecipient marks a bulk entry whose JSON shape is unusable.
var ErrMalformedRecipient = errors.New("malformed recipient")

// UnmarshalJSON never fails: an entry that is not an object, or whose address
// is not a string or amount not a number, decodes to a Recipient that Screen
// rejects on its own so the rest of the batch still goes through.
func (r *Recipient) UnmarshalJSON(data []byte) error {
	*r = Recipient{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		r.malformed = fmt.Errorf("%w: not an object", ErrMalformedRecipient)
		return nil
	}

	if raw, ok := fields["address"]; !ok || json.Unmarshal(raw, &r.Address) != nil || isNull(raw) {
		r.malformed = fmt.Errorf("%w: address must be a string", ErrMalformedRecipient)
	}
	if raw, ok := fields["amount"]; !ok || json.Unmarshal(raw, &r.Amount) != nil || isNull(raw) {
		if r.malformed == nil {
			r.malformed = fmt.Errorf("%w: amount must be a number", ErrMalformedRecipient)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
