package wallet

import "time"

// Connection describes the account bound by a connect or reconnect. Balance
// is nil when the node could not be asked for it.
type Connection struct {
	Account     string    `json:"account"`
	Accounts    []string  `json:"accounts"`
	Balance     *float64  `json:"balance"`
	ConnectedAt time.Time `json:"connected_at"`
}
