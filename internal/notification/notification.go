package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPaymentConfirmed is sent when a single transfer commits.
	KindPaymentConfirmed = "payment_confirmed"
	// KindBulkConfirmed is sent when a grouped batch commits.
	KindBulkConfirmed = "bulk_confirmed"
	// KindPaymentPending is sent when confirmation was not observed in time.
	KindPaymentPending = "payment_pending"
	// KindAssetOptIn is sent when an opt-in commits.
	KindAssetOptIn = "asset_opt_in"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	TxID        string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"tx_id", message.TxID,
		"body", message.Body,
	)
	return nil
}
