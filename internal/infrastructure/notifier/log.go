// Package notifier contains ports.Notifier sinks.
package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/ports"
)

// LogNotifier writes each delivery to the structured log. It stands in for an
// email or SMS gateway.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, d ports.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().
		Str("recipient", d.Recipient).
		Str("subject", d.Subject).
		Str("body", d.Body).
		Msg("delivery sent")
	return nil
}
