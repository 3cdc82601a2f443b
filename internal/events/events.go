package events

import (
	"tuma-ledger/internal/interfaces"
	"tuma-ledger/internal/logger"
	"tuma-ledger/internal/models"
)

// LogEmitter wraps another emitter and logs every event before forwarding.
type LogEmitter struct {
	WrappedEmitter interfaces.EventEmitter
}

// EmitEvent logs the event fields and forwards to the wrapped emitter
func (d *LogEmitter) EmitEvent(event models.LedgerEvent) error {
	log := logger.GetLogger().Info().
		Str("eventId", event.EventID).
		Str("kind", string(event.Kind)).
		Str("ledger", event.Ledger.String()).
		Uint64("recordId", event.RecordID).
		Str("owner", event.Owner).
		Str("amount", event.Amount.String()).
		Time("timestamp", event.Timestamp)

	switch event.Ledger {
	case models.TransactionLedger:
		log = log.
			Str("sourceCurrency", event.SourceCurrency).
			Str("targetCurrency", event.TargetCurrency).
			Str("type", event.TransactionType.String())
	case models.BridgeLedger:
		log = log.
			Str("sourceNetwork", event.SourceNetwork).
			Str("targetNetwork", event.TargetNetwork).
			Str("currency", event.Currency)
	}
	if event.Reason != "" {
		log = log.Str("reason", event.Reason)
	}
	log.Msg("Ledger event")

	// Forward to wrapped emitter
	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(event)
	}
	return nil
}
