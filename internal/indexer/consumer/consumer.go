// Package consumer listens for catalogue-refresh events on Kafka and runs a
// reload for each one. The content pipeline publishes such an event after it
// writes a new catalogue.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
)

// RefreshEvent is the message body on the catalogue-refresh topic. All
// fields are informational; any message triggers a reload.
type RefreshEvent struct {
	Reason      string `json:"reason,omitempty"`
	Version     string `json:"version,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Reloader is the part of indexer.Reloader the consumer drives.
type Reloader interface {
	Reload(ctx context.Context, trigger indexer.Trigger) (indexer.Result, error)
}

// RefreshConsumer wraps a Kafka consumer that drives catalogue reloads.
type RefreshConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *RefreshConsumer {
	return &RefreshConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "refresh-consumer"),
	}
}

// Start consumes refresh events until ctx is cancelled.
func (rc *RefreshConsumer) Start(ctx context.Context) error {
	rc.logger.Info("refresh consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that reloads the catalogue for each
// refresh event. Undecodable events and invalid catalogues are not retried:
// the same message would fail the same way.
func HandleMessage(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "refresh-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[RefreshEvent](value)
		if err != nil {
			logger.Error("failed to decode refresh event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		log := logger.With("announced_version", event.Version)
		log.Debug("processing refresh event",
			"reason", event.Reason,
			"requested_by", event.RequestedBy,
		)
		res, err := r.Reload(ctx, indexer.TriggerKafka)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidCatalogue) {
				return resilience.Permanent(err)
			}
			return err
		}
		log.Info("refresh event applied",
			"version", res.Stats.Version,
			"changed", res.Changed,
		)
		return nil
	}
}
