package ports

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
)

// EventProducer — публикация событий в брокер.
type EventProducer interface {
	Produce(ctx context.Context, req domain.ProducerRequest) (domain.DeliveryReport, error)
	Close() error
}
