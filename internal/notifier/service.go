package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/rdyatmika/go-storefront-api/internal/catalog"
	kafkax "github.com/rdyatmika/go-storefront-api/internal/kafka"
	"github.com/rdyatmika/go-storefront-api/internal/orders"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

type ProductFinder interface {
	FindByID(ctx context.Context, id string) (catalog.Product, error)
}

// Publisher is what the notifier needs from a kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service watches order.created events and raises stock.low when an
// ordered product has dropped to the configured threshold. It is purely
// observational: the catalog is read, never written.
type Service struct {
	Catalog     ProductFinder
	Redis       *redis.Client
	Producer    Publisher // publishes stock.low
	ServiceName string
	Threshold   int
}

// HandleOrderCreated is wired as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	// dedup by event_id so redelivery does not re-alert
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, it := range p.Items {
		prod, err := s.Catalog.FindByID(ctx, it.ProductID)
		if err != nil {
			// product may have been removed since the order; not retryable
			log.Warn().Err(err).Str("product_id", it.ProductID).Msg("skip stock check")
			continue
		}
		if prod.Stock > s.Threshold {
			continue
		}
		flag := fmt.Sprintf(redisx.KeyLowStock, prod.ID)
		if exists, _ := redisx.Exists(ctx, s.Redis, flag); exists {
			continue // already flagged
		}
		_ = s.Redis.Set(ctx, flag, prod.Stock, redisx.TTLLowStock).Err()
		s.publishLow(prod, env.TraceID, p.OrderID)
		log.Info().Str("product_id", prod.ID).Str("name", prod.Name).Int("stock", prod.Stock).
			Msg("low stock")
	}
	return nil
}

func (s *Service) publishLow(p catalog.Product, trace, orderID string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID: p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
