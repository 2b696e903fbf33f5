package publisher

import (
	"context"
	"testing"
	"time"

	"relay/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"
)

// Publish must return as soon as the broker acks, not sit out its timeout.
func TestPublishReturnsOnDeliveryReport(t *testing.T) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"test.mock.num.brokers": 1,
	})
	require.NoError(t, err)

	pub := &AuditPublisher{producer: producer, topic: "audit"}
	defer pub.Close()

	start := time.Now()
	err = pub.Publish(context.Background(), domain.AuditEvent{
		Service:    "relay",
		EventType:  "order_received",
		ClientSlug: "turtle-island",
		Payload:    map[string]interface{}{"order_number": "TI-ABC12345"},
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Less(t, elapsed, 5*time.Second, "publish waited out the timeout instead of the delivery report")
}

func TestPublishHonorsContextCancel(t *testing.T) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		// Point at nothing so no report ever arrives.
		"bootstrap.servers":  "127.0.0.1:1",
		"message.timeout.ms": 30000,
	})
	require.NoError(t, err)

	pub := &AuditPublisher{producer: producer, topic: "audit"}
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = pub.Publish(ctx, domain.AuditEvent{
		Service:    "relay",
		EventType:  "order_received",
		ClientSlug: "turtle-island",
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
