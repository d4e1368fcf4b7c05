package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// Publisher - то, что адаптеру нужно от rabbitmq_producer.Publisher
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// EventReporterAdapter публикует итоги импорта и слияния в обменник событий
type EventReporterAdapter struct {
	producer         Publisher
	importRoutingKey string
	mergeRoutingKey  string
}

func NewEventReporterAdapter(producer Publisher, importRoutingKey, mergeRoutingKey string) (*EventReporterAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if importRoutingKey == "" || mergeRoutingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routing keys cannot be empty")
	}
	return &EventReporterAdapter{
		producer:         producer,
		importRoutingKey: importRoutingKey,
		mergeRoutingKey:  mergeRoutingKey,
	}, nil
}

func (a *EventReporterAdapter) ReportImport(ctx context.Context, summary domain.ImportSummary) error {
	return a.publish(ctx, a.importRoutingKey, summary, port.Fields{
		"import_id": summary.ImportID.String(),
		"kind":      summary.Kind,
	})
}

func (a *EventReporterAdapter) ReportMerge(ctx context.Context, summary domain.MergeSummary) error {
	return a.publish(ctx, a.mergeRoutingKey, summary, port.Fields{
		"primary_id":   summary.PrimaryID.String(),
		"merged_count": len(summary.MergedIDs),
	})
}

func (a *EventReporterAdapter) publish(ctx context.Context, routingKey string, event any, fields port.Fields) error {
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "EventReporterAdapter",
		"routing_key": routingKey,
	}).WithFields(fields)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	// событие отправляется и тогда, когда HTTP-запрос уже завершился
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish to %s: %w", routingKey, err)
	}

	adapterLogger.Debug("Event published", nil)
	return nil
}

// NoopReporter используется, когда RabbitMQ выключен
type NoopReporter struct{}

func (NoopReporter) ReportImport(context.Context, domain.ImportSummary) error { return nil }
func (NoopReporter) ReportMerge(context.Context, domain.MergeSummary) error   { return nil }
