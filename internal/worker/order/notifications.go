package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/messaging"
	"github.com/jazjo-app/jazjo/internal/worker"
)

var workerTracer = otel.Tracer("github.com/jazjo-app/jazjo/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// orderEvent is the common shape of events on the order topic; Type selects
// the variant.
type orderEvent struct {
	Type             string  `json:"type"`
	Code             string  `json:"code"`
	Status           string  `json:"status"`
	Total            float64 `json:"total"`
	GatewayPaymentID string  `json:"gatewayPaymentId"`
}

// NewOrderEventHandler sets up a worker handler that reacts to order events.
// Today it records notifications in the log; it is the seam for sending
// customer emails or SMS later.
func NewOrderEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event orderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch event.Type {
		case "order.placed":
			logger.Info("order placed notification",
				zap.String("code", event.Code),
				zap.String("status", event.Status),
				zap.Float64("total", event.Total),
			)
		case "order.payment_confirmed":
			logger.Info("payment confirmed notification",
				zap.String("code", event.Code),
				zap.String("gateway_payment", event.GatewayPaymentID),
				zap.Float64("total", event.Total),
			)
		default:
			logger.Warn("unknown order event type", zap.String("type", event.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
