package webhook

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/payment"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	"github.com/jazjo-app/jazjo/internal/service/lifecycle"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

// SignatureHeader carries the gateway's HMAC signature on webhook deliveries.
const SignatureHeader = "Paymongo-Signature"

// maxBodyBytes caps webhook payloads well above any real gateway event size.
const maxBodyBytes = 1 << 20

// Handler receives payment gateway webhooks and reconciles them against
// pending orders.
type Handler struct {
	gateway   payment.Client
	lifecycle *lifecycle.Service
	logger    *zap.Logger
}

// NewHandler constructs a webhook Handler.
func NewHandler(gateway payment.Client, lifecycleSvc *lifecycle.Service, logger *zap.Logger) *Handler {
	return &Handler{gateway: gateway, lifecycle: lifecycleSvc, logger: logger}
}

// Register routes with the provided Echo instance. The webhook is not behind
// auth middleware; the signature check is the authentication.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/payments/webhook", h.receive)
}

func (h *Handler) receive(c echo.Context) error {
	b := response.New(c)

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return b.WithError(errorbank.BadRequest("unreadable payload", errorbank.WithCause(err))).Build()
	}

	if !h.gateway.VerifySignature(raw, c.Request().Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature rejected", zap.String("provider", h.gateway.Provider()))
		return b.WithError(errorbank.Unauthorized("invalid webhook signature")).Build()
	}

	event, err := payment.ParseWebhookEvent(raw)
	if err != nil {
		return b.WithError(errorbank.BadRequest("malformed webhook event", errorbank.WithCause(err))).Build()
	}

	// Events other than payment confirmations are acknowledged and dropped so
	// the gateway does not retry them.
	if !event.Paid() {
		h.logger.Info("webhook event ignored", zap.String("event_type", event.Type), zap.String("event_id", event.EventID))
		return b.WithStatus(http.StatusOK).WithData(map[string]any{"received": true}).Build()
	}

	duplicate, err := h.lifecycle.ConfirmPayment(c.Request().Context(), event)
	if err != nil {
		h.logger.Error("webhook reconciliation failed",
			zap.String("event_id", event.EventID),
			zap.String("order_code", event.OrderCode),
			zap.Error(err))
		return b.WithError(err).Build()
	}
	if duplicate {
		h.logger.Info("webhook event already processed", zap.String("event_id", event.EventID))
	}

	return b.WithStatus(http.StatusOK).WithData(map[string]any{"received": true}).Build()
}
