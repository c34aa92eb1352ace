package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jazjo-app/jazjo/internal/dto"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	authsvc "github.com/jazjo-app/jazjo/internal/service/auth"
	"github.com/jazjo-app/jazjo/internal/service/checkout"
	"github.com/jazjo-app/jazjo/internal/service/lifecycle"
	"github.com/jazjo-app/jazjo/internal/transport/http/middleware"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/jazjo-app/jazjo/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	checkout  *checkout.Service
	lifecycle *lifecycle.Service
}

// NewHandler constructs an order Handler.
func NewHandler(checkoutSvc *checkout.Service, lifecycleSvc *lifecycle.Service) *Handler {
	return &Handler{checkout: checkoutSvc, lifecycle: lifecycleSvc}
}

// Register routes with the provided Echo instance. Every route requires an
// authenticated identity; status changes are restricted to staff and admins.
func Register(e *echo.Echo, h *Handler, gate *authsvc.Service) {
	g := e.Group("/orders", middleware.RequireRoles(gate, entity.RoleCustomer, entity.RoleStaff, entity.RoleAdmin))
	g.GET("", h.list)
	g.GET("/:code", h.getByCode)
	g.GET("/:code/events", h.events)
	g.POST("", h.create)

	staff := e.Group("/orders", middleware.RequireRoles(gate, entity.RoleStaff, entity.RoleAdmin))
	staff.PATCH("/:code/status", h.advanceStatus)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	requester := middleware.CurrentProfile(c)

	orders, err := h.lifecycle.ListForRequester(c.Request().Context(), requester)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toDTO(order))
	}
	return b.WithData(map[string]any{"orders": out}).Build()
}

func (h *Handler) getByCode(c echo.Context) error {
	b := response.New(c)
	requester := middleware.CurrentProfile(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByCode", trace.WithAttributes(
		attribute.String("order.code", c.Param("code")),
	))
	defer span.End()

	order, err := h.lifecycle.Get(ctx, c.Param("code"), requester)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]any{"order": toDTO(order)}).Build()
}

func (h *Handler) events(c echo.Context) error {
	b := response.New(c)
	requester := middleware.CurrentProfile(c)

	events, err := h.lifecycle.Events(c.Request().Context(), c.Param("code"), requester)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, dto.OrderEventResponse{
			Status:      string(event.Status),
			StatusLabel: event.Status.Label(),
			Note:        event.Note,
			CreatedAt:   event.CreatedAt,
		})
	}
	return b.WithData(map[string]any{"events": out}).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	requester := middleware.CurrentProfile(c)

	var payload checkout.Input
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	result, err := h.checkout.Create(ctx, requester, payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	data := map[string]any{"order": toDTO(result.Order)}
	if result.CheckoutURL != "" {
		data["checkoutUrl"] = result.CheckoutURL
	}
	return b.WithStatus(http.StatusCreated).WithData(data).Build()
}

func (h *Handler) advanceStatus(c echo.Context) error {
	b := response.New(c)
	actor := middleware.CurrentProfile(c)

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Status == "" {
		return b.WithError(errorbank.BadRequest("status is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.advanceStatus", trace.WithAttributes(
		attribute.String("order.code", c.Param("code")),
		attribute.String("order.requested_status", payload.Status),
	))
	defer span.End()

	order, err := h.lifecycle.AdvanceStatus(ctx, c.Param("code"), payload.Status, actor)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]any{"ok": true, "order": toDTO(order)}).Build()
}

func toDTO(order *entity.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			SKU:       item.SKU,
			Name:      item.Name,
			Category:  item.Category,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return dto.OrderResponse{
		Code:          order.Code,
		CustomerName:  order.CustomerName,
		Contact:       order.Contact,
		Address:       order.Address,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		Total:         order.Total,
		Status:        string(order.Status),
		StatusLabel:   order.Status.Label(),
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
		Items:         items,
	}
}
