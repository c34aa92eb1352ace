package panel

import (
	"context"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/jazjo-app/jazjo/internal/dto"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	orderrepo "github.com/jazjo-app/jazjo/internal/repository/order"
	productrepo "github.com/jazjo-app/jazjo/internal/repository/product"
	profilerepo "github.com/jazjo-app/jazjo/internal/repository/profile"
	authsvc "github.com/jazjo-app/jazjo/internal/service/auth"
	"github.com/jazjo-app/jazjo/internal/service/rewards"
	"github.com/jazjo-app/jazjo/internal/transport/http/middleware"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

// Handler serves the staff and admin operations panel. All views are reads;
// mutations go through the order endpoints.
type Handler struct {
	orders   *orderrepo.Repository
	products *productrepo.Repository
	profiles *profilerepo.Repository
	rewards  *rewards.Service
}

// NewHandler constructs a panel Handler.
func NewHandler(
	orders *orderrepo.Repository,
	products *productrepo.Repository,
	profiles *profilerepo.Repository,
	rewardsSvc *rewards.Service,
) *Handler {
	return &Handler{orders: orders, products: products, profiles: profiles, rewards: rewardsSvc}
}

// Register routes with the provided Echo instance. Admin views require the
// admin role; staff views accept staff or admin.
func Register(e *echo.Echo, h *Handler, gate *authsvc.Service) {
	admin := e.Group("/panel/admin", middleware.RequireRoles(gate, entity.RoleAdmin))
	admin.GET("/dashboard", h.dashboard)
	admin.GET("/orders", h.orderList)
	admin.GET("/inventory", h.inventory)
	admin.GET("/customers", h.customers)
	admin.GET("/reports", h.reports)
	admin.GET("/rewards", h.rewardsSummary)
	admin.GET("/sales", h.sales)
	admin.GET("/delivery", h.delivery)

	staff := e.Group("/panel/staff", middleware.RequireRoles(gate, entity.RoleStaff, entity.RoleAdmin))
	staff.GET("/orders", h.orderList)
	staff.GET("/inventory", h.inventory)
	staff.GET("/delivery", h.delivery)
}

func (h *Handler) dashboard(c echo.Context) error {
	b := response.New(c)
	ctx := c.Request().Context()

	orders, err := h.loadOrders(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	products, err := h.products.List(ctx)
	if err != nil {
		return b.WithError(errorbank.Upstream("failed to load products", errorbank.WithCause(err))).Build()
	}
	customers, err := h.profiles.ListByRole(ctx, entity.RoleCustomer)
	if err != nil {
		return b.WithError(errorbank.Upstream("failed to load customers", errorbank.WithCause(err))).Build()
	}

	var pendingPayment, open, delivered, cancelled int
	var revenue float64
	for _, order := range orders {
		switch {
		case order.Status == entity.StatusPendingPayment:
			pendingPayment++
		case order.Status == entity.StatusDelivered:
			delivered++
		case order.Status == entity.StatusCancelled:
			cancelled++
		default:
			open++
		}
		if rewards.Counted(order) {
			revenue += order.Total
		}
	}

	var lowStock, outOfStock int
	for _, product := range products {
		if !product.Active {
			continue
		}
		switch entity.StockLabel(product.StockCases) {
		case entity.StockLabelOut:
			outOfStock++
		case entity.StockLabelLow:
			lowStock++
		}
	}

	return b.WithData(map[string]any{
		"orders": map[string]any{
			"total":          len(orders),
			"pendingPayment": pendingPayment,
			"open":           open,
			"delivered":      delivered,
			"cancelled":      cancelled,
		},
		"revenue": revenue,
		"inventory": map[string]any{
			"products":   len(products),
			"lowStock":   lowStock,
			"outOfStock": outOfStock,
		},
		"customers": len(customers),
	}).Build()
}

func (h *Handler) orderList(c echo.Context) error {
	b := response.New(c)

	orders, err := h.loadOrders(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderDTO(order))
	}
	return b.WithData(map[string]any{"orders": out}).Build()
}

func (h *Handler) inventory(c echo.Context) error {
	b := response.New(c)

	products, err := h.products.List(c.Request().Context())
	if err != nil {
		return b.WithError(errorbank.Upstream("failed to load products", errorbank.WithCause(err))).Build()
	}

	out := make([]dto.InventoryItemResponse, 0, len(products))
	for _, product := range products {
		out = append(out, dto.InventoryItemResponse{
			SKU:        product.SKU,
			Name:       product.Name,
			Category:   product.Category,
			Unit:       product.Unit,
			Price:      product.Price,
			StockCases: product.StockCases,
			StockLabel: entity.StockLabel(product.StockCases),
			Active:     product.Active,
		})
	}
	return b.WithData(map[string]any{"inventory": out}).Build()
}

func (h *Handler) customers(c echo.Context) error {
	b := response.New(c)

	profiles, err := h.profiles.ListByRole(c.Request().Context(), entity.RoleCustomer)
	if err != nil {
		return b.WithError(errorbank.Upstream("failed to load customers", errorbank.WithCause(err))).Build()
	}

	out := make([]dto.ProfileResponse, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, dto.ProfileResponse{
			ID:          profile.ID,
			Email:       profile.Email,
			Role:        string(profile.Role),
			DisplayName: profile.DisplayName,
			Contact:     profile.Contact,
			Address:     profile.Address,
		})
	}
	return b.WithData(map[string]any{"customers": out}).Build()
}

func (h *Handler) reports(c echo.Context) error {
	b := response.New(c)

	orders, err := h.loadOrders(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	byStatus := make(map[string]int)
	var revenue, pendingValue float64
	for _, order := range orders {
		byStatus[string(order.Status)]++
		if rewards.Counted(order) {
			revenue += order.Total
		} else if order.Status == entity.StatusPendingPayment {
			pendingValue += order.Total
		}
	}

	return b.WithData(map[string]any{
		"byStatus":     byStatus,
		"revenue":      revenue,
		"pendingValue": pendingValue,
		"totalOrders":  len(orders),
	}).Build()
}

func (h *Handler) rewardsSummary(c echo.Context) error {
	b := response.New(c)

	balances, err := h.rewards.Summary(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]any{"rewards": balances}).Build()
}

func (h *Handler) sales(c echo.Context) error {
	b := response.New(c)

	orders, err := h.loadOrders(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	type dailySales struct {
		Date    string  `json:"date"`
		Orders  int     `json:"orders"`
		Revenue float64 `json:"revenue"`
	}

	byDay := make(map[string]*dailySales)
	var total float64
	var counted int
	for _, order := range orders {
		if !rewards.Counted(order) {
			continue
		}
		day := order.CreatedAt.UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &dailySales{Date: day}
			byDay[day] = row
		}
		row.Orders++
		row.Revenue += order.Total
		total += order.Total
		counted++
	}

	days := make([]*dailySales, 0, len(byDay))
	for _, row := range byDay {
		days = append(days, row)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })

	return b.WithData(map[string]any{
		"daily":   days,
		"revenue": total,
		"orders":  counted,
	}).Build()
}

func (h *Handler) delivery(c echo.Context) error {
	b := response.New(c)

	orders, err := h.orders.ListByStatus(c.Request().Context(), entity.StatusInTransit, entity.StatusOutForDelivery)
	if err != nil {
		return b.WithError(errorbank.Upstream("failed to load orders", errorbank.WithCause(err))).Build()
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderDTO(order))
	}
	return b.WithData(map[string]any{"deliveries": out}).Build()
}

func (h *Handler) loadOrders(ctx context.Context) ([]*entity.Order, error) {
	orders, err := h.orders.List(ctx)
	if err != nil {
		return nil, errorbank.Upstream("failed to load orders", errorbank.WithCause(err))
	}
	return orders, nil
}

func toOrderDTO(order *entity.Order) dto.OrderResponse {
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
