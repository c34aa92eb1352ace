package catalog

import (
	"github.com/labstack/echo/v4"

	"github.com/jazjo-app/jazjo/internal/dto"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	service "github.com/jazjo-app/jazjo/internal/service/catalog"
)

// Handler exposes the public product catalog over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a catalog Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/products", h.list)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	products, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.ProductResponse, 0, len(products))
	for _, product := range products {
		out = append(out, toDTO(product))
	}
	return b.WithData(map[string]any{"products": out}).Build()
}

func toDTO(product *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		SKU:        product.SKU,
		Name:       product.Name,
		Category:   product.Category,
		Unit:       product.Unit,
		Price:      product.Price,
		StockCases: product.StockCases,
		StockLabel: entity.StockLabel(product.StockCases),
		ImageURL:   product.ImageURL,
	}
}
