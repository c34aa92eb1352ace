package rewards

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/jazjo-app/jazjo/internal/entity"
	orderrepo "github.com/jazjo-app/jazjo/internal/repository/order"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jazjo-app/jazjo/service/rewards")

// Points earned per PointsStep currency units spent.
const (
	PointsPerStep = 10
	PointsStep    = 100.0
)

// OrderLister is the order repository surface rewards needs.
type OrderLister interface {
	List(ctx context.Context) ([]*entity.Order, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*entity.Order, error)
}

// Balance is a customer's derived rewards standing.
type Balance struct {
	ProfileID int64   `json:"profileId"`
	Spend     float64 `json:"spend"`
	Points    int64   `json:"points"`
}

// Service projects rewards points from historical order totals. Points are a
// read-only derivation, not a stored ledger: redemption has no write path.
type Service struct {
	orders OrderLister
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders *orderrepo.Repository
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{orders: p.Orders}
}

// PointsForSpend derives points from a spend total: PointsPerStep for every
// full PointsStep units.
func PointsForSpend(spend float64) int64 {
	if spend <= 0 {
		return 0
	}
	return int64(math.Floor(spend/PointsStep)) * PointsPerStep
}

// Counted reports whether an order contributes to rewards spend: cancelled
// orders and orders still awaiting payment do not.
func Counted(order *entity.Order) bool {
	if order == nil {
		return false
	}
	return order.Status != entity.StatusCancelled && order.Status != entity.StatusPendingPayment
}

// BalanceFor computes one customer's rewards standing.
func (s *Service) BalanceFor(ctx context.Context, profileID int64) (*Balance, error) {
	ctx, span := serviceTracer.Start(ctx, "RewardsService.BalanceFor", trace.WithAttributes(attribute.Int64("profile.id", profileID)))
	defer span.End()

	orders, err := s.orders.ListByProfile(ctx, profileID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load orders", errorbank.WithCause(err))
	}

	var spend float64
	for _, order := range orders {
		if Counted(order) {
			spend += order.Total
		}
	}
	return &Balance{ProfileID: profileID, Spend: spend, Points: PointsForSpend(spend)}, nil
}

// Summary computes rewards standings across all customers with orders.
func (s *Service) Summary(ctx context.Context) ([]*Balance, error) {
	ctx, span := serviceTracer.Start(ctx, "RewardsService.Summary")
	defer span.End()

	orders, err := s.orders.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load orders", errorbank.WithCause(err))
	}

	spendByProfile := make(map[int64]float64)
	ordered := make([]int64, 0)
	for _, order := range orders {
		if !Counted(order) {
			continue
		}
		if _, seen := spendByProfile[order.ProfileID]; !seen {
			ordered = append(ordered, order.ProfileID)
		}
		spendByProfile[order.ProfileID] += order.Total
	}

	balances := make([]*Balance, 0, len(ordered))
	for _, profileID := range ordered {
		spend := spendByProfile[profileID]
		balances = append(balances, &Balance{
			ProfileID: profileID,
			Spend:     spend,
			Points:    PointsForSpend(spend),
		})
	}
	return balances, nil
}
