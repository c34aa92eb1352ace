package entity

// OrderStatus enumerates the lifecycle states of an order. The progression is
// linear; each state is reachable only from its immediate predecessor, except
// StatusCancelled which may be entered from any non-terminal state.
type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusOrderPlaced    OrderStatus = "order_placed"
	StatusPreparing      OrderStatus = "preparing"
	StatusInTransit      OrderStatus = "in_transit"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// statusChain lists the forward progression in order.
var statusChain = []OrderStatus{
	StatusPendingPayment,
	StatusOrderPlaced,
	StatusPreparing,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
}

// ParseOrderStatus maps a wire value onto a known status.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	s := OrderStatus(value)
	switch s {
	case StatusPendingPayment, StatusOrderPlaced, StatusPreparing,
		StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return s, true
	}
	return "", false
}

// Label returns the user-facing name for the status.
func (s OrderStatus) Label() string {
	switch s {
	case StatusPendingPayment:
		return "Pending Payment"
	case StatusOrderPlaced:
		return "Order Placed"
	case StatusPreparing:
		return "Preparing"
	case StatusInTransit:
		return "In Transit"
	case StatusOutForDelivery:
		return "Out for Delivery"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether target is a legal next state.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	for i, st := range statusChain {
		if st == s {
			return i+1 < len(statusChain) && statusChain[i+1] == target
		}
	}
	return false
}

// PaymentStatus tracks the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Role classifies a profile's access level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a stored role value onto a known Role, defaulting to customer.
func ParseRole(value string) Role {
	switch Role(value) {
	case RoleStaff:
		return RoleStaff
	case RoleAdmin:
		return RoleAdmin
	}
	return RoleCustomer
}

// PaymentMethodRequiresConfirmation reports whether the payment method settles
// asynchronously via a gateway webhook rather than at checkout time.
func PaymentMethodRequiresConfirmation(method string) bool {
	switch method {
	case "qrph", "gcash", "maya", "qr":
		return true
	}
	return false
}
