package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"
	"github.com/milosamec/engravape/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("engravape")

// maxQty bounds a cart quantity to what the order_items.qty column holds.
const maxQty = math.MaxInt32

type OrderService struct {
	orders   OrderRepository
	products ProductRepository
	verifier PaymentVerifier
	events   EventPublisher
	policy   pricing.Policy
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewOrderService(
	orders OrderRepository,
	products ProductRepository,
	verifier PaymentVerifier,
	events EventPublisher,
	policy pricing.Policy,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		verifier: verifier,
		events:   events,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateOrder validates the cart, reprices it from the catalog and stores the
// resulting order snapshot in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	if len(req.OrderItems) == 0 {
		return nil, fmt.Errorf("%w: no order items", models.ErrValidation)
	}
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	// product ids in canonical form, one per cart line
	lineIDs := make([]string, len(req.OrderItems))
	ids := make([]string, 0, len(req.OrderItems))
	wanted := make(map[string]int, len(req.OrderItems))
	for i, line := range req.OrderItems {
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", models.ErrValidation, line.Product)
		}
		if line.Qty > maxQty {
			return nil, fmt.Errorf("%w: quantity too large for product %s", models.ErrValidation, line.Product)
		}
		parsed, err := uuid.Parse(line.Product)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s not found", models.ErrValidation, line.Product)
		}
		id := parsed.String()
		lineIDs[i] = id
		if _, seen := wanted[id]; !seen {
			ids = append(ids, id)
		}
		if wanted[id] > maxQty-line.Qty {
			return nil, fmt.Errorf("%w: quantity too large for product %s", models.ErrValidation, id)
		}
		wanted[id] += line.Qty
	}

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.persistenceError(ctx, span, "load products", err)
	}

	items := make([]models.OrderItem, 0, len(req.OrderItems))
	lines := make([]pricing.Line, 0, len(req.OrderItems))
	for i, line := range req.OrderItems {
		product, ok := catalog[lineIDs[i]]
		if !ok {
			return nil, fmt.Errorf("%w: product %s not found", models.ErrValidation, line.Product)
		}
		if wanted[lineIDs[i]] > product.CountInStock {
			return nil, fmt.Errorf("%w: only %d of %s in stock", models.ErrValidation, product.CountInStock, product.Name)
		}
		if line.Price != 0 && !pricing.Equal(line.Price, product.Price) {
			return nil, fmt.Errorf("%w: price mismatch for %s", models.ErrValidation, product.Name)
		}
		items = append(items, models.OrderItem{
			Product: product.ID,
			Name:    product.Name,
			Image:   product.Image,
			Price:   product.Price,
			Qty:     line.Qty,
		})
		lines = append(lines, pricing.Line{Price: product.Price, Qty: line.Qty})
	}

	totals := s.policy.Compute(lines)
	if mismatch(req.ItemsPrice, totals.ItemsPrice) || mismatch(req.ShippingPrice, totals.ShippingPrice) ||
		mismatch(req.TaxPrice, totals.TaxPrice) || mismatch(req.TotalPrice, totals.TotalPrice) {
		return nil, fmt.Errorf("%w: price mismatch", models.ErrValidation)
	}

	order := &models.Order{
		ID:              s.newID(),
		User:            models.OrderUser{ID: requester.UserID},
		OrderItems:      items,
		ShippingAddress: trimAddress(req.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TaxPrice:        totals.TaxPrice,
		TotalPrice:      totals.TotalPrice,
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Float64("order.total", order.TotalPrice))

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, s.persistenceError(ctx, span, "create order", err)
	}

	middleware.RecordOrderCreated()
	s.publish(ctx, order, models.EventOrderCreated)
	s.logger.Info("Order created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", order.ID),
		zap.String("user_id", requester.UserID),
		zap.Float64("total_price", order.TotalPrice),
	)
	return order, nil
}

// GetOrder returns one order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, id string, requester models.Requester) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	order, err := s.load(ctx, span, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.User.ID) {
		return nil, fmt.Errorf("%w: order belongs to another user", models.ErrForbidden)
	}
	return order, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, requester models.Requester) ([]models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ListAllOrders")
	defer span.End()

	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, s.persistenceError(ctx, span, "list orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, requester models.Requester) ([]models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ListMyOrders")
	defer span.End()

	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}

	orders, err := s.orders.FindByUser(ctx, requester.UserID)
	if err != nil {
		return nil, s.persistenceError(ctx, span, "list user orders", err)
	}
	return orders, nil
}

// ConfirmPayment verifies the gateway receipt and marks the order paid.
// Repeating the call with the same transaction id returns the paid order
// unchanged; a different transaction id on a paid order is rejected.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string, requester models.Requester, result models.PaymentResult) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	if requester.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	order, err := s.load(ctx, span, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.User.ID) {
		return nil, fmt.Errorf("%w: order belongs to another user", models.ErrForbidden)
	}

	result.ID = strings.TrimSpace(result.ID)
	result.Status = strings.TrimSpace(result.Status)
	if result.ID == "" || result.Status == "" {
		return nil, fmt.Errorf("%w: payment result requires id and status", models.ErrValidation)
	}
	span.SetAttributes(attribute.String("payment.id", result.ID))

	if order.IsPaid {
		return alreadyPaid(order, result)
	}

	if err := s.verify(ctx, span, order, result); err != nil {
		return nil, err
	}

	paidAt := s.now().UTC()
	applied, err := s.orders.MarkPaid(ctx, order.ID, result, paidAt)
	if errors.Is(err, models.ErrConflict) {
		s.logger.Warn("Payment receipt already used by another order",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_id", order.ID),
			zap.String("payment_id", result.ID),
		)
		return nil, err
	}
	if err != nil {
		return nil, s.persistenceError(ctx, span, "mark order paid", err)
	}
	if !applied {
		// another confirmation won the race
		current, err := s.load(ctx, span, id)
		if err != nil {
			return nil, err
		}
		if !current.IsPaid {
			return nil, s.persistenceError(ctx, span, "mark order paid", errors.New("update matched no row"))
		}
		return alreadyPaid(current, result)
	}

	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &result
	order.UpdatedAt = paidAt

	middleware.RecordOrderPaid()
	s.publish(ctx, order, models.EventOrderPaid)
	s.logger.Info("Order paid",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", order.ID),
		zap.String("payment_id", result.ID),
	)
	return order, nil
}

// ConfirmDelivery marks a paid order delivered. Admins only.
func (s *OrderService) ConfirmDelivery(ctx context.Context, id string, requester models.Requester) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ConfirmDelivery")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, span, id)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid {
		return nil, fmt.Errorf("%w: order has not been paid", models.ErrInvalidState)
	}
	if order.IsDelivered {
		return order, nil
	}

	deliveredAt := s.now().UTC()
	applied, err := s.orders.MarkDelivered(ctx, order.ID, deliveredAt)
	if err != nil {
		return nil, s.persistenceError(ctx, span, "mark order delivered", err)
	}
	if !applied {
		current, err := s.load(ctx, span, id)
		if err != nil {
			return nil, err
		}
		if current.IsDelivered {
			return current, nil
		}
		return nil, fmt.Errorf("%w: order has not been paid", models.ErrInvalidState)
	}

	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt
	order.UpdatedAt = deliveredAt

	middleware.RecordOrderDelivered()
	s.publish(ctx, order, models.EventOrderDelivered)
	s.logger.Info("Order delivered",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", order.ID),
	)
	return order, nil
}

func (s *OrderService) load(ctx context.Context, span trace.Span, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("order %w", models.ErrNotFound)
	}
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("order %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, s.persistenceError(ctx, span, "get order", err)
	}
	return order, nil
}

func (s *OrderService) verify(ctx context.Context, span trace.Span, order *models.Order, result models.PaymentResult) error {
	err := s.verifier.Verify(ctx, order, result)
	switch {
	case err == nil:
		middleware.RecordPaymentVerification("verified")
		return nil
	case errors.Is(err, models.ErrValidation):
		middleware.RecordPaymentVerification("rejected")
		s.logger.Warn("Payment rejected",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_id", order.ID),
			zap.String("payment_id", result.ID),
			zap.Error(err),
		)
		return err
	default:
		middleware.RecordPaymentVerification("unavailable")
		span.RecordError(err)
		s.logger.Error("Payment verification failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		if errors.Is(err, models.ErrGatewayUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
}

func (s *OrderService) publish(ctx context.Context, order *models.Order, eventType string) {
	event := models.OrderEvent{
		OrderID:    order.ID,
		UserID:     order.User.ID,
		TotalPrice: order.TotalPrice,
		EventType:  eventType,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("event_type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) persistenceError(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Error("Storage operation failed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("operation", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, op, err)
}

func alreadyPaid(order *models.Order, result models.PaymentResult) (*models.Order, error) {
	if order.PaymentResult != nil && order.PaymentResult.ID == result.ID {
		return order, nil
	}
	return nil, fmt.Errorf("%w: order is already paid", models.ErrInvalidState)
}

func validateCheckout(req models.CreateOrderRequest) error {
	addr := req.ShippingAddress
	var missing []string
	for field, value := range map[string]string{
		"address":    addr.Address,
		"city":       addr.City,
		"postalCode": addr.PostalCode,
		"country":    addr.Country,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: shipping address requires %s", models.ErrValidation, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return fmt.Errorf("%w: payment method is required", models.ErrValidation)
	}
	return nil
}

func trimAddress(a models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// mismatch reports whether a client-supplied amount disagrees with the
// server value. Zero means the client did not send one.
func mismatch(client decimal.Decimal, server float64) bool {
	return !client.IsZero() && !pricing.EqualAmount(client, server)
}
