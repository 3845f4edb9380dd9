package handlers

import (
	"context"
	"net/http"

	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id string, requester models.Requester) (*models.Order, error)
	ListAllOrders(ctx context.Context, requester models.Requester) ([]models.Order, error)
	ListMyOrders(ctx context.Context, requester models.Requester) ([]models.Order, error)
	ConfirmPayment(ctx context.Context, id string, requester models.Requester, result models.PaymentResult) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, id string, requester models.Requester) (*models.Order, error)
}

type OrderHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("order.items", len(req.OrderItems)))

	requester, _ := middleware.RequesterFrom(c)
	order, err := h.orders.CreateOrder(ctx, requester, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	requester, _ := middleware.RequesterFrom(c)
	order, err := h.orders.GetOrder(ctx, id, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	requester, _ := middleware.RequesterFrom(c)
	orders, err := h.orders.ListAllOrders(ctx, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "ListMyOrders")
	defer span.End()

	requester, _ := middleware.RequesterFrom(c)
	orders, err := h.orders.ListMyOrders(ctx, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) PayOrder(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "PayOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	var result models.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		bindError(c, err)
		return
	}

	requester, _ := middleware.RequesterFrom(c)
	order, err := h.orders.ConfirmPayment(ctx, id, requester, result)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "DeliverOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	requester, _ := middleware.RequesterFrom(c)
	order, err := h.orders.ConfirmDelivery(ctx, id, requester)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	h.logger.Info("Order marked as delivered",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", order.ID),
	)
	c.JSON(http.StatusOK, order)
}
