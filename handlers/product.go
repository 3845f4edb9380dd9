package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductService interface {
	ListProducts(ctx context.Context, keyword string, page int) (*models.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateSampleProduct(ctx context.Context, requester models.Requester) (*models.Product, error)
	UpdateProduct(ctx context.Context, requester models.Requester, id string, req models.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, requester models.Requester, id string) error
}

type ProductHandler struct {
	products ProductService
	logger   *zap.Logger
}

func NewProductHandler(products ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// ListProducts treats a missing or malformed pageNumber as page 1.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "ListProducts")
	defer span.End()

	keyword := c.Query("keyword")
	page, err := strconv.Atoi(c.DefaultQuery("pageNumber", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	span.SetAttributes(
		attribute.String("product.keyword", keyword),
		attribute.Int("product.page", page),
	)

	result, err := h.products.ListProducts(ctx, keyword, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	product, err := h.products.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	requester, _ := middleware.RequesterFrom(c)
	product, err := h.products.CreateSampleProduct(ctx, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	requester, _ := middleware.RequesterFrom(c)
	product, err := h.products.UpdateProduct(ctx, requester, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	requester, _ := middleware.RequesterFrom(c)
	if err := h.products.DeleteProduct(ctx, requester, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}
