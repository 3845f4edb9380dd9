package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/milosamec/engravape/circuitbreaker"
	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductService struct {
	products ProductRepository
	cache    ProductCache
	breaker  *circuitbreaker.CircuitBreaker
	pageSize int
	logger   *zap.Logger
	newID    func() string
}

// NewProductService wires the catalog. cache may be nil when Redis is disabled.
func NewProductService(products ProductRepository, cache ProductCache, breaker *circuitbreaker.CircuitBreaker, pageSize int, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		breaker:  breaker,
		pageSize: pageSize,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// ListProducts returns one page of products matching keyword. Pages start at 1.
func (s *ProductService) ListProducts(ctx context.Context, keyword string, page int) (*models.ProductPage, error) {
	ctx, span := tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	if page < 1 {
		page = 1
	}
	products, total, err := s.products.Search(ctx, strings.TrimSpace(keyword), s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, s.persistenceError(ctx, "search products", err)
	}

	pages := (total + s.pageSize - 1) / s.pageSize
	return &models.ProductPage{Products: products, Page: page, Pages: pages}, nil
}

// GetProduct serves from the cache first and falls back to the database
// behind the circuit breaker.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("product %w", models.ErrNotFound)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var product *models.Product
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.FindByID(ctx, id)
		return err
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("product %w", models.ErrNotFound)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		span.SetAttributes(attribute.String("circuit.state", "open"))
		return nil, fmt.Errorf("%w: product store unavailable", models.ErrPersistence)
	case err != nil:
		return nil, s.persistenceError(ctx, "get product", err)
	}

	s.cacheSet(ctx, product)
	return product, nil
}

// CreateSampleProduct inserts a placeholder product owned by the admin, to be
// edited afterwards.
func (s *ProductService) CreateSampleProduct(ctx context.Context, requester models.Requester) (*models.Product, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:           s.newID(),
		User:         requester.UserID,
		Name:         "Sample name",
		Image:        "/images/sample.jpg",
		Brand:        "Sample brand",
		Category:     "Sample category",
		Description:  "Sample description",
		Price:        0,
		CountInStock: 0,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, s.persistenceError(ctx, "create product", err)
	}

	s.logger.Info("Product created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("product_id", product.ID),
	)
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, requester models.Requester, id string, req models.ProductRequest) (*models.Product, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("product %w", models.ErrNotFound)
	}

	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("product %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, s.persistenceError(ctx, "get product", err)
	}

	applyProductRequest(product, req)
	if product.Price < 0 || product.CountInStock < 0 {
		return nil, fmt.Errorf("%w: price and stock must be non-negative", models.ErrValidation)
	}
	if strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", models.ErrValidation)
	}

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("product %w", models.ErrNotFound)
		}
		return nil, s.persistenceError(ctx, "update product", err)
	}

	s.cacheDelete(ctx, id)
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, requester models.Requester, id string) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("product %w", models.ErrNotFound)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("product %w", models.ErrNotFound)
		}
		return s.persistenceError(ctx, "delete product", err)
	}

	s.cacheDelete(ctx, id)
	s.logger.Info("Product deleted",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("product_id", id),
	)
	return nil
}

func (s *ProductService) cacheSet(ctx context.Context, product *models.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.String("product_id", product.ID), zap.Error(err))
	}
}

func (s *ProductService) cacheDelete(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("product_id", id), zap.Error(err))
	}
}

func (s *ProductService) persistenceError(ctx context.Context, op string, err error) error {
	s.logger.Error("Storage operation failed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("operation", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, op, err)
}

func applyProductRequest(p *models.Product, req models.ProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Image != nil {
		p.Image = *req.Image
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.CountInStock != nil {
		p.CountInStock = *req.CountInStock
	}
}
