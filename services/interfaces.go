package services

import (
	"context"
	"time"

	"github.com/milosamec/engravape/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	MarkPaid(ctx context.Context, id string, result models.PaymentResult, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	Search(ctx context.Context, keyword string, limit, offset int) ([]models.Product, int, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// PaymentVerifier confirms a client-reported receipt with the payment gateway.
type PaymentVerifier interface {
	Verify(ctx context.Context, order *models.Order, result models.PaymentResult) error
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	Generate(userID string) (string, error)
}
