package handlers

import (
	"context"

	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
)

type fakeOrderService struct {
	createOrder     func(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.Order, error)
	getOrder        func(ctx context.Context, id string, requester models.Requester) (*models.Order, error)
	listAllOrders   func(ctx context.Context, requester models.Requester) ([]models.Order, error)
	listMyOrders    func(ctx context.Context, requester models.Requester) ([]models.Order, error)
	confirmPayment  func(ctx context.Context, id string, requester models.Requester, result models.PaymentResult) (*models.Order, error)
	confirmDelivery func(ctx context.Context, id string, requester models.Requester) (*models.Order, error)
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.Order, error) {
	return f.createOrder(ctx, requester, req)
}

func (f *fakeOrderService) GetOrder(ctx context.Context, id string, requester models.Requester) (*models.Order, error) {
	return f.getOrder(ctx, id, requester)
}

func (f *fakeOrderService) ListAllOrders(ctx context.Context, requester models.Requester) ([]models.Order, error) {
	return f.listAllOrders(ctx, requester)
}

func (f *fakeOrderService) ListMyOrders(ctx context.Context, requester models.Requester) ([]models.Order, error) {
	return f.listMyOrders(ctx, requester)
}

func (f *fakeOrderService) ConfirmPayment(ctx context.Context, id string, requester models.Requester, result models.PaymentResult) (*models.Order, error) {
	return f.confirmPayment(ctx, id, requester, result)
}

func (f *fakeOrderService) ConfirmDelivery(ctx context.Context, id string, requester models.Requester) (*models.Order, error) {
	return f.confirmDelivery(ctx, id, requester)
}

type fakeUserService struct {
	register      func(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	login         func(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	getProfile    func(ctx context.Context, requester models.Requester) (*models.User, error)
	updateProfile func(ctx context.Context, requester models.Requester, req models.UpdateProfileRequest) (*models.AuthResponse, error)
	listUsers     func(ctx context.Context, requester models.Requester) ([]models.User, error)
	getUser       func(ctx context.Context, requester models.Requester, id string) (*models.User, error)
	updateUser    func(ctx context.Context, requester models.Requester, id string, req models.UpdateUserRequest) (*models.User, error)
	deleteUser    func(ctx context.Context, requester models.Requester, id string) error
}

func (f *fakeUserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return f.register(ctx, req)
}

func (f *fakeUserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return f.login(ctx, req)
}

func (f *fakeUserService) GetProfile(ctx context.Context, requester models.Requester) (*models.User, error) {
	return f.getProfile(ctx, requester)
}

func (f *fakeUserService) UpdateProfile(ctx context.Context, requester models.Requester, req models.UpdateProfileRequest) (*models.AuthResponse, error) {
	return f.updateProfile(ctx, requester, req)
}

func (f *fakeUserService) ListUsers(ctx context.Context, requester models.Requester) ([]models.User, error) {
	return f.listUsers(ctx, requester)
}

func (f *fakeUserService) GetUser(ctx context.Context, requester models.Requester, id string) (*models.User, error) {
	return f.getUser(ctx, requester, id)
}

func (f *fakeUserService) UpdateUser(ctx context.Context, requester models.Requester, id string, req models.UpdateUserRequest) (*models.User, error) {
	return f.updateUser(ctx, requester, id, req)
}

func (f *fakeUserService) DeleteUser(ctx context.Context, requester models.Requester, id string) error {
	return f.deleteUser(ctx, requester, id)
}

type fakeProductService struct {
	listProducts  func(ctx context.Context, keyword string, page int) (*models.ProductPage, error)
	getProduct    func(ctx context.Context, id string) (*models.Product, error)
	createSample  func(ctx context.Context, requester models.Requester) (*models.Product, error)
	updateProduct func(ctx context.Context, requester models.Requester, id string, req models.ProductRequest) (*models.Product, error)
	deleteProduct func(ctx context.Context, requester models.Requester, id string) error
}

func (f *fakeProductService) ListProducts(ctx context.Context, keyword string, page int) (*models.ProductPage, error) {
	return f.listProducts(ctx, keyword, page)
}

func (f *fakeProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return f.getProduct(ctx, id)
}

func (f *fakeProductService) CreateSampleProduct(ctx context.Context, requester models.Requester) (*models.Product, error) {
	return f.createSample(ctx, requester)
}

func (f *fakeProductService) UpdateProduct(ctx context.Context, requester models.Requester, id string, req models.ProductRequest) (*models.Product, error) {
	return f.updateProduct(ctx, requester, id, req)
}

func (f *fakeProductService) DeleteProduct(ctx context.Context, requester models.Requester, id string) error {
	return f.deleteProduct(ctx, requester, id)
}

// withRequester stands in for middleware.Auth in handler tests.
func withRequester(requester models.Requester) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetRequester(c, requester)
		c.Next()
	}
}
