package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testProductID = "44444444-4444-4444-4444-444444444444"

func setupProductTest(t *testing.T, svc *fakeProductService) *gin.Engine {
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewProductHandler(svc, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withRequester(models.Requester{UserID: testAdminID, IsAdmin: true}))
	router.GET("/products", handler.ListProducts)
	router.GET("/products/:id", handler.GetProduct)
	router.POST("/products", handler.CreateProduct)
	router.PUT("/products/:id", handler.UpdateProduct)
	router.DELETE("/products/:id", handler.DeleteProduct)

	return router
}

func TestProductHandler_ListProducts_QueryParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		keyword string
		page    int
	}{
		{"defaults", "", "", 1},
		{"keyword and page", "?keyword=mod&pageNumber=3", "mod", 3},
		{"malformed page", "?pageNumber=abc", "", 1},
		{"negative page", "?pageNumber=-2", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKeyword string
			var gotPage int
			svc := &fakeProductService{
				listProducts: func(_ context.Context, keyword string, page int) (*models.ProductPage, error) {
					gotKeyword, gotPage = keyword, page
					return &models.ProductPage{Products: []models.Product{}, Page: page, Pages: 1}, nil
				},
			}
			router := setupProductTest(t, svc)

			req := httptest.NewRequest("GET", "/products"+tt.query, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
			}
			if gotKeyword != tt.keyword || gotPage != tt.page {
				t.Errorf("Expected keyword %q page %d, got %q page %d", tt.keyword, tt.page, gotKeyword, gotPage)
			}
		})
	}
}

func TestProductHandler_GetProduct_NotFound(t *testing.T) {
	svc := &fakeProductService{
		getProduct: func(context.Context, string) (*models.Product, error) {
			return nil, models.ErrNotFound
		},
	}
	router := setupProductTest(t, svc)

	req := httptest.NewRequest("GET", "/products/"+testProductID, nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestProductHandler_CreateProduct(t *testing.T) {
	svc := &fakeProductService{
		createSample: func(_ context.Context, requester models.Requester) (*models.Product, error) {
			return &models.Product{ID: testProductID, User: requester.UserID, Name: "Sample name"}, nil
		},
	}
	router := setupProductTest(t, svc)

	req := httptest.NewRequest("POST", "/products", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var response models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.User != testAdminID {
		t.Errorf("Expected owner %s, got %s", testAdminID, response.User)
	}
}

func TestProductHandler_UpdateProduct(t *testing.T) {
	var got models.ProductRequest
	svc := &fakeProductService{
		updateProduct: func(_ context.Context, _ models.Requester, id string, req models.ProductRequest) (*models.Product, error) {
			got = req
			return &models.Product{ID: id, Price: *req.Price}, nil
		},
	}
	router := setupProductTest(t, svc)

	req := httptest.NewRequest("PUT", "/products/"+testProductID, bytes.NewBufferString(`{"price": 49.99}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got.Price == nil || *got.Price != 49.99 || got.Name != nil {
		t.Errorf("Expected only price to be set, got %+v", got)
	}
}

func TestProductHandler_UpdateProduct_NegativeStock(t *testing.T) {
	svc := &fakeProductService{
		updateProduct: func(context.Context, models.Requester, string, models.ProductRequest) (*models.Product, error) {
			t.Fatal("service must not be called for invalid input")
			return nil, nil
		},
	}
	router := setupProductTest(t, svc)

	req := httptest.NewRequest("PUT", "/products/"+testProductID, bytes.NewBufferString(`{"countInStock": -1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestProductHandler_DeleteProduct(t *testing.T) {
	var gotID string
	svc := &fakeProductService{
		deleteProduct: func(_ context.Context, _ models.Requester, id string) error {
			gotID = id
			return nil
		},
	}
	router := setupProductTest(t, svc)

	req := httptest.NewRequest("DELETE", "/products/"+testProductID, nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if gotID != testProductID {
		t.Errorf("Expected id %s, got %s", testProductID, gotID)
	}
	if w.Body.String() != `{"message":"Product removed"}` {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}
