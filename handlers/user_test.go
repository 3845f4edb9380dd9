package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func setupUserTest(t *testing.T, svc *fakeUserService, requester models.Requester) *gin.Engine {
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewUserHandler(svc, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/users", handler.Register)
	router.POST("/users/login", handler.Login)

	authed := router.Group("/", withRequester(requester))
	authed.GET("/users/profile", handler.GetProfile)
	authed.PUT("/users/profile", handler.UpdateProfile)
	authed.GET("/users", handler.ListUsers)
	authed.GET("/users/:id", handler.GetUser)
	authed.PUT("/users/:id", handler.UpdateUser)
	authed.DELETE("/users/:id", handler.DeleteUser)

	return router
}

func TestUserHandler_Register_Success(t *testing.T) {
	svc := &fakeUserService{
		register: func(_ context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
			return &models.AuthResponse{ID: testUserID, Name: req.Name, Email: req.Email, Token: "signed"}, nil
		},
	}
	router := setupUserTest(t, svc, models.Requester{})

	body, _ := json.Marshal(models.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	req := httptest.NewRequest("POST", "/users", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var response models.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Token != "signed" {
		t.Errorf("Expected token in response, got %+v", response)
	}
}

func TestUserHandler_Register_InvalidInput(t *testing.T) {
	svc := &fakeUserService{
		register: func(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
			t.Fatal("service must not be called for invalid input")
			return nil, nil
		},
	}
	router := setupUserTest(t, svc, models.Requester{})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email": "jane@example.com", "password": "secret123"}`},
		{"bad email", `{"name": "Jane", "email": "jane", "password": "secret123"}`},
		{"short password", `{"name": "Jane", "email": "jane@example.com", "password": "123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestUserHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &fakeUserService{
		register: func(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		},
	}
	router := setupUserTest(t, svc, models.Requester{})

	body := `{"name": "Jane", "email": "jane@example.com", "password": "secret123"}`
	req := httptest.NewRequest("POST", "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestUserHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &fakeUserService{
		login: func(context.Context, models.LoginRequest) (*models.AuthResponse, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	router := setupUserTest(t, svc, models.Requester{})

	body := `{"email": "jane@example.com", "password": "wrong"}`
	req := httptest.NewRequest("POST", "/users/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["message"] != "invalid email or password" {
		t.Errorf("Unexpected message %q", response["message"])
	}
}

func TestUserHandler_GetProfile(t *testing.T) {
	svc := &fakeUserService{
		getProfile: func(_ context.Context, requester models.Requester) (*models.User, error) {
			return &models.User{ID: requester.UserID, Name: "Jane", PasswordHash: "hash"}, nil
		},
	}
	router := setupUserTest(t, svc, models.Requester{UserID: testUserID})

	req := httptest.NewRequest("GET", "/users/profile", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("hash")) {
		t.Errorf("Password hash leaked in response: %s", w.Body.String())
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	var got models.UpdateProfileRequest
	svc := &fakeUserService{
		updateProfile: func(_ context.Context, requester models.Requester, req models.UpdateProfileRequest) (*models.AuthResponse, error) {
			got = req
			return &models.AuthResponse{ID: requester.UserID, Name: req.Name, Token: "fresh"}, nil
		},
	}
	router := setupUserTest(t, svc, models.Requester{UserID: testUserID})

	req := httptest.NewRequest("PUT", "/users/profile", bytes.NewBufferString(`{"name": "Janet", "password": "newsecret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got.Name != "Janet" || got.Password != "newsecret" {
		t.Errorf("Request was not bound correctly: %+v", got)
	}
}

func TestUserHandler_UpdateUser_PromotesAdmin(t *testing.T) {
	var got models.UpdateUserRequest
	svc := &fakeUserService{
		updateUser: func(_ context.Context, _ models.Requester, id string, req models.UpdateUserRequest) (*models.User, error) {
			got = req
			return &models.User{ID: id, IsAdmin: *req.IsAdmin}, nil
		},
	}
	router := setupUserTest(t, svc, models.Requester{UserID: testAdminID, IsAdmin: true})

	req := httptest.NewRequest("PUT", "/users/"+testUserID, bytes.NewBufferString(`{"isAdmin": true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got.IsAdmin == nil || !*got.IsAdmin {
		t.Errorf("Expected isAdmin=true to be bound, got %+v", got)
	}
}

func TestUserHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"removed", nil, http.StatusOK},
		{"self", fmt.Errorf("%w: cannot delete your own account", models.ErrValidation), http.StatusBadRequest},
		{"missing", models.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{
				deleteUser: func(context.Context, models.Requester, string) error {
					return tt.err
				},
			}
			router := setupUserTest(t, svc, models.Requester{UserID: testAdminID, IsAdmin: true})

			req := httptest.NewRequest("DELETE", "/users/"+testUserID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.err == nil && w.Body.String() != `{"message":"User removed"}` {
				t.Errorf("Unexpected body %s", w.Body.String())
			}
		})
	}
}
