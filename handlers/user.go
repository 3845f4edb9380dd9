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

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetProfile(ctx context.Context, requester models.Requester) (*models.User, error)
	UpdateProfile(ctx context.Context, requester models.Requester, req models.UpdateProfileRequest) (*models.AuthResponse, error)
	ListUsers(ctx context.Context, requester models.Requester) ([]models.User, error)
	GetUser(ctx context.Context, requester models.Requester, id string) (*models.User, error)
	UpdateUser(ctx context.Context, requester models.Requester, id string, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, requester models.Requester, id string) error
}

type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "Register")
	defer span.End()

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.users.Register(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("User registered",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("user_id", resp.ID),
	)
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Login(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "Login")
	defer span.End()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.users.Login(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "GetProfile")
	defer span.End()

	requester, _ := middleware.RequesterFrom(c)
	user, err := h.users.GetProfile(ctx, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "UpdateProfile")
	defer span.End()

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	requester, _ := middleware.RequesterFrom(c)
	resp, err := h.users.UpdateProfile(ctx, requester, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "ListUsers")
	defer span.End()

	requester, _ := middleware.RequesterFrom(c)
	users, err := h.users.ListUsers(ctx, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "GetUser")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	requester, _ := middleware.RequesterFrom(c)
	user, err := h.users.GetUser(ctx, requester, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "UpdateUser")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	requester, _ := middleware.RequesterFrom(c)
	user, err := h.users.UpdateUser(ctx, requester, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx, span := otel.Tracer("engravape").Start(c.Request.Context(), "DeleteUser")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	requester, _ := middleware.RequesterFrom(c)
	if err := h.users.DeleteUser(ctx, requester, id); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("User removed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("user_id", id),
		zap.String("removed_by", requester.UserID),
	)
	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
