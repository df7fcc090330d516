package handler

import (
	"context"  // provides context with cancellation for service calls
	"log/slog" // structured logging of store failures
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/salon-management/internal/middleware" // claims of the authenticated caller
	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/service"
	"github.com/iliyamo/salon-management/internal/utils"
)

// AuthFlows is the part of service.AuthService the auth endpoints use.
type AuthFlows interface {
	LoginAdmin(ctx context.Context, email, password string) (*service.AuthResult, error)
	LoginOwner(ctx context.Context, email, password string) (*service.AuthResult, error)
	RegisterAdmin(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Refresh(ctx context.Context, principalID, refreshToken string) (*service.AuthResult, error)
	Logout(ctx context.Context, principalID string) error
	SetOwnerPassword(ctx context.Context, invitationID, password string) (*service.AuthResult, error)
	Me(ctx context.Context, actor *utils.Claims) (model.PrincipalSummary, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth   AuthFlows
	Logger *slog.Logger
}

func NewAuthHandler(auth AuthFlows, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{Auth: auth, Logger: logger.With("component", "http")}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}
type setPasswordReq struct {
	Password string `json:"password"`
}

// RegisterAdmin: create a platform admin and return tokens immediately.
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.RegisterAdmin(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// LoginAdmin: verify an admin and return a new pair.
func (h *AuthHandler) LoginAdmin(c echo.Context) error {
	return h.login(c, h.Auth.LoginAdmin)
}

// LoginOwner: verify a salon owner and return a new pair.
func (h *AuthHandler) LoginOwner(c echo.Context) error {
	return h.login(c, h.Auth.LoginOwner)
}

func (h *AuthHandler) login(c echo.Context, flow func(context.Context, string, string) (*service.AuthResult, error)) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := flow(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: validate against the session store, rotate both tokens.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.UserID), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout: drop every session of the current principal (protected).
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, claims.Subject); err != nil {
		return fail(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetOwnerPassword: activate an invitation and sign the owner in.
func (h *AuthHandler) SetOwnerPassword(c echo.Context) error {
	id := strings.TrimSpace(c.Param("ownerId"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner id required"})
	}
	var req setPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.SetOwnerPassword(ctx, id, req.Password)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me: summary of the authenticated principal.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	me, err := h.Auth.Me(ctx, claims)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, me)
}
