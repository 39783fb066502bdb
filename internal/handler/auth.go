package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/middleware"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/utils"
)

// StaffAccounts looks staff up by email.
type StaffAccounts interface {
	GetByEmail(ctx context.Context, email string) (model.StaffUser, error)
}

// AuthHandler issues staff access tokens. There is no self-registration;
// accounts are seeded or created by a manager out of band.
type AuthHandler struct {
	Staff        StaffAccounts
	JWTSecret    string
	AccessTTLMin int
	Clock        clockwork.Clock
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type staffPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Staff.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return respondError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	access, err := utils.NewAccessToken(h.JWTSecret, u.ID, u.Email, u.Role, h.AccessTTLMin, h.Clock.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"staff":  staffPart{ID: u.ID, Email: u.Email, Role: u.Role},
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me handles GET /v1/staff/me.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"staff_id": middleware.StaffID(c),
		"role":     middleware.Role(c),
	})
}
