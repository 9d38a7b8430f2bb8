package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/auth"
	"github.com/littlelemon/restaurant/internal/model"
	"github.com/littlelemon/restaurant/internal/repository"
	"github.com/littlelemon/restaurant/internal/serializer"
)

// maxUsernameLength matches the users.username column.
const maxUsernameLength = 150

// UserStore is the account persistence the token gateway needs.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (uint64, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// RefreshStore persists refresh token hashes.
type RefreshStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
}

// AuthHandler bundles dependencies for the token gateway endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     RefreshStore
	Issuer     *auth.Issuer
	BcryptCost int
	Now        func() time.Time
}

func NewAuthHandler(u UserStore, t RefreshStore, iss *auth.Issuer, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: u, Tokens: t, Issuer: iss, BcryptCost: bcryptCost, Now: time.Now}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	Refresh string `json:"refresh" form:"refresh"`
}

type userResp struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

type tokenPairResp struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type accessResp struct {
	Access string `json:"access"`
}

const msgNoActiveAccount = "No active account found with the given credentials"

func (r *credentialsReq) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	errs := serializer.ValidationError{}
	if r.Username == "" {
		errs["username"] = []string{"This field is required."}
	} else if utf8.RuneCountInString(r.Username) > maxUsernameLength {
		errs["username"] = []string{"Ensure this field has no more than 150 characters."}
	}
	if r.Password == "" {
		errs["password"] = []string{"This field is required."}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Register handles POST /auth/users: create an account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return respondError(c, "validate", err)
	}
	hash, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return respondError(c, "hash password", err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	uid, err := h.Users.Create(ctx, req.Username, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, serializer.ValidationError{
				"username": {"A user with that username already exists."},
			})
		}
		return respondError(c, "create user", err)
	}
	return c.JSON(http.StatusCreated, userResp{ID: uid, Username: req.Username})
}

// Login handles POST /api/token/login: verify credentials and return a
// new access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return respondError(c, "validate", err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNoActiveAccount})
		}
		return respondError(c, "load user", err)
	}
	if !u.IsActive || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNoActiveAccount})
	}

	access, err := h.Issuer.NewAccessToken(u.ID)
	if err != nil {
		return respondError(c, "issue access", err)
	}
	refresh, err := h.Issuer.NewRefreshToken()
	if err != nil {
		return respondError(c, "issue refresh", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, refresh.Hash(), refresh.Exp); err != nil {
		return respondError(c, "save refresh", err)
	}
	return c.JSON(http.StatusOK, tokenPairResp{Access: access.Token, Refresh: refresh.Raw})
}

// Refresh handles POST /api/token/refresh: exchange a refresh token for
// a new access token.  The refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	raw := strings.TrimSpace(req.Refresh)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, serializer.ValidationError{"refresh": {"This field is required."}})
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	uid, err := h.Tokens.ValidateRefresh(ctx, auth.HashRefreshRaw(raw), h.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token is invalid or expired"})
		}
		return respondError(c, "validate refresh", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNoActiveAccount})
		}
		return respondError(c, "load user", err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNoActiveAccount})
	}

	access, err := h.Issuer.NewAccessToken(uid)
	if err != nil {
		return respondError(c, "issue access", err)
	}
	return c.JSON(http.StatusOK, accessResp{Access: access.Token})
}
