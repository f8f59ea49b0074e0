package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/StenSOn27/online-cinema-api/internal/config"
	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
	"github.com/StenSOn27/online-cinema-api/internal/utils"
)

// accountNotifier publishes account email events. Satisfied by
// *queue.Publisher; an interface so tests can stub it.
type accountNotifier interface {
	PublishAccountActivation(ctx context.Context, ev queue.AccountTokenEvent) error
	PublishPasswordReset(ctx context.Context, ev queue.AccountTokenEvent) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Regions *repository.RegionRepo
	Events  accountNotifier
	Logger  zerolog.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, r *repository.RegionRepo, ev accountNotifier, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Regions: r, Events: ev, Logger: logger}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Region   string `json:"region"`
}
type activateReq struct {
	Token string `json:"token"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetRequestReq struct {
	Email string `json:"email"`
}
type resetCompleteReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID     uint64 `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Region string `json:"region"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates an inactive user and issues a one-time activation token.
// The account cannot log in until it is activated.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if region == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "region required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, err := h.Regions.GetByCode(ctx, region)
	if err != nil {
		if errors.Is(err, model.ErrRegionNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown region"})
		}
		return respondError(c, err)
	}

	uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleUser, reg.ID, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}

	tok, err := utils.NewAccountToken(time.Duration(h.Cfg.AccountTTLHrs) * time.Hour)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.StoreAccountToken(ctx, uid, repository.TokenActivation, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return respondError(c, err)
	}

	h.publishAccountEvent(repository.TokenActivation, queue.AccountTokenEvent{
		UserID:    uid,
		Email:     req.Email,
		Token:     tok.Raw,
		ExpiresAt: tok.Exp.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"user":             userPart{ID: uid, Email: req.Email, Role: model.RoleUser, Region: reg.Code},
		"activation_token": tok.Raw,
	})
}

// Activate consumes an activation token and enables the account.
func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.ConsumeAccountToken(ctx, repository.TokenActivation, utils.HashToken(req.Token))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.Activate(ctx, uid); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account activated."})
}

// Login verifies credentials and returns an access/refresh token pair.
// Inactive accounts are rejected.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return respondError(c, model.ErrNotActivated)
	}
	return h.issueTokens(c, ctx, u)
}

// Refresh rotates a refresh token: validates and revokes the presented one,
// then issues a fresh pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashToken(req.RefreshToken)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondError(c, err)
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return h.issueTokens(c, ctx, u)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashToken(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role, Region: u.RegionCode})
}

// RequestPasswordReset issues a one-time reset token for a known email. The
// response is identical whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := echo.Map{"message": "If the email is registered, a reset link has been sent."}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, resp)
		}
		return respondError(c, err)
	}

	tok, err := utils.NewAccountToken(time.Duration(h.Cfg.AccountTTLHrs) * time.Hour)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.StoreAccountToken(ctx, u.ID, repository.TokenPasswordReset, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return respondError(c, err)
	}

	h.publishAccountEvent(repository.TokenPasswordReset, queue.AccountTokenEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Token:     tok.Raw,
		ExpiresAt: tok.Exp.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, resp)
}

// CompletePasswordReset consumes a reset token, sets the new password and
// revokes all refresh tokens for the account.
func (h *AuthHandler) CompletePasswordReset(c echo.Context) error {
	var req resetCompleteReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.ConsumeAccountToken(ctx, repository.TokenPasswordReset, utils.HashToken(req.Token))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated."})
}

// issueTokens creates an access/refresh pair, persists the refresh hash and
// writes the auth response.
func (h *AuthHandler) issueTokens(c echo.Context, ctx context.Context, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, Region: u.RegionCode},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// publishAccountEvent sends an account email event without blocking the
// request. Failures are logged; email delivery is best effort.
func (h *AuthHandler) publishAccountEvent(purpose string, ev queue.AccountTokenEvent) {
	if h.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var err error
		if purpose == repository.TokenActivation {
			err = h.Events.PublishAccountActivation(ctx, ev)
		} else {
			err = h.Events.PublishPasswordReset(ctx, ev)
		}
		if err != nil {
			h.Logger.Error().Err(err).Str("purpose", purpose).Uint64("user_id", ev.UserID).
				Msg("failed to publish account event")
		}
	}()
}
