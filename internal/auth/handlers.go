package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	domainerrors "github.com/mrlokans/bookshelf/internal/errors"
)

// AuthController serves the JSON auth endpoints.
type AuthController struct {
	service     *Service
	sessions    *SessionManager
	mode        config.AuthMode
	rateLimiter *RateLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessions *SessionManager, cfg config.Auth) *AuthController {
	return &AuthController{
		service:     service,
		sessions:    sessions,
		mode:        cfg.Mode,
		rateLimiter: NewRateLimiter(RateLimitConfigFrom(cfg)),
	}
}

// Stop releases the rate limiter.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// RegisterRoutes adds the auth endpoints under /api/auth.
func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/auth")
	g.GET("/status", ac.Status)
	g.GET("/csrf", ac.CSRF)
	g.POST("/setup", ac.Setup)
	g.POST("/login", ac.Login)
	g.POST("/logout", ac.Logout)
	g.POST("/token", ac.GenerateToken)
	g.DELETE("/token", ac.RevokeToken)
}

func respondError(c *gin.Context, status int, code domainerrors.Code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// Status reports the auth mode and whether setup is still pending.
func (ac *AuthController) Status(c *gin.Context) {
	resp := gin.H{
		"mode":          ac.mode,
		"authenticated": GetAuthType(c) != AuthTypeNone,
	}
	if ac.mode == config.AuthModeLocal {
		has, err := ac.service.HasUsers(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, domainerrors.CodePersistenceFailure, "failed to read users")
			return
		}
		resp["setup_required"] = !has
	}
	if userID := GetUserID(c); userID != DefaultUserID {
		resp["user"] = gin.H{"id": userID, "username": GetUsername(c), "role": GetUserRole(c)}
	}
	c.JSON(http.StatusOK, resp)
}

// CSRF hands out the token for the X-CSRF-Token header.
func (ac *AuthController) CSRF(c *gin.Context) {
	token := GetCSRFToken(c)
	c.Header(CSRFTokenHeader, token)
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

type setupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Setup creates the first (admin) user and logs them in.
func (ac *AuthController) Setup(c *gin.Context) {
	if ac.mode != config.AuthModeLocal {
		respondError(c, http.StatusNotFound, domainerrors.CodeNotFound, "authentication is disabled")
		return
	}

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domainerrors.CodeValidation, err.Error())
		return
	}

	user, err := ac.service.Setup(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, ErrSetupComplete), errors.Is(err, ErrUserExists):
		respondError(c, http.StatusConflict, domainerrors.CodeValidation, ErrSetupComplete.Error())
		return
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong),
		errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrEmailInvalid), errors.Is(err, ErrPasswordRequired):
		respondError(c, http.StatusBadRequest, domainerrors.CodeValidation, err.Error())
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, domainerrors.CodeInternal, "failed to create user")
		return
	}

	if err := ac.sessions.CreateSession(c.Request.Context(), user); err != nil {
		respondError(c, http.StatusInternalServerError, domainerrors.CodeInternal, "failed to create session")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and starts a session cookie.
func (ac *AuthController) Login(c *gin.Context) {
	if ac.mode != config.AuthModeLocal {
		respondError(c, http.StatusNotFound, domainerrors.CodeNotFound, "authentication is disabled")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domainerrors.CodeValidation, err.Error())
		return
	}

	ip := c.ClientIP()
	if allowed, retryAfter := ac.rateLimiter.Allow(ip, req.Login); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"code":        domainerrors.CodeNotAuthenticated,
			"retry_after": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(ip, req.Login)
		msg := "invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			msg = ErrAccountLocked.Error()
		}
		respondError(c, http.StatusUnauthorized, domainerrors.CodeNotAuthenticated, msg)
		return
	}
	ac.rateLimiter.RecordSuccess(ip, req.Login)

	if err := ac.sessions.CreateSession(c.Request.Context(), user); err != nil {
		respondError(c, http.StatusInternalServerError, domainerrors.CodeInternal, "failed to create session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout destroys the session. It succeeds without one.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessions != nil {
		_ = ac.sessions.DestroySession(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GenerateToken creates a new API token for the authenticated user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if ac.mode != config.AuthModeLocal || userID == DefaultUserID {
		respondError(c, http.StatusUnauthorized, domainerrors.CodeNotAuthenticated, "authentication required")
		return
	}

	token, err := ac.service.GenerateToken(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domainerrors.CodeInternal, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if ac.mode != config.AuthModeLocal || userID == DefaultUserID {
		respondError(c, http.StatusUnauthorized, domainerrors.CodeNotAuthenticated, "authentication required")
		return
	}

	if err := ac.service.RevokeToken(c.Request.Context(), userID); err != nil {
		respondError(c, http.StatusInternalServerError, domainerrors.CodeInternal, "failed to revoke token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
