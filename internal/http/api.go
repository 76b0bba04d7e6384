package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"panel-auth/internal/domain"
	"panel-auth/internal/service"
)

const contextUserKey = "authUser"

// Handler wires HTTP routes to the auth service.
type Handler struct {
	auth   *service.AuthService
	logger *logrus.Logger
}

func NewHandler(auth *service.AuthService, logger *logrus.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	auth := router.Group("/api/auth")
	{
		auth.GET("/captcha", h.getCaptcha)
		auth.POST("/check-captcha", h.checkCaptcha)
		auth.POST("/login", h.login)
		auth.GET("/has-users", h.hasUsers)
		auth.POST("/register", h.register)

		protected := auth.Group("")
		protected.Use(h.authenticate())
		{
			protected.GET("/verify", h.verify)
			protected.POST("/change-password", h.changePassword)
			protected.POST("/change-username", h.changeUsername)
			protected.POST("/logout", h.logout)

			admin := protected.Group("")
			admin.Use(h.requireAdmin())
			{
				admin.GET("/users", h.listUsers)
				admin.GET("/login-attempts", h.listAttempts)
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authenticate validates the bearer token and stores the re-resolved user
// in the request context.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := h.auth.VerifyToken(c.Request.Context(), auth[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.Role.CanListUsers() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

type loginRequest struct {
	Username    string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=6"`
	CaptchaID   string `json:"captchaId"`
	CaptchaCode string `json:"captchaCode"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6"`
}

type checkCaptchaRequest struct {
	Username string `json:"username" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type changeUsernameRequest struct {
	NewUsername string `json:"newUsername" binding:"required,alphanum,min=3,max=30"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type attemptResponse struct {
	Username          string `json:"username"`
	IP                string `json:"ip"`
	Success           bool   `json:"success"`
	ChallengeRequired bool   `json:"challenge_required"`
	Timestamp         string `json:"timestamp"`
}

func (h *Handler) getCaptcha(c *gin.Context) {
	id, image, err := h.auth.GenerateCaptcha()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate captcha"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"captcha": gin.H{"id": id, "image": image},
	})
}

func (h *Handler) checkCaptcha(c *gin.Context) {
	var req checkCaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"requireCaptcha": h.auth.CheckIfRequireCaptcha(req.Username),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.Login(
		c.Request.Context(),
		req.Username,
		req.Password,
		c.ClientIP(),
		req.CaptchaID,
		req.CaptchaCode,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		case errors.Is(err, service.ErrChallengeRequired):
			c.JSON(http.StatusUnauthorized, gin.H{
				"success":        false,
				"message":        err.Error(),
				"requireCaptcha": true,
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{
				"success":        false,
				"message":        err.Error(),
				"requireCaptcha": h.auth.CheckIfRequireCaptcha(req.Username),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    userToResponse(user),
	})
}

func (h *Handler) hasUsers(c *gin.Context) {
	hasUsers, err := h.auth.HasUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hasUsers": hasUsers})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyInitialized):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDuplicateUsername):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToResponse(user)})
}

func (h *Handler) verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToResponse(currentUser(c))})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	if err := h.auth.ChangePassword(c.Request.Context(), user.Username, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) changeUsername(c *gin.Context) {
	var req changeUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	updated, err := h.auth.ChangeUsername(c.Request.Context(), user.Username, req.NewUsername)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDuplicateUsername):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "username change failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToResponse(updated)})
}

func (h *Handler) logout(c *gin.Context) {
	// tokens are stateless; logout is client-side, the server only records it
	if user := currentUser(c); user != nil {
		h.logger.Infof("user %q logged out", user.Username)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.auth.GetUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	resp := make([]userResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": resp})
}

func (h *Handler) listAttempts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit == 0 {
		limit = 100
	}

	attempts := h.auth.GetLoginAttempts(limit)
	resp := make([]attemptResponse, len(attempts))
	for i, a := range attempts {
		resp[i] = attemptResponse{
			Username:          a.Username,
			IP:                a.IP,
			Success:           a.Success,
			ChallengeRequired: a.ChallengeRequired,
			Timestamp:         a.Timestamp.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attempts": resp})
}

func userToResponse(user *domain.User) userResponse {
	if user == nil {
		return userResponse{}
	}
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
