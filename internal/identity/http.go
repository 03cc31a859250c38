package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", handler.login)
	}
}

type httpHandler struct {
	service *Service
}

type loginRequest struct {
	Username string `json:"username" binding:"required,max=128"`
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	creds, err := h.service.Login(c.Request.Context(), req.Username)
	if err != nil {
		switch err {
		case ErrInvalidUsername:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		}
		return
	}

	c.JSON(http.StatusOK, creds)
}
