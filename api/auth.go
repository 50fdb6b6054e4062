package api

import (
	"net/http"

	"github.com/avetkin/flighttracker/internal/service/session"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service session.SessionUseCase
}

func NewAuthHandler(service session.SessionUseCase) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/auth/login", h.login)
	router.POST("/auth/register", h.register)
	router.POST("/auth/logout", h.logout)
	router.GET("/profile", h.profile)
	router.PATCH("/profile", h.updateProfile)
}

func (h *AuthHandler) login(c *gin.Context) {
	var input session.SignInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.SignIn(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) register(c *gin.Context) {
	var input session.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) logout(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) profile(c *gin.Context) {
	user, err := h.service.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) updateProfile(c *gin.Context) {
	var patch session.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
