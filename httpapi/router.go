// Package httpapi exposes the mailauth engine flows over HTTP with gin.
//
// The surface is deliberately small: one route per engine flow, matching
// the redirect contract that email clients and native apps rely on.
package httpapi

import (
	"fmt"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mailauth-io/mailauth"
)

// Handler defines a public type used by mailauth APIs.
//
// Handler instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Handler struct {
	engine *mailauth.Engine
	logger *zap.Logger
}

// NewRouter builds a gin engine with the authentication routes mounted
// at the root. The logger may be nil, in which case logging is disabled.
func NewRouter(engine *mailauth.Engine, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{engine: engine, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/verify", h.Verify)
	router.GET("/confirm", h.Confirm)
	router.GET("/confirm-code", h.ConfirmCode)

	return router
}

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) Verify(c *gin.Context) {
	email := c.Query("email")
	linkingURI := c.Query("linkingUri")

	if email == "" || linkingURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and linkingUri are required"})
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is not a valid address"})
		return
	}

	if err := h.engine.SendAuthenticationEmail(c.Request.Context(), email, linkingURI); err != nil {
		h.logger.Error("send authentication email failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send authentication email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"OK": true})
}

// Confirm describes the confirm operation and its observable behavior.
//
// Confirm may return an error when input validation, dependency calls, or security checks fail.
// Confirm does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	linkingURI := c.Query("linkingUri")

	if token == "" || linkingURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and linkingUri are required"})
		return
	}

	result, err := h.engine.VerifyAuthenticationToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Error("token confirmation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify token"})
		return
	}
	if !result.TokenValid {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s?errorCode=401", linkingURI))
		return
	}

	// Hand the client a session-length token rather than the short-lived
	// confirmation token it arrived with.
	refreshed, err := h.engine.RefreshToken(c.Request.Context(), result.UserID, token)
	if err != nil {
		h.logger.Error("token refresh failed", zap.String("userId", result.UserID), zap.Error(err))
		c.Redirect(http.StatusFound, fmt.Sprintf("%s?errorCode=401", linkingURI))
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s?userId=%s&token=%s",
		linkingURI, url.QueryEscape(result.UserID), url.QueryEscape(refreshed)))
}

// ConfirmCode describes the confirmcode operation and its observable behavior.
//
// ConfirmCode may return an error when input validation, dependency calls, or security checks fail.
// ConfirmCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) ConfirmCode(c *gin.Context) {
	email := c.Query("email")
	code := c.Query("code")

	if email == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and code are required"})
		return
	}
	if len(code) != 5 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login code"})
		return
	}

	match, err := h.engine.VerifyLoginCode(c.Request.Context(), email, code)
	if err != nil {
		h.logger.Error("login code lookup failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify login code"})
		return
	}
	if match == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login code"})
		return
	}

	creds, err := h.engine.CreateAuthenticationTokenAndLoginCode(c.Request.Context(), match.UserID, email, h.engine.SessionTTL())
	if err != nil {
		h.logger.Error("session issuance failed", zap.String("userId", match.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": match.UserID, "token": creds.Token})
}
