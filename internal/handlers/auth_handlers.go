package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stateCookie = "oauth_state"

// TokenLoginInput carries an access token the browser obtained itself.
type TokenLoginInput struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// Login handles GET /v1/auth/login
// It returns the Google consent URL and remembers the state in a cookie.
func (h *Handlers) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{"url": h.OAuth.AuthCodeURL(state)})
}

// OAuthCallback handles GET /v1/auth/callback
func (h *Handlers) OAuthCallback(c *gin.Context) {
	// 1. --- Check State ---
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state. Please try signing in again."})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	if errMsg := c.Query("error"); errMsg != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in was cancelled: " + errMsg})
		return
	}

	// 2. --- Exchange Code ---
	token, err := h.OAuth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.Log.Warn("OAuth code exchange failed", zap.Error(err))
		h.fail(c, err)
		return
	}

	// 3. --- Start Session ---
	h.startSession(c, token.AccessToken)
}

// TokenLogin handles POST /v1/auth/token
func (h *Handlers) TokenLogin(c *gin.Context) {
	var input TokenLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.startSession(c, input.AccessToken)
}

func (h *Handlers) startSession(c *gin.Context, accessToken string) {
	sess, err := h.Sessions.Login(c.Request.Context(), accessToken)
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := h.Tokens.GenerateToken(sess.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  sess.User,
	})
}

// Me handles GET /v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sess.User})
}

// Logout handles POST /v1/auth/logout
// Any running scan is stopped first so the camera is released.
func (h *Handlers) Logout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	h.Scanners.Close(sess.ID)
	if err := h.Sessions.SignOut(c.Request.Context(), sess.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
