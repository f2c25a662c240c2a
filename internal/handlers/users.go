package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/api/internal/apperr"
	"natours/api/internal/middleware"
)

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.New(apperr.Unauthenticated, apperr.MsgNotLoggedIn))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

func (h HandlerSet) DeleteMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.New(apperr.Unauthenticated, apperr.MsgNotLoggedIn))
		return
	}
	if err := h.accounts.Deactivate(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}
	h.setSessionCookie(c, middleware.LoggedOutSentinel, h.now().Add(logoutCookieTTL))
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

// Session reports who the caller is, or null for anonymous callers.
func (h HandlerSet) Session(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": nil}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}
