package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

const sessionContextKey = "portal.session"

// sessionMaxAge keeps the browser's session across restarts, like the
// local storage it replaces
const sessionMaxAge = 30 * 24 * time.Hour

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// sessionMiddleware resolves the browser's session from its cookie, creating
// one on first visit
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(s.portal.SessionCookie)

		sess, err := s.services.Auth.EnsureSession(c.Request.Context(), id)
		if err != nil {
			s.logger.Error("Failed to resolve session", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if sess.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(s.portal.SessionCookie, sess.ID, int(sessionMaxAge.Seconds()), "/", "", s.portal.CookieSecure, true)
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// requireLoginMiddleware redirects to the login screen when no token is
// stored and login is required
func (s *Server) requireLoginMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.portal.RequireLogin || currentSession(c).LoggedIn() {
			c.Next()
			return
		}
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
	}
}

// currentSession returns the session set by sessionMiddleware
func currentSession(c *gin.Context) *entity.Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if sess, ok := v.(*entity.Session); ok {
			return sess
		}
	}
	return nil
}
