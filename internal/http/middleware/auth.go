// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the identity middleware. Authentication proper happens
// upstream (gateway or proxy); the app trusts the X-User-ID header it is
// handed and makes the identity available to handlers via the Gin context.
// Requests without an identity are still admitted here; endpoints that
// require a user reject them with 401 at the handler level, so public
// endpoints (health, metrics) stay reachable.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// userIDKey is the Gin context key under which the user identity is stored.
	userIDKey = "userID"
	// userIDHeader is the HTTP header carrying the upstream-verified identity.
	userIDHeader = "X-User-ID"
)

// Identity copies the X-User-ID header into the Gin context so downstream
// middleware (rate limiting, logging) and handlers can key on the user.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(userIDHeader)); uid != "" {
			c.Set(userIDKey, uid)
		}
		c.Next()
	}
}

// UserID returns the identity attached by Identity(), or "" when the request
// carried none.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
