package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/inkwell/utils"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "inkwell_session"
	// LoginPath is where anonymous users are sent when a page needs auth.
	LoginPath = "/auth/login/"
	// NextParam carries the page to return to after a successful login.
	NextParam = "next"

	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw session token for logout.
	ContextTokenKey = "session_token"
)

// CurrentUser resolves the session token from the cookie (or a bearer
// header) and stores the identity in the context. It never aborts; pages
// that require auth layer LoginRequired on top.
func CurrentUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" || utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous requests to the login page, carrying the
// original path in the next parameter.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := ctx.Get(ContextUserIDKey); !ok {
			target := LoginPath + "?" + NextParam + "=" + url.QueryEscape(ctx.Request.URL.RequestURI())
			ctx.Redirect(http.StatusFound, target)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// UserID returns the authenticated user's ID from the context.
func UserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// Username returns the authenticated user's name from the context.
func Username(ctx *gin.Context) string {
	value, exists := ctx.Get(ContextUsernameKey)
	if !exists {
		return ""
	}
	name, _ := value.(string)
	return name
}

func extractToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
