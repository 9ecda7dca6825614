package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kevinliu948/storeit-backend/internal/auth"
	"github.com/kevinliu948/storeit-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// SessionConfig configures the session middleware.
type SessionConfig struct {
	JWTSecret  string
	JWTIssuer  string
	CookieName string
	SignInURL  string
}

// SessionAuth resolves the current user from the session cookie, falling back
// to the Authorization header for non-browser clients. Browser requests
// without a valid session are redirected to the sign-in page; API clients
// get a plain 401.
func SessionAuth(cfg SessionConfig, log *logger.Logger) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)

	return func(c *gin.Context) {
		var token string

		if cookie, err := c.Cookie(cfg.CookieName); err == nil && cookie != "" {
			token = cookie
		} else if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token, err = auth.ExtractTokenFromHeader(authHeader)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				c.Abort()
				return
			}
		}

		if token == "" {
			rejectUnauthenticated(c, cfg.SignInURL, "missing session")
			return
		}

		claims, err := jwtManager.VerifySessionToken(token)
		if err != nil {
			log.Warn("invalid session token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			rejectUnauthenticated(c, cfg.SignInURL, "invalid or expired session")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// rejectUnauthenticated redirects browsers to the sign-in page and returns
// 401 for JSON clients.
func rejectUnauthenticated(c *gin.Context, signInURL, reason string) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusSeeOther, signInURL)
		c.Abort()
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": reason, "sign_in": signInURL})
	c.Abort()
}

// GetUserID returns the authenticated user ID from the request context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	return userID.(string), true
}

// GetEmail returns the authenticated user email from the request context.
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get("email")
	if !exists {
		return "", false
	}
	return email.(string), true
}

// CORS allows the web client to call the API from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
