package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

const (
	ctxUserID     = "user_id"
	ctxClaims     = "claims"
	ctxAdminGrant = "admin_grant"
)

// AuthMiddleware validates the bearer token and adds the account to the context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.AccountID)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}

// AdminMiddleware requires the authenticated account to hold the admin role
func AdminMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		grant, err := authService.GrantAdmin(c.Request.Context(), c.GetString(ctxUserID))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.Set(ctxAdminGrant, grant)
		c.Next()
	}
}

// ViewerMiddleware attaches an admin grant when the account has one, letting
// admins read donations they do not own
func ViewerMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		grant, err := authService.GrantAdmin(c.Request.Context(), c.GetString(ctxUserID))
		switch {
		case err == nil:
			c.Set(ctxAdminGrant, grant)
		case errors.Is(err, service.ErrForbidden):
		default:
			writeError(c, logger, err)
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   string(service.KindUnauthorized),
		Message: message,
	})
}

func adminGrant(c *gin.Context) (service.AdminGrant, bool) {
	v, ok := c.Get(ctxAdminGrant)
	if !ok {
		return service.AdminGrant{}, false
	}
	grant, ok := v.(service.AdminGrant)
	return grant, ok
}

func viewer(c *gin.Context) service.Viewer {
	v := service.Viewer{AccountID: c.GetString(ctxUserID)}
	if grant, ok := adminGrant(c); ok {
		v.Admin = &grant
	}
	return v
}

// SessionClaims returns the validated token claims set by AuthMiddleware
func SessionClaims(c *gin.Context) (*domain.SessionClaims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.SessionClaims)
	return claims, ok
}
