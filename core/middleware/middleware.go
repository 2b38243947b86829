package middleware

import (
	"fmt"
	"strings"

	"presence-sync/core/config"
	"presence-sync/core/controller"
	"presence-sync/core/errors"
	"presence-sync/core/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const UserIDContextKey = "user_id"

type Middleware struct {
	jwtSecret      []byte
	serviceKeyHash []byte
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{
		jwtSecret:      []byte(cfg.Auth.JWTSecret),
		serviceKeyHash: []byte(cfg.Auth.ServiceKeyHash),
	}
}

// AuthMiddleware validates a Bearer JWT and stores its subject as the
// requesting chat user id.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return controller.NewErrorResponse(401, errors.ErrInvalidTokenFormat, "invalid token format")
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return m.jwtSecret, nil
			})
			if err != nil || !token.Valid {
				logger.Warn("Middleware:Auth:InvalidToken", "error", err)
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "invalid or expired token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "invalid token claims")
			}
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "token missing subject")
			}

			c.Set(UserIDContextKey, sub)
			return next(c)
		}
	}
}

// ServiceKeyMiddleware guards ops routes with a shared key checked against a
// bcrypt hash from config.
func (m *Middleware) ServiceKeyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(m.serviceKeyHash) == 0 {
				return controller.NewErrorResponse(403, errors.ErrForbidden, "ops access not configured")
			}
			key := c.Request().Header.Get("X-Service-Key")
			if key == "" {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "missing service key")
			}
			if err := bcrypt.CompareHashAndPassword(m.serviceKeyHash, []byte(key)); err != nil {
				return controller.NewErrorResponse(403, errors.ErrForbidden, "invalid service key")
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated chat user id set by AuthMiddleware.
func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDContextKey).(string)
	return id
}
