package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const customerIDKey = "customer_id"

// WebhookAuth guards the webhook endpoint with a shared secret agreed with the
// payment provider. The secret is accepted either in X-Webhook-Secret or as a
// bearer token.
func WebhookAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get("X-Webhook-Secret")
			if provided == "" {
				auth := c.Request().Header.Get(echo.HeaderAuthorization)
				provided = strings.TrimPrefix(auth, "Bearer ")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
			}

			return next(c)
		}
	}
}

// CustomerAuth validates the customer's bearer token and stores the customer
// id on the request context.
func CustomerAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			customerID, err := parseToken(strings.TrimPrefix(auth, "Bearer "), jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(customerIDKey, customerID)
			return next(c)
		}
	}
}

// CustomerID reads the authenticated customer id set by CustomerAuth.
func CustomerID(c echo.Context) string {
	id, _ := c.Get(customerIDKey).(string)
	return id
}

// GenerateToken issues a signed customer token, returned on customer creation
// so API clients can call the cart and subscription endpoints.
func GenerateToken(customerID, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   customerID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

func parseToken(tokenString, jwtSecret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}
