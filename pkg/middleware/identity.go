package middleware

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AnonymousUser is the identity every request falls back to when nothing
// else resolves
const AnonymousUser = "anonymous"

// principalEnvelope is the base64-JSON claims header forwarded by an
// authenticating edge proxy
type principalEnvelope struct {
	UserID string `json:"userId"`
}

// NewIdentityMiddleware resolves the caller identity and sets it as
// userID. Resolution order: bearer token subject > principal header >
// X-User-Id header > userId query param > anonymous.
//
// Header-based identity is trivially spoofable and only acceptable
// because deployments front this with an authenticating proxy or use
// bearer tokens.
func NewIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			sub, err := subjectFromToken(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Authorization token invalid",
					"requestID": requestID,
				})

				zap.L().Warn("Rejected bearer token", zap.Error(err), zap.String("requestID", requestID))
				return
			}

			c.Set("userID", sub)
			c.Next()
			return
		}

		if raw := c.GetHeader("X-Client-Principal"); raw != "" {
			if id := userFromPrincipal(raw); id != "" {
				c.Set("userID", id)
				c.Next()
				return
			}

			zap.L().Debug("Unparseable principal header, falling through", zap.String("requestID", requestID))
		}

		if id := c.GetHeader("X-User-Id"); id != "" {
			c.Set("userID", id)
			c.Next()
			return
		}

		if id := c.Query("userId"); id != "" {
			c.Set("userID", id)
			c.Next()
			return
		}

		c.Set("userID", AnonymousUser)
		c.Next()
	}
}

func subjectFromToken(tokenStr string) (string, error) {
	secret := viper.GetString("security.jwt_secret")
	if secret == "" {
		return "", fmt.Errorf("no jwt secret configured")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token, %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return sub, nil
}

func userFromPrincipal(raw string) string {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return ""
	}

	var p principalEnvelope
	if err := json.Unmarshal(decoded, &p); err != nil {
		return ""
	}

	return p.UserID
}
