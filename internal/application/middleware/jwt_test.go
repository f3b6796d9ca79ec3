package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
)

func newTestJWT(redisClient *redis.Client) *JWTMiddleware {
	logging.Logger = zap.NewNop()
	return NewJWTMiddleware("test-secret", redisClient, 15*time.Minute)
}

func TestJWTMiddleware_GenerateAndParse(t *testing.T) {
	j := newTestJWT(nil)

	token, jti, err := j.GenerateAccessToken("op_1", "operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := j.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op_1", claims.UserID)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, jti, claims.JTI)
	assert.Equal(t, "payment-recovery", claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Minute)

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewJWTMiddleware("other-secret", nil, 15*time.Minute)
		foreign, _, err := other.GenerateAccessToken("op_1", "operator")
		require.NoError(t, err)

		_, err = j.ParseToken(foreign)
		assert.Error(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := j.ParseToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestJWTMiddleware_Authenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(j *JWTMiddleware, authorization string) *httptest.ResponseRecorder {
		router := gin.New()
		router.GET("/protected", j.Authenticate(), RequireOperator(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
		})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header is unauthorized", func(t *testing.T) {
		j := newTestJWT(nil)
		assert.Equal(t, http.StatusUnauthorized, serve(j, "").Code)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		j := newTestJWT(nil)
		assert.Equal(t, http.StatusUnauthorized, serve(j, "Token abc").Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		j := newTestJWT(nil)
		assert.Equal(t, http.StatusUnauthorized, serve(j, "Bearer not.a.token").Code)
	})

	t.Run("blocklist outage fails closed", func(t *testing.T) {
		// A client pointed at an unreachable address makes every blocklist
		// lookup fail; a valid token must not pass while revocation state
		// is unknown.
		dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		j := newTestJWT(dead)

		token, _, err := j.GenerateAccessToken("op_1", "operator")
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, serve(j, "Bearer "+token).Code)
	})
}

func TestRequireOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(role string) *httptest.ResponseRecorder {
		router := gin.New()
		router.GET("/admin", func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
		}, RequireOperator(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, serve("operator").Code)
	assert.Equal(t, http.StatusForbidden, serve("member").Code)
	assert.Equal(t, http.StatusForbidden, serve("").Code)
}
