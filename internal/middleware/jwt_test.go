package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/service"
)

const testSecret = "middleware-test-secret"

func newAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: time.Hour,
		Issuer:            "conservatory-test",
	})
}

func signToken(t *testing.T, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func teacherClaims(teacherID string) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID:    "u1",
		Role:      models.RoleTeacher,
		Email:     "teacher@conservatory.test",
		TeacherID: &teacherID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "standard", header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "lowercase scheme", header: "bearer abc", token: "abc", ok: true},
		{name: "missing scheme", header: "abc.def.ghi", ok: false},
		{name: "wrong scheme", header: "Basic dXNlcg==", ok: false},
		{name: "empty", header: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := bearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestCurrentClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("absent", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		claims, ok := CurrentClaims(c)
		assert.False(t, ok)
		assert.Nil(t, claims)
	})

	t.Run("wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(ContextUserKey, "not claims")
		_, ok := CurrentClaims(c)
		assert.False(t, ok)
	})

	t.Run("present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := teacherClaims("t1")
		c.Set(ContextUserKey, want)
		claims, ok := CurrentClaims(c)
		require.True(t, ok)
		assert.Equal(t, want, claims)
	})
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := newAuthService()

	router := gin.New()
	router.GET("/protected", JWT(authSvc), func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, teacherClaims("t1")))
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTeacherScopeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/teachers/:teacherId/schedule", func(c *gin.Context) {
		// Claims are seeded from a header so each case controls identity
		// without minting tokens.
		if teacherID := c.GetHeader("X-Test-Teacher"); teacherID != "" {
			c.Set(ContextUserKey, teacherClaims(teacherID))
		} else if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u2", Role: models.UserRole(role)})
		}
		c.Next()
	}, TeacherScope("teacherId"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	get := func(t *testing.T, headers map[string]string) int {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/teachers/t1/schedule", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("no claims", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, nil))
	})

	t.Run("own schedule", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, map[string]string{"X-Test-Teacher": "t1"}))
	})

	t.Run("other teacher", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(t, map[string]string{"X-Test-Teacher": "t2"}))
	})

	t.Run("staff passes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, map[string]string{"X-Test-Role": string(models.RoleStaff)}))
	})
}
