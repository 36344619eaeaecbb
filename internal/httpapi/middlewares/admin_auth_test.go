package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/adminauth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", handler, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAdminTokenAcceptsStaticBearerToken(t *testing.T) {
	r := newTestRouter(RequireAdminToken("secret-token", nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminTokenRejectsWrongStaticToken(t *testing.T) {
	r := newTestRouter(RequireAdminToken("secret-token", nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminTokenRejectsMissingHeader(t *testing.T) {
	r := newTestRouter(RequireAdminToken("secret-token", nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminTokenAcceptsValidOperatorJWT(t *testing.T) {
	mgr := adminauth.NewManager("jwt-secret", time.Hour)
	token, err := mgr.IssueOperatorToken()
	require.NoError(t, err)

	r := newTestRouter(RequireAdminToken("unrelated-static-token", mgr))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminTokenFallsBackToStaticTokenWhenJWTInvalid(t *testing.T) {
	mgr := adminauth.NewManager("jwt-secret", time.Hour)
	r := newTestRouter(RequireAdminToken("static-secret", mgr))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer static-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
