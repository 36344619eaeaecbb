package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testBindTarget struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count" binding:"min=1"`
}

func bindRequest(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")

	var target testBindTarget
	ok := BindJSON(ctx, &target)
	return rec, ok
}

func TestBindJSONAcceptsValidBody(t *testing.T) {
	rec, ok := bindRequest(t, `{"name":"repo-1","count":3}`)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONReportsValidationFailures(t *testing.T) {
	rec, ok := bindRequest(t, `{"count":0}`)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"name"`)
	require.Contains(t, rec.Body.String(), `"rule":"required"`)
}

func TestBindJSONReportsSyntaxErrors(t *testing.T) {
	rec, ok := bindRequest(t, `{"name":`)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_json_syntax")
}

func TestBindJSONReportsTypeMismatch(t *testing.T) {
	rec, ok := bindRequest(t, `{"name":"repo-1","count":"not-a-number"}`)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_json_type")
	require.Contains(t, rec.Body.String(), `"field":"count"`)
}

func TestValidationMessageCoversKnownRules(t *testing.T) {
	require.Equal(t, "is required", validationMessage("required", ""))
	require.Equal(t, "must be at least 3", validationMessage("min", "3"))
	require.Equal(t, "must be one of a, b", validationMessage("oneof", "a b"))
	require.Equal(t, "failed custom validation", validationMessage("custom", ""))
}
