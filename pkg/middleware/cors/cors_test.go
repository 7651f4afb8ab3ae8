package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/appeals", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/appeals", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/appeals", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	rec := serve([]string{"https://portal.city.gov/"}, http.MethodGet, "https://PORTAL.city.gov")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://PORTAL.city.gov", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsPreflightFromUnknownOrigin(t *testing.T) {
	rec := serve([]string{"https://portal.city.gov"}, http.MethodOptions, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowAll(t *testing.T) {
	rec := serve(nil, http.MethodOptions, "https://anything.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
