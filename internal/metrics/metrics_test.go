package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	ok := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "418")
	unmatched := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeOK := testutil.ToFloat64(ok)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok), "route template is the label, not the raw path")
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
