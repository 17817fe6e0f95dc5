package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"khata/internal/handler"
	"khata/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testTenant = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUser   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// newContext builds a gin test context with tenant and user already resolved.
func newContext(method, target string, body any, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set(middleware.ContextKeyTenantID, testTenant)
	c.Set(middleware.ContextKeyUserID, testUser)
	return c, w
}

func idParam(id uuid.UUID) gin.Param {
	return gin.Param{Key: "id", Value: id.String()}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func idParamRaw(raw string) gin.Param {
	return gin.Param{Key: "id", Value: raw}
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
