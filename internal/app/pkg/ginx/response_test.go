package ginx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

func record(fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestFailUsesErrorKind(t *testing.T) {
	w, resp := record(func(c *gin.Context) { Fail(c, errorutil.MalformedTable("gene table is empty")) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_TABLE", resp.Meta.Kind)
	assert.Equal(t, "gene table is empty", resp.Meta.Message)

	w, resp = record(func(c *gin.Context) { Fail(c, errors.New("db down")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, resp.Meta.Kind)
	assert.Equal(t, "internal error", resp.Meta.Message)

	w, _ = record(func(c *gin.Context) { Fail(c, errorutil.Cancelled(nil, "client went away")) })
	assert.Equal(t, 499, w.Code)
}

func TestProcessing(t *testing.T) {
	w, resp := record(func(c *gin.Context) { Processing(c, "p1", "/api/v1/predictions/p1") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeProcessing, resp.Meta.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/api/v1/predictions/p1", data["poll_url"])
}

func TestBadRequestWithValidation(t *testing.T) {
	type body struct {
		SampleID string `json:"sample_id" binding:"required"`
	}

	w, resp := record(func(c *gin.Context) {
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
		var b body
		BadRequestWithValidation(c, c.ShouldBindJSON(&b))
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, resp.Meta.Message)
}
