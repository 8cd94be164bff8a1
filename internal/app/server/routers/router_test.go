package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/pkg/ginx"
	"github.com/reeta-042/salmonella-amr-api/internal/app/server/handlers/prediction"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// stubDispatcher 立即返回预先设定的回调，nil 表示超时
type stubDispatcher struct {
	result *model.PredictCallback
}

func (d *stubDispatcher) PublishPredictJob(ctx context.Context, p *etprediction.Prediction) (string, error) {
	return "q-" + p.ID, nil
}

func (d *stubDispatcher) WaitForResult(ctx context.Context, id string, timeout time.Duration) (*model.PredictCallback, error) {
	if d.result == nil {
		return nil, context.DeadlineExceeded
	}
	cb := *d.result
	cb.JobID = id
	return &cb, nil
}

func newRouter(t *testing.T, d *stubDispatcher) (*gin.Engine, *rpprediction.MemoryRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := rpprediction.NewMemoryRepository()
	svc := svprediction.NewPredictionService(repo, d, 10*time.Second, logger.NewNop())
	return SetupRoutes(prediction.NewPredictionHandler(svc, logger.NewNop()), logger.NewNop()), repo
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var validBody = map[string]interface{}{
	"sample_id": "S1",
	"gene_table": map[string]interface{}{
		"columns": []string{"Genome_ID", "blaTEM-1"},
		"rows":    [][]interface{}{{"S1", 1}},
	},
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t, &stubDispatcher{})
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateReturnsProcessingWhenNotWaiting(t *testing.T) {
	r, repo := newRouter(t, &stubDispatcher{})
	w := do(r, http.MethodPost, "/api/v1/predictions", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(ginx.CodeProcessing), meta["code"])

	data := body["data"].(map[string]interface{})
	id := data["prediction_id"].(string)
	assert.Equal(t, "/api/v1/predictions/"+id, data["poll_url"])

	_, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestCreateWithWaitReturnsReport(t *testing.T) {
	r, _ := newRouter(t, &stubDispatcher{result: &model.PredictCallback{
		Status: model.CallbackStatusSuccess,
		Report: &model.Report{SampleID: "S1", Status: model.ReportStatusCompleted},
	}})
	w := do(r, http.MethodPost, "/api/v1/predictions?wait=5", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", data["status"])
	report := data["report"].(map[string]interface{})
	assert.Equal(t, "S1", report["sample_id"])
}

func TestCreateValidation(t *testing.T) {
	r, _ := newRouter(t, &stubDispatcher{})

	w := do(r, http.MethodPost, "/api/v1/predictions", map[string]interface{}{"sample_id": "S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/predictions", map[string]interface{}{"work_dir": "/data/S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndList(t *testing.T) {
	r, repo := newRouter(t, &stubDispatcher{})

	w := do(r, http.MethodGet, "/api/v1/predictions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	p, err := etprediction.NewPrediction("p1", "", &model.PredictBusinessData{SampleID: "S9"})
	require.NoError(t, err)
	p.MarkAsFailed("MALFORMED_TABLE", "gene table has no Genome_ID column")
	require.NoError(t, repo.Create(context.Background(), p))

	w = do(r, http.MethodGet, "/api/v1/predictions/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "FAILED", data["status"])
	assert.Equal(t, "MALFORMED_TABLE", data["error"].(map[string]interface{})["kind"])

	w = do(r, http.MethodGet, "/api/v1/predictions?sample_id=S9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), list["total"])
}
