package domains

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfyx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

type recordingPublisher struct {
	callbacks []model.PredictCallback
	err       error
}

func (p *recordingPublisher) Publish(queue string, data []byte, ttl, delay uint32) error {
	if p.err != nil {
		return p.err
	}
	var cb model.PredictCallback
	if err := json.Unmarshal(data, &cb); err != nil {
		return err
	}
	p.callbacks = append(p.callbacks, cb)
	return nil
}

func newPredictionService(t *testing.T, pub services.Publisher) *services.PredictionService {
	t.Helper()
	full, err := templates.New("full", []string{"sul1", "NC_003197_10_A>G"})
	require.NoError(t, err)
	part, err := templates.New("genes_snps", []string{"NC_003197_10_A>G"})
	require.NoError(t, err)
	set, err := templates.NewSet(full, part)
	require.NoError(t, err)

	fm, err := classifier.NewLogistic("full", -1, []float64{2, 1}, nil)
	require.NoError(t, err)
	pm, err := classifier.NewLogistic("genes_snps", -0.5, []float64{1.5}, nil)
	require.NoError(t, err)
	reg := classifier.NewRegistry(classifier.Pair{
		Antibiotic: "sulfamethoxazole", FullFamily: "full", PartialFamily: "genes_snps", Full: fm, Partial: pm,
	})

	h := services.NewCompositeHandler(set, reg, services.EngineOptions{}, logger.NewNop())
	return services.NewPredictionService(h, pub, services.ServiceOptions{CallbackQueue: "cb"}, logger.NewNop())
}

func jobBytes(t *testing.T, action string, data interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{
			"data": map[string]interface{}{
				"request_id":  "req-1",
				"action_type": action,
				"id":          "job-1",
				"data":        data,
			},
		},
	})
	require.NoError(t, err)
	return b
}

func TestGetProcessRunsPrediction(t *testing.T) {
	pub := &recordingPublisher{}
	proc := GetProcess(logger.NewNop(), newPredictionService(t, pub))

	data := model.PredictBusinessData{
		GeneTable: &model.TablePayload{Columns: []string{"Genome_ID", "sul1"}, Rows: [][]interface{}{{"query_genome", 1}}},
	}
	resp := proc(context.Background(), &client.Job{ID: "m1", Data: jobBytes(t, model.ActionTypePredict, data)})

	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)
	require.Len(t, pub.callbacks, 1)
	cb := pub.callbacks[0]
	assert.Equal(t, "job-1", cb.JobID)
	assert.Equal(t, "req-1", cb.RequestID)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Equal(t, "sulfamethoxazole", cb.Report.Predictions[0].Antibiotic)
}

func TestGetProcessActions(t *testing.T) {
	t.Run("unknown action is buried", func(t *testing.T) {
		proc := GetProcess(logger.NewNop(), newPredictionService(t, &recordingPublisher{}))
		resp := proc(context.Background(), &client.Job{Data: jobBytes(t, "order_diagnose", nil)})
		assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
	})

	t.Run("invalid json is buried", func(t *testing.T) {
		proc := GetProcess(logger.NewNop(), newPredictionService(t, &recordingPublisher{}))
		resp := proc(context.Background(), &client.Job{Data: []byte("{")})
		assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
	})

	t.Run("malformed tables still acked with failed callback", func(t *testing.T) {
		pub := &recordingPublisher{}
		proc := GetProcess(logger.NewNop(), newPredictionService(t, pub))
		resp := proc(context.Background(), &client.Job{Data: jobBytes(t, model.ActionTypePredict, model.PredictBusinessData{})})
		assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)
		require.Len(t, pub.callbacks, 1)
		assert.Equal(t, model.CallbackStatusFailed, pub.callbacks[0].Status)
	})

	t.Run("callback publish failure is released", func(t *testing.T) {
		proc := GetProcess(logger.NewNop(), newPredictionService(t, &recordingPublisher{err: errors.New("down")}))
		data := model.PredictBusinessData{
			GeneTable: &model.TablePayload{Columns: []string{"Genome_ID", "sul1"}, Rows: [][]interface{}{{"q", 1}}},
		}
		resp := proc(context.Background(), &client.Job{Data: jobBytes(t, model.ActionTypePredict, data)})
		assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
	})
}
