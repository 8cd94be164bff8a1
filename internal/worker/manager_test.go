package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// publishingQueue 同时充当任务队列和回调发布者
type publishingQueue struct {
	fakeQueue
	mu        sync.Mutex
	callbacks map[string][]model.PredictCallback
}

func (q *publishingQueue) Publish(queue string, data []byte, ttl, delay uint32) error {
	var cb model.PredictCallback
	if err := json.Unmarshal(data, &cb); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.callbacks == nil {
		q.callbacks = make(map[string][]model.PredictCallback)
	}
	q.callbacks[queue] = append(q.callbacks[queue], cb)
	return nil
}

func (q *publishingQueue) callbackCount(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.callbacks[queue])
}

func testEngine(t *testing.T) *services.CompositeHandler {
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
	return services.NewCompositeHandler(set, reg, services.EngineOptions{}, logger.NewNop())
}

func predictJob(t *testing.T, id string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{
			"data": map[string]interface{}{
				"request_id":  "req-" + id,
				"action_type": model.ActionTypePredict,
				"id":          id,
				"data": model.PredictBusinessData{
					GeneTable: &model.TablePayload{
						Columns: []string{"Genome_ID", "sul1"},
						Rows:    [][]interface{}{{"query_genome", 1}},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return b
}

func TestManagerRunsConfiguredWorkers(t *testing.T) {
	q := &publishingQueue{}
	q.msgs = []*framework.Message{{ID: "m1", Queue: "amr_predict", Data: predictJob(t, "job-1")}}

	cfg := &config.Config{
		Lmstfy: config.LmstfyConfig{CallbackQueue: "amr_predict_callback"},
		Workers: []config.WorkerConfig{{
			QueueName:  "amr_predict",
			Subscriber: config.SubscriberConfig{Threads: 1, ErrorBackoff: time.Millisecond},
			Processor:  config.ProcessorConfig{Threads: 1, Timeout: 5 * time.Second},
		}},
		Engine: config.EngineConfig{WorkRoot: t.TempDir(), CleanupWorkDir: true},
	}
	m, err := newManager(testContext(t), cfg, testEngine(t), q, logger.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Start() }()

	require.Eventually(t, func() bool { return q.callbackCount("amr_predict_callback") == 1 }, 3*time.Second, 5*time.Millisecond)
	m.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("manager did not stop")
	}

	assert.Equal(t, int64(1), m.Stats()["amr_predict"].Received)
	assert.Equal(t, []string{"m1"}, q.acked)
}

func TestNewManagerRequiresCallbackQueue(t *testing.T) {
	cfg := &config.Config{Workers: []config.WorkerConfig{{Name: "w", QueueName: "amr_predict"}}}
	_, err := newManager(testContext(t), cfg, testEngine(t), &publishingQueue{}, logger.NewNop())
	assert.ErrorContains(t, err, "callback_queue")

	_, err = newManager(testContext(t), &config.Config{}, testEngine(t), &publishingQueue{}, logger.NewNop())
	assert.ErrorContains(t, err, "no workers")
}

// testContext mirrors testing.T.Context (Go 1.24+): the context is cancelled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
