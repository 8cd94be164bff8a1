package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

type published struct {
	queue string
	data  []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(queue string, data []byte, ttl, delay uint32) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{queue: queue, data: data})
	return nil
}

func inlineData(jobID string) *model.PredictBusinessData {
	return &model.PredictBusinessData{
		JobID: jobID,
		GeneTable: &model.TablePayload{
			Columns: []string{"Genome_ID", "blaTEM-1", "sul1"},
			Rows:    [][]interface{}{{"query_genome", float64(1), float64(0)}},
		},
		SNPTable: &model.TablePayload{
			Columns: []string{"Genome_ID", "NC_003197_10_A>G"},
			Rows:    [][]interface{}{{"query_genome", float64(1)}},
		},
	}
}

func newService(t *testing.T, pub Publisher, opts ServiceOptions) *PredictionService {
	f := newFixture(t)
	h := NewCompositeHandler(f.set, classifier.NewRegistry(f.pair("pefoxacin")), EngineOptions{}, logger.NewNop())
	return NewPredictionService(h, pub, opts, logger.NewNop())
}

func TestExecutePredictionPublishesCallback(t *testing.T) {
	pub := &fakePublisher{}
	root := t.TempDir()
	svc := newService(t, pub, ServiceOptions{CallbackQueue: "amr_predict_callback", WorkRoot: root, CleanupWorkDir: true})

	cb, err := svc.ExecutePrediction(context.Background(), &PredictRequest{RequestID: "req-1", Data: inlineData("job-1")})
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Equal(t, "query_genome", cb.SampleID)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "amr_predict_callback", pub.sent[0].queue)
	var got model.PredictCallback
	require.NoError(t, json.Unmarshal(pub.sent[0].data, &got))
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "job-1", got.JobID)
	require.NotNil(t, got.Report)
	assert.Equal(t, "pefoxacin", got.Report.Predictions[0].Antibiotic)

	// 工作目录已清理
	_, statErr := os.Stat(filepath.Join(root, "job-1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecutePredictionKeepsWorkDir(t *testing.T) {
	root := t.TempDir()
	svc := newService(t, &fakePublisher{}, ServiceOptions{WorkRoot: root})

	_, err := svc.ExecutePrediction(context.Background(), &PredictRequest{Data: inlineData("job-2")})
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "job-2", "gene_presence_production.csv"))
	assert.NoError(t, statErr)
}

func TestExecutePredictionFromWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gene_presence_production.csv"),
		[]byte("Genome_ID,blaTEM-1\nquery_genome,1\n"), 0o644))

	pub := &fakePublisher{}
	svc := newService(t, pub, ServiceOptions{})
	cb, err := svc.ExecutePrediction(context.Background(), &PredictRequest{
		Data: &model.PredictBusinessData{JobID: "job-3", WorkDir: dir},
	})
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Equal(t, 1, cb.Report.QualityMetrics.GenesDetected)
	assert.Equal(t, 0, cb.Report.QualityMetrics.KmersMatched)
}

func TestExecutePredictionWorkDirUnderRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "S1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "S1", "gene_presence_production.csv"),
		[]byte("Genome_ID,blaTEM-1\nS1,1\n"), 0o644))
	svc := newService(t, &fakePublisher{}, ServiceOptions{WorkRoot: root})

	cb, err := svc.ExecutePrediction(context.Background(), &PredictRequest{
		Data: &model.PredictBusinessData{JobID: "job-6", WorkDir: "S1"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Equal(t, 1, cb.Report.QualityMetrics.GenesDetected)
}

func TestExecutePredictionRejectsWorkDirOutsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "gene_presence_production.csv"),
		[]byte("Genome_ID,blaTEM-1\nS1,1\n"), 0o644))
	svc := newService(t, &fakePublisher{}, ServiceOptions{WorkRoot: root})

	for _, dir := range []string{outside, "../" + filepath.Base(outside), "S1/../../etc"} {
		cb, err := svc.ExecutePrediction(context.Background(), &PredictRequest{
			Data: &model.PredictBusinessData{JobID: "job-7", WorkDir: dir},
		})
		require.NoError(t, err, dir)
		assert.Equal(t, model.CallbackStatusFailed, cb.Status, dir)
		assert.Equal(t, "MALFORMED_TABLE", cb.ErrorKind, dir)
		assert.Nil(t, cb.Report, dir)
	}
}

func TestExecutePredictionMalformedSendsFailedCallback(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub, ServiceOptions{})

	cb, err := svc.ExecutePrediction(context.Background(), &PredictRequest{Data: &model.PredictBusinessData{JobID: "job-4"}})
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusFailed, cb.Status)
	assert.Equal(t, "MALFORMED_TABLE", cb.ErrorKind)
	assert.Nil(t, cb.Report)
	assert.Len(t, pub.sent, 1)
}

func TestExecutePredictionPublishFailureIsRetryable(t *testing.T) {
	svc := newService(t, &fakePublisher{err: errors.New("connection refused")}, ServiceOptions{})

	_, err := svc.ExecutePrediction(context.Background(), &PredictRequest{Data: inlineData("job-5")})
	require.Error(t, err)
	assert.True(t, errorutil.Wrap(err).Retryable)
}
