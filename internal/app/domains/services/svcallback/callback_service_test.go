package svcallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

type fakeNotifier struct {
	sent []*model.PredictCallback
	err  error
}

func (n *fakeNotifier) NotifyResult(ctx context.Context, cb *model.PredictCallback) error {
	n.sent = append(n.sent, cb)
	return n.err
}

func seed(t *testing.T, repo *rpprediction.MemoryRepository, id string) {
	t.Helper()
	p, err := etprediction.NewPrediction(id, "req-"+id, &model.PredictBusinessData{SampleID: "S1"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), p))
}

func TestHandleCallbackPersistsAndNotifies(t *testing.T) {
	repo := rpprediction.NewMemoryRepository()
	seed(t, repo, "p1")
	notifier := &fakeNotifier{}
	svc := NewCallbackService(repo, notifier, logger.NewNop())

	cb := &model.PredictCallback{
		JobID:  "p1",
		Status: model.CallbackStatusPartial,
		Report: &model.Report{JobID: "p1", Status: model.ReportStatusPartial},
	}
	require.NoError(t, svc.HandleCallback(context.Background(), cb))

	got, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, etprediction.StatusPartial, got.Status)
	require.NotNil(t, got.Report)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "p1", notifier.sent[0].JobID)
}

func TestHandleCallbackFailedStatus(t *testing.T) {
	repo := rpprediction.NewMemoryRepository()
	seed(t, repo, "p1")
	svc := NewCallbackService(repo, &fakeNotifier{}, logger.NewNop())

	require.NoError(t, svc.HandleCallback(context.Background(), &model.PredictCallback{
		JobID:     "p1",
		Status:    model.CallbackStatusFailed,
		Error:     "gene table missing",
		ErrorKind: string(errorutil.KindMalformedTable),
	}))

	got, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, etprediction.StatusFailed, got.Status)
	assert.Equal(t, "MALFORMED_TABLE", got.ErrorKind)
}

func TestHandleCallbackUnknownPrediction(t *testing.T) {
	svc := NewCallbackService(rpprediction.NewMemoryRepository(), &fakeNotifier{}, logger.NewNop())

	err := svc.HandleCallback(context.Background(), &model.PredictCallback{JobID: "nope", Status: model.CallbackStatusSuccess})
	require.Error(t, err)
	assert.False(t, errorutil.Wrap(err).Retryable)
}

func TestNotifyFailureIsNotFatal(t *testing.T) {
	repo := rpprediction.NewMemoryRepository()
	seed(t, repo, "p1")
	svc := NewCallbackService(repo, &fakeNotifier{err: errors.New("redis down")}, logger.NewNop())

	err := svc.HandleCallback(context.Background(), &model.PredictCallback{
		JobID:  "p1",
		Status: model.CallbackStatusSuccess,
		Report: &model.Report{Status: model.ReportStatusCompleted},
	})
	assert.NoError(t, err)
}

func TestParseCallback(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"job_id":"p1","status":"SUCCESS"}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", cb.JobID)

	_, err = ParseCallback([]byte(`{"status":"SUCCESS"}`))
	assert.ErrorContains(t, err, "job_id")

	_, err = ParseCallback([]byte(`{"job_id":"p1"}`))
	assert.ErrorContains(t, err, "status")

	_, err = ParseCallback([]byte(`not json`))
	assert.Error(t, err)
}
