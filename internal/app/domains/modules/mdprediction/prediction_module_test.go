package mdprediction

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

type recordingPublisher struct {
	queue string
	data  []byte
}

func (p *recordingPublisher) PublishJob(queue string, data []byte, ttl, delay uint32) (string, error) {
	p.queue = queue
	p.data = data
	return "lmstfy-1", nil
}

// channelNotifier 进程内的 Notifier 实现
type channelNotifier struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{subs: make(map[string]chan []byte)}
}

func (n *channelNotifier) ch(channel string) chan []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.subs[channel]
	if !ok {
		c = make(chan []byte, 1)
		n.subs[channel] = c
	}
	return c
}

func (n *channelNotifier) Publish(ctx context.Context, channel string, message []byte) error {
	n.ch(channel) <- message
	return nil
}

func (n *channelNotifier) Wait(ctx context.Context, channel string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case msg := <-n.ch(channel):
		return msg, nil
	case <-timeoutCtx.Done():
		return nil, timeoutCtx.Err()
	}
}

func TestPublishPredictJob(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewPredictionModule(pub, newChannelNotifier(), "amr_predict")

	p, err := etprediction.NewPrediction("p1", "req-1", &model.PredictBusinessData{SampleID: "S1", WorkDir: "/data/S1"})
	require.NoError(t, err)

	jobID, err := m.PublishPredictJob(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "lmstfy-1", jobID)
	assert.Equal(t, "amr_predict", pub.queue)

	var job model.PredictJob
	require.NoError(t, json.Unmarshal(pub.data, &job))
	assert.Equal(t, model.ActionTypePredict, job.Payload.Data.ActionType)
	assert.Equal(t, "p1", job.Payload.Data.ID)
	assert.Equal(t, "req-1", job.Payload.Data.RequestID)
	assert.Equal(t, "p1", job.Payload.Data.Data.JobID)
	assert.Equal(t, "/data/S1", job.Payload.Data.Data.WorkDir)
}

func TestNotifyAndWait(t *testing.T) {
	m := NewPredictionModule(&recordingPublisher{}, newChannelNotifier(), "amr_predict")

	require.NoError(t, m.NotifyResult(context.Background(), &model.PredictCallback{
		JobID:  "p1",
		Status: model.CallbackStatusSuccess,
		Report: &model.Report{JobID: "p1"},
	}))

	cb, err := m.WaitForResult(context.Background(), "p1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Equal(t, "p1", cb.Report.JobID)

	_, err = m.WaitForResult(context.Background(), "p2", 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResultChannel(t *testing.T) {
	assert.Equal(t, "prediction:result:abc", ResultChannel("abc"))
}
