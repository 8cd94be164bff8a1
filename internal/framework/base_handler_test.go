package framework

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

func TestParseJob(t *testing.T) {
	raw := []byte(`{"payload":{"data":{"request_id":"req-1","action_type":"amr_predict","id":"job-1","data":{"job_id":"job-1","sample_id":"S1"}}}}`)

	var b BaseHandler
	require.NoError(t, b.ParseJob(context.Background(), raw))
	assert.Equal(t, &JobMeta{RequestID: "req-1", ActionType: "amr_predict", ID: "job-1"}, b.GetMeta())

	var payload struct {
		JobID    string `json:"job_id"`
		SampleID string `json:"sample_id"`
	}
	require.NoError(t, b.DecodeBizPayload(&payload))
	assert.Equal(t, "S1", payload.SampleID)

	ctx := b.ContextWithMeta(context.Background())
	assert.Equal(t, "req-1", ctx.Value("trace_id"))
	assert.Equal(t, "amr_predict", ctx.Value("action_type"))
}

func TestParseJobRejectsBadEnvelopes(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `not json`,
		"no data":        `{"payload":{}}`,
		"no action type": `{"payload":{"data":{"id":"job-1"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			var b BaseHandler
			err := b.ParseJob(context.Background(), []byte(raw))
			require.Error(t, err)
			assert.False(t, errorutil.Wrap(err).Retryable)
		})
	}
}

func TestDecodeBizPayloadMissing(t *testing.T) {
	var b BaseHandler
	require.NoError(t, b.ParseJob(context.Background(), []byte(`{"payload":{"data":{"action_type":"amr_predict"}}}`)))
	var out map[string]interface{}
	assert.Error(t, b.DecodeBizPayload(&out))
}

func TestWrapResponses(t *testing.T) {
	var b BaseHandler
	require.NoError(t, b.ParseJob(context.Background(), []byte(`{"payload":{"data":{"id":"job-1","action_type":"amr_predict"}}}`)))

	ok, err := b.WrapResponse(context.Background(), map[string]string{"status": "SUCCESS"})
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(ok, &resp))
	assert.True(t, resp.Processed)
	assert.Nil(t, resp.Error)

	failed, err := b.WrapErrorResponse(context.Background(), errorutil.MalformedTable("gene table is empty"))
	require.NoError(t, err)
	resp = Response{}
	require.NoError(t, json.Unmarshal(failed, &resp))
	assert.False(t, resp.Processed)
	assert.Equal(t, "MALFORMED_TABLE", resp.ErrorKind)
	assert.False(t, resp.Retryable)

	plain, err := b.WrapErrorResponse(context.Background(), errors.New("boom"))
	require.NoError(t, err)
	resp = Response{}
	require.NoError(t, json.Unmarshal(plain, &resp))
	assert.Equal(t, "boom", resp.Error)
	assert.Empty(t, resp.ErrorKind)
}

func TestPreProcessorStopsOnError(t *testing.T) {
	var calls []int
	step := func(i int, err error) ProcessorFunc {
		return func(ctx context.Context) error {
			calls = append(calls, i)
			return err
		}
	}
	p := NewPreProcessor(step(0, nil), step(1, errors.New("bad input")), step(2, nil))
	err := p.Run(context.Background())
	assert.ErrorContains(t, err, "processor[1] failed: bad input")
	assert.Equal(t, []int{0, 1}, calls)
}

func TestPreProcessorStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	p := NewPreProcessor(
		func(ctx context.Context) error { ran++; cancel(); return nil },
		func(ctx context.Context) error { ran++; return nil },
	)
	err := p.Run(ctx)
	assert.ErrorIs(t, err, errorutil.ErrCancelled)
	assert.Equal(t, 1, ran)
}
