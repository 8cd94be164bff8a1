package etprediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/common/model"
)

func TestNewPrediction(t *testing.T) {
	_, err := NewPrediction("", "r1", &model.PredictBusinessData{SampleID: "S1"})
	assert.ErrorIs(t, err, ErrInvalidPredictionID)

	_, err = NewPrediction("p1", "r1", &model.PredictBusinessData{})
	assert.ErrorIs(t, err, ErrInvalidSampleID)

	p, err := NewPrediction("p1", "r1", &model.PredictBusinessData{SampleID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, p.Status)
	assert.Equal(t, "p1", p.Request.JobID)
	assert.NotEmpty(t, p.Request.SubmittedAt)
	assert.False(t, p.Status.Finished())
}

func TestApplyCallback(t *testing.T) {
	newPrediction := func() *Prediction {
		p, err := NewPrediction("p1", "r1", &model.PredictBusinessData{SampleID: "S1"})
		require.NoError(t, err)
		return p
	}

	t.Run("success", func(t *testing.T) {
		p := newPrediction()
		require.NoError(t, p.ApplyCallback(&model.PredictCallback{
			Status: model.CallbackStatusSuccess,
			Report: &model.Report{Status: model.ReportStatusCompleted},
		}))
		assert.Equal(t, StatusCompleted, p.Status)
		assert.True(t, p.Status.Finished())
	})

	t.Run("partial report", func(t *testing.T) {
		p := newPrediction()
		require.NoError(t, p.ApplyCallback(&model.PredictCallback{
			Status: model.CallbackStatusPartial,
			Report: &model.Report{Status: model.ReportStatusPartial},
		}))
		assert.Equal(t, StatusPartial, p.Status)
	})

	t.Run("failed", func(t *testing.T) {
		p := newPrediction()
		require.NoError(t, p.ApplyCallback(&model.PredictCallback{
			Status:    model.CallbackStatusFailed,
			Error:     "no Genome_ID column",
			ErrorKind: "MALFORMED_TABLE",
		}))
		assert.Equal(t, StatusFailed, p.Status)
		assert.Equal(t, "MALFORMED_TABLE", p.ErrorKind)
		assert.Nil(t, p.Report)
	})

	t.Run("success without report", func(t *testing.T) {
		p := newPrediction()
		require.NoError(t, p.ApplyCallback(&model.PredictCallback{Status: model.CallbackStatusSuccess}))
		assert.Equal(t, StatusFailed, p.Status)
	})
}
