package predict

import "github.com/reeta-042/salmonella-amr-api/common/model"

// PredictResultData 业务处理结果
type PredictResultData struct {
	Callback    *model.PredictCallback
	ProcessedAt int64
}

// PredictOutput 最终输出结构
type PredictOutput struct {
	JobID       string        `json:"job_id"`
	Status      string        `json:"status"`
	Report      *model.Report `json:"report,omitempty"`
	Error       string        `json:"error,omitempty"`
	ProcessedAt int64         `json:"processed_at"`
}
