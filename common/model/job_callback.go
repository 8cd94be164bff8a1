package model

// PredictCallback 预测回调消息（标准化）
// 用于 worker → apiserver callback consumer 的消息传递
type PredictCallback struct {
	RequestID   string  `json:"request_id"`       // 对应请求的 request_id（链路追踪）
	JobID       string  `json:"job_id"`           // 预测任务 ID
	SampleID    string  `json:"sample_id"`        // 样本 ID
	Status      string  `json:"status"`           // 回调状态: SUCCESS / PARTIAL / FAILED
	Report      *Report `json:"report,omitempty"` // 预测报告（成功或部分成功时返回）
	Error       string  `json:"error,omitempty"`  // 错误信息（失败时返回）
	ErrorKind   string  `json:"error_kind,omitempty"`
	ProcessedAt int64   `json:"processed_at"` // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS" // 全部抗生素预测成功
	CallbackStatusPartial = "PARTIAL" // 部分抗生素失败
	CallbackStatusFailed  = "FAILED"  // 请求级失败
)
