package model

// ActionTypePredict 预测任务的路由键
const ActionTypePredict = "amr_predict"

// PredictJob 耐药预测任务消息（标准化）
// 用于 apiserver → worker 的消息传递
type PredictJob struct {
	Payload PredictPayload `json:"payload"`
}

// PredictPayload Job 负载
type PredictPayload struct {
	Data PredictData `json:"data"`
}

// PredictData Job 数据层
type PredictData struct {
	// 元信息
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	OrgID      string `json:"org_id"`      // 组织 ID
	ActionType string `json:"action_type"` // 动作类型，固定值 "amr_predict"
	ID         string `json:"id"`          // 任务 ID

	// 业务数据
	Data PredictBusinessData `json:"data"`
}

// PredictBusinessData 预测业务数据
// 特征表可以内联传入，也可以通过 work_dir 指向提取流水线的输出目录
type PredictBusinessData struct {
	JobID           string        `json:"job_id"`
	SampleID        string        `json:"sample_id,omitempty"`
	GenomeSizeBytes int64         `json:"genome_size_bytes,omitempty"`
	SubmittedAt     string        `json:"submitted_at,omitempty"`
	WorkDir         string        `json:"work_dir,omitempty"`
	GeneTable       *TablePayload `json:"gene_table,omitempty"`
	KmerTable       *TablePayload `json:"kmer_table,omitempty"`
	SNPTable        *TablePayload `json:"snp_table,omitempty"`
}

// TablePayload 宽表（第一列或 Genome_ID 列为样本标识）
type TablePayload struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}
