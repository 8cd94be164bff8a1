package model

// Report 单个样本的耐药预测报告
type Report struct {
	JobID          string             `json:"job_id"`
	SampleID       string             `json:"sample_id"`
	Status         string             `json:"status"` // completed/partial
	Timestamps     Timestamps         `json:"timestamps"`
	QualityMetrics QualityMetrics     `json:"quality_metrics"`
	Predictions    []AntibioticResult `json:"predictions"`
	ModelMetadata  ModelMetadata      `json:"model_metadata"`
}

// Timestamps 处理时间
type Timestamps struct {
	SubmittedAt           string `json:"submitted_at"`
	CompletedAt           string `json:"completed_at"`
	ProcessingTimeSeconds int64  `json:"processing_time_seconds"`
}

// QualityMetrics 样本质量指标
type QualityMetrics struct {
	GenomeSizeMB     float64            `json:"genome_size_mb"`
	GenesDetected    int                `json:"genes_detected"`
	KmersMatched     int                `json:"kmers_matched"`
	SNPsDetected     int                `json:"snps_detected"`
	TemplateCoverage []TemplateCoverage `json:"template_coverage"`
}

// TemplateCoverage 单个特征模板的覆盖率
type TemplateCoverage struct {
	Family   string  `json:"family"`
	Matched  int     `json:"matched"`
	Total    int     `json:"total"`
	Coverage float64 `json:"coverage"`
}

// AntibioticResult 单个抗生素的预测结果
type AntibioticResult struct {
	Antibiotic         string          `json:"antibiotic"`
	Phenotype          string          `json:"phenotype,omitempty"`
	ProbabilityScore   float64         `json:"probability_score"`
	ConfidenceCategory string          `json:"confidence_category,omitempty"`
	ActionRequired     string          `json:"action_required,omitempty"`
	Consensus          string          `json:"consensus,omitempty"`
	Evidence           []Evidence      `json:"evidence"`
	ModelBreakdown     *ModelBreakdown `json:"model_breakdown,omitempty"`
	AttributionError   string          `json:"attribution_error,omitempty"`
	Error              *ResultError    `json:"error,omitempty"`
}

// Evidence 单个特征的贡献
type Evidence struct {
	Feature     string  `json:"feature"`
	Type        string  `json:"type"` // Gene/SNP/K-mer
	ImpactScore float64 `json:"impact_score"`
	Effect      string  `json:"effect"` // promotes_resistance/promotes_susceptibility
}

// ModelBreakdown 两个模型各自的判定
type ModelBreakdown struct {
	FullModel    ModelCall `json:"full_model"`
	PartialModel ModelCall `json:"partial_model"`
}

// ModelCall 单个模型的判定与耐药概率
type ModelCall struct {
	Family      string  `json:"family"`
	Prediction  string  `json:"prediction"`
	Probability float64 `json:"probability"`
}

// ResultError 单个抗生素失败标记
type ResultError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ModelMetadata 模型元信息
type ModelMetadata struct {
	PipelineVersion string `json:"pipeline_version"`
	TrainedDate     string `json:"trained_date"`
	TrainingSamples int    `json:"training_samples"`
	CardVersion     string `json:"card_version"`
	ReferenceGenome string `json:"reference_genome"`
}

// 报告状态常量
const (
	ReportStatusCompleted = "completed"
	ReportStatusPartial   = "partial"
)
