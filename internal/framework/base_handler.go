package framework

import (
	"context"
	"encoding/json"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// BaseHandler 抽象基类
// 负责解析任务信封、包装响应，不包含业务流程控制
type BaseHandler struct {
	meta       *JobMeta        // Job 元信息
	bizPayload json.RawMessage // 业务数据（payload.data.data），由具体 Handler 解码
	output     interface{}     // 最终输出结果
	resulter   Resulter        // 结果处理器（业务提供）
}

// Job 任务信封：{"payload":{"data":{request_id, action_type, org_id, id, data}}}
type Job struct {
	Payload *JobPayload `json:"payload"`
}

// JobPayload 信封第二层
type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

// JobPayloadData 元信息和业务数据
type JobPayloadData struct {
	RequestID  string          `json:"request_id"`
	ActionType string          `json:"action_type"`
	OrgID      string          `json:"org_id"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

// JobMeta Job 元信息
type JobMeta struct {
	RequestID  string
	ActionType string
	OrgID      string
	ID         string
}

// Response 标准响应结构
type Response struct {
	Error     interface{} `json:"error"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Result    interface{} `json:"result"`
	Processed bool        `json:"processed"`
	Meta      *JobMeta    `json:"meta,omitempty"`
}

// ParseJob 解析任务信封，结构错误不可重试
func (b *BaseHandler) ParseJob(ctx context.Context, rawData []byte) error {
	var job Job
	if err := json.Unmarshal(rawData, &job); err != nil {
		return errorutil.NonRetriableWithDetails("unmarshal job failed", err.Error())
	}
	if job.Payload == nil || job.Payload.Data == nil {
		return errorutil.NonRetriable("invalid job structure: payload.data is missing")
	}

	data := job.Payload.Data
	if data.ActionType == "" {
		return errorutil.NonRetriable("invalid job structure: action_type is missing")
	}
	b.meta = &JobMeta{
		RequestID:  data.RequestID,
		ActionType: data.ActionType,
		OrgID:      data.OrgID,
		ID:         data.ID,
	}
	b.bizPayload = data.Data
	return nil
}

// DecodeBizPayload 把业务数据解码到 out
func (b *BaseHandler) DecodeBizPayload(out interface{}) error {
	if len(b.bizPayload) == 0 || string(b.bizPayload) == "null" {
		return errorutil.NonRetriable("job has no business data")
	}
	if err := json.Unmarshal(b.bizPayload, out); err != nil {
		return errorutil.NonRetriableWithDetails("decode business data failed", err.Error())
	}
	return nil
}

// ContextWithMeta 把链路信息写入 Context（日志字段 trace_id / action_type）
func (b *BaseHandler) ContextWithMeta(ctx context.Context) context.Context {
	if b.meta == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, "trace_id", b.meta.RequestID)
	return context.WithValue(ctx, "action_type", b.meta.ActionType)
}

// WrapResponse 包装标准响应
func (b *BaseHandler) WrapResponse(ctx context.Context, output interface{}) ([]byte, error) {
	data, err := json.Marshal(&Response{
		Result:    output,
		Processed: true,
		Meta:      b.meta,
	})
	if err != nil {
		return nil, errorutil.NonRetriableWithDetails("marshal response failed", err.Error())
	}
	return data, nil
}

// WrapErrorResponse 包装错误响应，带上错误分类
func (b *BaseHandler) WrapErrorResponse(ctx context.Context, err error) ([]byte, error) {
	wrapped := errorutil.Wrap(err)
	data, marshalErr := json.Marshal(&Response{
		Error:     err.Error(),
		ErrorKind: string(wrapped.Kind),
		Retryable: wrapped.Retryable,
		Processed: false,
		Meta:      b.meta,
	})
	if marshalErr != nil {
		return nil, errorutil.NonRetriableWithDetails("marshal error response failed", marshalErr.Error())
	}
	return data, nil
}

// GetMeta 获取 meta
func (b *BaseHandler) GetMeta() *JobMeta {
	return b.meta
}

// SetOutput 设置输出
func (b *BaseHandler) SetOutput(output interface{}) {
	b.output = output
}

// GetOutput 获取输出
func (b *BaseHandler) GetOutput() interface{} {
	return b.output
}

// SetResulter 设置结果处理器
func (b *BaseHandler) SetResulter(resulter Resulter) {
	b.resulter = resulter
}

// GetResulter 获取结果处理器
func (b *BaseHandler) GetResulter() Resulter {
	return b.resulter
}
