package lmstfyx

import (
	"context"

	"github.com/bitleak/lmstfy/client"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Proc 业务处理函数类型（GetProcess 的函数签名）
type Proc func(ctx context.Context, job *client.Job) *JobResp

// JobRespStatus 消息处理结果状态
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理成功，ACK 消息
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 需要重试，不 ACK，TTR 到期后重新投递
	JobRespStatusRelease
	// JobRespStatusBury 不可重试，ACK 并记录错误
	JobRespStatusBury
)

// String 日志用
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "success"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobRespStatus // 处理动作
	Data   []byte        // 响应数据（可选，用于日志）
	Err    error         // Release / Bury 的原因
}

// Success 处理成功
func Success(data []byte) *JobResp {
	return &JobResp{Action: JobRespStatusSuccess, Data: data}
}

// Bury 丢弃消息
func Bury(err error) *JobResp {
	return &JobResp{Action: JobRespStatusBury, Err: err}
}

// FromError 按错误分类决定动作：nil 成功；可重试 Release；其余 Bury
func FromError(data []byte, err error) *JobResp {
	if err == nil {
		return Success(data)
	}
	if errorutil.Wrap(err).Retryable {
		return &JobResp{Action: JobRespStatusRelease, Data: data, Err: err}
	}
	return &JobResp{Action: JobRespStatusBury, Data: data, Err: err}
}
