package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfyx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, predictionService *services.PredictionService) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		base := &framework.BaseHandler{}
		if err := base.ParseJob(ctx, lmstfyJob.Data); err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: %v", err)
			return lmstfyx.Bury(err)
		}
		meta := base.GetMeta()

		// RequestID 为空则生成一个
		if meta.RequestID == "" {
			meta.RequestID = uuid.New().String()
		}

		// 2. 注入 TraceID 到 Context
		ctx = base.ContextWithMeta(ctx)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 从 HandlerMap 获取 Handler
		handlerFunc, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return lmstfyx.Bury(errorutil.NonRetriable("unknown action_type: " + meta.ActionType))
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = lmstfyx.Bury(fmt.Errorf("handler panic: %v", r))
				}
			}()

			handler, err := handlerFunc(ctx, base, predictionService)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = lmstfyx.Bury(err)
				return
			}

			data, err := handler.Handle(ctx)
			resp = doJobReport(ctx, data, err, log)
		}()

		// 5. 记录处理时长
		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))

		return resp
	}
}

// doJobReport 生成 JobResp：成功 ACK；可重试错误 Release；其余 Bury
func doJobReport(ctx context.Context, data []byte, err error, log logger.Logger) *lmstfyx.JobResp {
	resp := lmstfyx.FromError(data, err)
	switch resp.Action {
	case lmstfyx.JobRespStatusRelease:
		log.Warnf(ctx, "[doJobReport] retryable error: %v", err)
	case lmstfyx.JobRespStatusBury:
		log.Errorf(ctx, "[doJobReport] non-retryable error: %v", err)
	}
	return resp
}
