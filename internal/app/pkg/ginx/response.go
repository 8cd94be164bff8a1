package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// CodeProcessing 预测仍在进行中（Smart Wait 超时）
const CodeProcessing = 3001

// Response 统一响应结构：{"meta": {...}, "data": ...}
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 响应码和错误信息
type Meta struct {
	Code    int           `json:"code" example:"200"`
	Message string        `json:"message" example:"OK"`
	Kind    string        `json:"kind,omitempty" example:"MALFORMED_TABLE"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 单个字段的校验错误
type ErrorDetail struct {
	Path string `json:"path" example:"sample_id"`
	Info string `json:"info" example:"sample_id is required"`
}

// ProcessingData 预测未完成时返回的轮询信息
type ProcessingData struct {
	PredictionID string `json:"prediction_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status       string `json:"status" example:"PROCESSING"`
	PollURL      string `json:"poll_url" example:"/api/v1/predictions/550e8400-e29b-41d4-a716-446655440000"`
}

func write(c *gin.Context, status int, meta Meta, data interface{}) {
	c.JSON(status, Response{Meta: meta, Data: data})
}

// Success 200
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Meta{Code: http.StatusOK, Message: "OK"}, data)
}

// Processing HTTP 200 + meta.code 3001，客户端按 poll_url 轮询
func Processing(c *gin.Context, predictionID, pollURL string) {
	write(c, http.StatusOK, Meta{
		Code:    CodeProcessing,
		Message: "Prediction is running, please poll for results",
	}, ProcessingData{
		PredictionID: predictionID,
		Status:       "PROCESSING",
		PollURL:      pollURL,
	})
}

// Error 指定 HTTP 状态码的错误响应
func Error(c *gin.Context, httpCode int, message string) {
	write(c, httpCode, Meta{Code: httpCode, Message: message}, nil)
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// Fail 按 errorutil 分类输出错误
// Code 不是合法 HTTP 状态码时按 500 处理；未分类的 5xx 错误不返回原始信息
func Fail(c *gin.Context, err error) {
	e := errorutil.UnWrapResponse(err)
	if e == nil {
		InternalError(c, "internal error")
		return
	}
	status := e.Code
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	msg := e.Message
	if e.Kind == "" && status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	write(c, status, Meta{Code: status, Message: msg, Kind: string(e.Kind)}, nil)
}

// BadRequestWithValidation 绑定失败：校验错误逐字段展开，其余（如 JSON 语法错误）原样返回
func BadRequestWithValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(c, err.Error())
		return
	}
	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ErrorDetail{Path: fe.Field(), Info: validationMessage(fe)})
	}
	write(c, http.StatusBadRequest, Meta{
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
		Details: details,
	}, nil)
}

var validationTemplates = map[string]string{
	"min":              " must be at least ",
	"max":              " must be at most ",
	"gte":              " must be greater than or equal to ",
	"required_without": " is required when missing: ",
}

func validationMessage(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return fe.Field() + " is required"
	}
	if tpl, ok := validationTemplates[fe.Tag()]; ok {
		return fe.Field() + tpl + fe.Param()
	}
	return fe.Field() + " is invalid"
}
