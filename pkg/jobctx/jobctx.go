// Package jobctx 携带单个任务的作用域信息（工作目录、任务 ID）。
//
// 外部工具调用和表文件读取都通过 Context 中的工作目录解析路径，
// 进程当前目录在任何请求中都不会被修改。
package jobctx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

type ctxKey int

const (
	workDirKey ctxKey = iota
)

// ErrNoWorkDir Context 中没有工作目录
var ErrNoWorkDir = errors.New("jobctx: no work dir in context")

// ErrInvalidJobID 任务 ID 不能作为单级目录名
var ErrInvalidJobID = errors.New("jobctx: invalid job id")

// ErrOutsideRoot 目录不在工作根目录之下
var ErrOutsideRoot = errors.New("jobctx: work dir outside work root")

// WithWorkDir 绑定任务工作目录
func WithWorkDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, workDirKey, dir)
}

// WorkDir 获取任务工作目录
func WorkDir(ctx context.Context) (string, bool) {
	dir, ok := ctx.Value(workDirKey).(string)
	return dir, ok && dir != ""
}

// Path 把相对路径解析到任务工作目录下；绝对路径原样返回
func Path(ctx context.Context, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, ok := WorkDir(ctx)
	if !ok {
		return "", ErrNoWorkDir
	}
	return filepath.Join(dir, name), nil
}

// Within 把 dir 解析到 root 之下：相对路径相对 root，绝对路径必须位于 root 内
func Within(root, dir string) (string, error) {
	root = filepath.Clean(root)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return dir, nil
}

// Create 在 root 下创建 root/<jobID> 并返回绑定后的 Context 和清理函数
func Create(ctx context.Context, root, jobID string) (context.Context, func() error, error) {
	if jobID == "" || jobID == "." || jobID == ".." || filepath.Base(jobID) != jobID {
		return ctx, nil, ErrInvalidJobID
	}
	dir := filepath.Join(root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ctx, nil, err
	}
	cleanup := func() error {
		return os.RemoveAll(dir)
	}
	return WithWorkDir(ctx, dir), cleanup, nil
}
