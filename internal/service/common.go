package service

import (
	"errors"
	"strings"

	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/types"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// storeError 将存储层错误转换为 API 错误
func storeError(err error, kind, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return types.NewNotFoundError(kind, id)
	}
	if _, ok := types.AsError(err); ok {
		return err
	}
	return types.NewInternalError("storage operation failed", err)
}

// invalidConfig 配置不合法
func invalidConfig(err error) *types.Error {
	return types.NewError(types.ErrInvalidConfig, "invalid team configuration: "+err.Error()).
		WithCause(err)
}

// splitErrors 展开 errors.Join 的结果
func splitErrors(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitErrors(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func clampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
