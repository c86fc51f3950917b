// Package ctxkeys holds the context keys shared by the middleware, the
// handlers and the execution runtime.
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	executionIDKey contextKey = "execution_id"
	teamIDKey      contextKey = "team_id"
	subjectKey     contextKey = "subject"
)

// WithRequestID 设置 RequestID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 获取 RequestID
func RequestID(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// WithExecution 设置执行所属的团队与执行 ID
func WithExecution(ctx context.Context, teamID, executionID string) context.Context {
	ctx = context.WithValue(ctx, teamIDKey, teamID)
	return context.WithValue(ctx, executionIDKey, executionID)
}

// ExecutionID 获取 ExecutionID
func ExecutionID(ctx context.Context) (string, bool) {
	return stringValue(ctx, executionIDKey)
}

// TeamID 获取 TeamID
func TeamID(ctx context.Context) (string, bool) {
	return stringValue(ctx, teamIDKey)
}

// WithSubject 设置认证主体（JWT sub 或 API Key 前缀）
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject 获取认证主体
func Subject(ctx context.Context) (string, bool) {
	return stringValue(ctx, subjectKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
