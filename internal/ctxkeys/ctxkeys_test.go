package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	_, ok := RequestID(context.Background())
	assert.False(t, ok)

	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestExecution(t *testing.T) {
	ctx := WithExecution(context.Background(), "team-1", "exec-1")

	teamID, ok := TeamID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "team-1", teamID)

	execID, ok := ExecutionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "exec-1", execID)
}

func TestSubject(t *testing.T) {
	ctx := WithSubject(context.Background(), "user-42")
	sub, ok := Subject(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-42", sub)
}
