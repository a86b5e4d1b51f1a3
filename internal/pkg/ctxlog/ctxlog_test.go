package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_AppendsAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), base.With("request_id", "req-1"))
	ctx, logger := With(ctx, "queue_id", "PQ-20240120-001")

	assert.Same(t, logger, FromContext(ctx))

	FromContext(ctx).Info("updated")
	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "queue_id=PQ-20240120-001")
	assert.Contains(t, out, "msg=updated")
}
