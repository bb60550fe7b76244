package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_Connection(t *testing.T) {
	ctx := WithConnection(context.Background(), Connection{ID: 7, Remote: "10.0.0.5:41234"})

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "conn.id", fields[0].Key)
	assert.Equal(t, int64(7), fields[0].Integer)
	assert.Equal(t, "conn.remote", fields[1].Key)
	assert.Equal(t, "10.0.0.5:41234", fields[1].String)
}

func TestContextFields_ConnectionWithoutRemote(t *testing.T) {
	ctx := WithConnection(context.Background(), Connection{ID: 1})

	fields := ContextFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "conn.id", fields[0].Key)
}

func TestContextFields_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated on purpose
	fields := ContextFields(nil)
	assert.Empty(t, fields)
}

func TestConnectionFromContext(t *testing.T) {
	_, ok := ConnectionFromContext(context.Background())
	assert.False(t, ok)

	want := Connection{ID: 42, Remote: "127.0.0.1:9999"}
	got, ok := ConnectionFromContext(WithConnection(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestConnection_AppearsInLogs(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithConnection(context.Background(), Connection{ID: 9, Remote: "127.0.0.1:1234"})

	tl.Debug(ctx, "write failed")

	tl.AssertField(t, "write failed", "conn.id", uint64(9))
	tl.AssertField(t, "write failed", "conn.remote", "127.0.0.1:1234")
}

func TestLogger_InContext(t *testing.T) {
	logger := NewNop()
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestLogger_FromContextMissing(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
}

func TestLogger_FromContextNilLogger(t *testing.T) {
	ctx := WithLogger(context.Background(), nil)
	require.NotNil(t, FromContext(ctx))
}
