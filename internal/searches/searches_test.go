package searches

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWithoutBackend(t *testing.T) {
	r := New(nil)
	assert.False(t, r.Enabled())

	err := r.Record(context.Background(), "u1", "batman")
	require.NoError(t, err, "recording without a backend must be a silent no-op")

	terms, err := r.Recent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, terms)
	assert.NotNil(t, terms, "an empty list, not nil, so it serializes as []")
}

func TestRecorderIgnoresBlankInput(t *testing.T) {
	r := New(nil)
	assert.NoError(t, r.Record(context.Background(), "", "term"))
	assert.NoError(t, r.Record(context.Background(), "u1", "   "))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	// Port 1 should refuse connections everywhere tests run.
	client := NewRedisClient("127.0.0.1:1", "")
	assert.Nil(t, client, "an unreachable server must yield a nil client, not an error-prone one")
}
