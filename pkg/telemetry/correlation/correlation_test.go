package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	assert.Len(t, id, 26)
	assert.Equal(t, id, ExtractCorrelationID(ctx))

	again, same := EnsureCorrelationID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, ExtractCorrelationID(again))
}

func TestContextWithCorrelationIDIgnoresEmpty(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "")
	assert.Equal(t, "", ExtractCorrelationID(ctx))
}
