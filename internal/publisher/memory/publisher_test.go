package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "lookup.completed", map[string]string{"assembly": "14"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "snapshot.completed", "payload")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "lookup.completed", msgs[0].Topic)

	msgs[0].Topic = "modified"
	assert.Equal(t, "lookup.completed", pub.Messages()[0].Topic)

	assert.Equal(t, []any{"payload"}, pub.ByTopic("snapshot.completed"))
	assert.Empty(t, pub.ByTopic("missing"))
}
