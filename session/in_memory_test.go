package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/core"
)

// Interface compliance (compile-time assertion)
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_LoadUnknownIsEmpty(t *testing.T) {
	s := NewInMemoryStore()

	st, err := s.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, s.IDs())
}

func TestInMemoryStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	state := core.NewConversationState(core.NewUserMessage("hi"), core.NewAssistantMessage("hello"))
	require.NoError(t, s.Save(ctx, "s1", state))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state.Messages, got.Messages)

	_, ok := s.UpdatedAt("s1")
	assert.True(t, ok)
	assert.Equal(t, []string{"s1"}, s.IDs())

	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))

	got, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestInMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	state := core.NewConversationState(core.NewUserMessage("original"))
	require.NoError(t, s.Save(ctx, "s1", state))

	state.Messages[0].Content = "mutated after save"

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Messages[0].Content)

	got.Messages[0].Content = "mutated after load"

	again, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Messages[0].Content)
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewInMemoryStore()
	assert.ErrorIs(t, s.Save(ctx, "s1", core.NewConversationState()), context.Canceled)
	_, err := s.Load(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, "s1"), context.Canceled)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%4)
			_ = s.Save(ctx, id, core.NewConversationState(core.NewUserMessage(id)))
			_, _ = s.Load(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []string{"s0", "s1", "s2", "s3"}, s.IDs())
}
