package lintas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndRelease(t *testing.T) {
	r := NewRequestRegistry()

	h := r.Register(context.Background(), "conv-1")
	require.True(t, r.Has("conv-1"))
	assert.Equal(t, "conv-1", h.ID())
	assert.False(t, h.Canceled())

	h.Release()
	assert.False(t, r.Has("conv-1"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryPreemptsSameID(t *testing.T) {
	r := NewRequestRegistry()
	var scopes []string
	r.SetCancelListener(func(scope, id string) {
		scopes = append(scopes, scope+":"+id)
	})

	first := r.Register(context.Background(), "ai-query-top")
	second := r.Register(context.Background(), "ai-query-top")

	select {
	case <-first.Done():
	default:
		t.Fatal("first handle should be canceled when the id is re-registered")
	}
	assert.False(t, second.Canceled())
	assert.ErrorIs(t, context.Cause(first.Context()), ErrCanceled)
	assert.Equal(t, []string{"preempt:ai-query-top"}, scopes)

	// The superseded handle settling late must not evict its successor.
	first.Release()
	assert.True(t, r.Has("ai-query-top"))

	second.Release()
	assert.False(t, r.Has("ai-query-top"))
}

func TestRegistryCancel(t *testing.T) {
	r := NewRequestRegistry()
	h := r.Register(context.Background(), "a")

	assert.True(t, r.Cancel("a"))
	assert.True(t, h.Canceled())
	assert.False(t, r.Has("a"))

	assert.False(t, r.Cancel("a"), "second cancel is a no-op")
	assert.False(t, r.Cancel("missing"))
}

func TestRegistryCancelByPrefix(t *testing.T) {
	r := NewRequestRegistry()
	a := r.Register(context.Background(), "conversation-42-messages-1")
	b := r.Register(context.Background(), "conversation-42-messages-2")
	c := r.Register(context.Background(), "conversation-7-messages-1")

	ids := r.CancelByPrefix("conversation-42-")
	assert.Equal(t, []string{"conversation-42-messages-1", "conversation-42-messages-2"}, ids)
	assert.True(t, a.Canceled())
	assert.True(t, b.Canceled())
	assert.False(t, c.Canceled())
	assert.Equal(t, []string{"conversation-7-messages-1"}, r.IDs())

	assert.Empty(t, r.CancelByPrefix("nothing-"))
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewRequestRegistry()
	var handles []*Handle
	for i := 0; i < 5; i++ {
		handles = append(handles, r.Register(context.Background(), fmt.Sprintf("req-%d", i)))
	}

	assert.Equal(t, 5, r.CancelAll())
	for _, h := range handles {
		assert.True(t, h.Canceled())
	}
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.CancelAll())
}

func TestRegistrySettleDoesNotCancel(t *testing.T) {
	r := NewRequestRegistry()
	h := r.Register(context.Background(), "x")

	r.Settle("x")
	assert.False(t, r.Has("x"))
	assert.False(t, h.Canceled())

	r.Settle("never-registered")
}

func TestRegistryEmptyIDIsUntracked(t *testing.T) {
	r := NewRequestRegistry()
	h := r.Register(context.Background(), "")

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.CancelAll())
	assert.False(t, h.Canceled())
	h.Release()
}

func TestRegistryParentCancellation(t *testing.T) {
	r := NewRequestRegistry()
	parent, cancel := context.WithCancel(context.Background())
	h := r.Register(parent, "p")

	cancel()
	<-h.Done()
	assert.True(t, h.Canceled())
	assert.True(t, errors.Is(h.Context().Err(), context.Canceled))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRequestRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			h := r.Register(context.Background(), fmt.Sprintf("id-%d", i%5))
			h.Release()
		}(i)
		go func() {
			defer wg.Done()
			r.CancelByPrefix("id-")
		}()
		go func(i int) {
			defer wg.Done()
			r.Cancel(fmt.Sprintf("id-%d", i%5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
