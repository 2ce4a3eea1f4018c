package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haitranq/prepline/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateReusesEngine(t *testing.T) {
	registry := NewRegistry()
	collab := newFakeCollaborator(sampleAttempt(time.Now().UTC()), sampleQuestions())

	built := 0
	factory := func() (*Engine, error) {
		built++
		return NewEngine(context.Background(), 1, collab, store.NewMemoryAnchorStore())
	}

	first, err := registry.GetOrCreate(1, factory)
	require.NoError(t, err)
	second, err := registry.GetOrCreate(1, factory)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
}

func TestRegistryFactoryErrorNotCached(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.GetOrCreate(1, func() (*Engine, error) {
		return nil, errors.New("storage down")
	})
	require.Error(t, err)

	_, ok := registry.Get(1)
	assert.False(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()
	collab := newFakeCollaborator(sampleAttempt(time.Now().UTC()), sampleQuestions())

	engine, err := registry.GetOrCreate(1, func() (*Engine, error) {
		return NewEngine(context.Background(), 1, collab, store.NewMemoryAnchorStore())
	})
	require.NoError(t, err)
	engine.StartClock(time.Millisecond)

	registry.Remove(1)
	_, ok := registry.Get(1)
	assert.False(t, ok)

	// Removing an absent attempt is a no-op.
	registry.Remove(1)
}
