package tutor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "verbtutor/internal/llm/client"
)

func TestRegistryOpenGetClose(t *testing.T) {
	r := NewRegistry(newController(t, llmclient.NewOffline(), testConfig()), nil, 4, time.Hour)

	a, b := r.Open(), r.Open()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())

	got, err := r.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	r.Close(a.ID())
	_, err = r.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(newController(t, llmclient.NewOffline(), testConfig()), nil, 2, time.Hour)
	first := r.Open()
	second := r.Open()

	_, err := r.Get(first.ID())
	require.NoError(t, err)
	r.Open()

	_, err = r.Get(second.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(first.ID())
	assert.NoError(t, err)
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	r := NewRegistry(newController(t, llmclient.NewOffline(), testConfig()), nil, 8, 30*time.Millisecond)
	s := r.Open()
	time.Sleep(80 * time.Millisecond)
	_, err := r.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	r := NewRegistry(newController(t, llmclient.NewOffline(), DefaultConfig()), nil, 0, time.Hour)
	sessions := make([]*Session, 3)
	for i := range sessions {
		sessions[i] = r.Open()
		_, err := sessions[i].Start(t.Context())
		require.NoError(t, err)
	}
	_, err := sessions[0].Submit(t.Context(), "vou")
	require.NoError(t, err)

	assert.Len(t, sessions[0].Turns(), 4)
	for i, s := range sessions[1:] {
		assert.Len(t, s.Turns(), 2, fmt.Sprintf("session %d", i+1))
	}
}
