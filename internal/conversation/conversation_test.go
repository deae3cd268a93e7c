package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	seed := Seed()
	require.Len(t, seed, 2)
	assert.Equal(t, RoleUser, seed[0].Role)
	assert.Equal(t, RoleModel, seed[1].Role)
	assert.Contains(t, seed[0].Text, "helpful project assistant")

	seed[0].Text = "changed"
	assert.NotEqual(t, "changed", Seed()[0].Text)
}

func TestSession_AppendAndReset(t *testing.T) {
	s := NewSession("s1", 0)
	assert.Equal(t, 2, s.Len())

	s.AppendUser("Our hackathon is March 15-17")
	s.AppendModel("Great! **Timeline:** March 15-17")

	h := s.History()
	require.Len(t, h, 4)
	assert.Equal(t, Message{Role: RoleUser, Text: "Our hackathon is March 15-17"}, h[2])
	assert.Equal(t, RoleModel, h[3].Role)

	// History is a copy.
	h[2].Text = "mutated"
	assert.Equal(t, "Our hackathon is March 15-17", s.History()[2].Text)

	s.Reset()
	assert.Equal(t, Seed(), s.History())
	assert.Equal(t, "s1", s.ID())
	assert.False(t, s.UpdatedAt().IsZero())
}

func TestSession_CapKeepsSeed(t *testing.T) {
	s := NewSession("s1", 3)
	for i := 0; i < 5; i++ {
		s.AppendUser(fmt.Sprintf("m%d", i))
	}

	h := s.History()
	require.Len(t, h, 5)
	assert.Equal(t, Seed(), h[:2])
	assert.Equal(t, "m2", h[2].Text)
	assert.Equal(t, "m4", h[4].Text)
}

func TestSession_TurnLockSerializes(t *testing.T) {
	s := NewSession("s1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := s.TurnLock()
			defer unlock()
			s.AppendUser(fmt.Sprintf("u%d", i))
			s.AppendModel(fmt.Sprintf("r%d", i))
		}(i)
	}
	wg.Wait()

	h := s.History()[2:]
	require.Len(t, h, 40)
	for i := 0; i < len(h); i += 2 {
		assert.Equal(t, RoleUser, h[i].Role)
		assert.Equal(t, RoleModel, h[i+1].Role)
		assert.Equal(t, h[i].Text[1:], h[i+1].Text[1:], "turn pairs stay adjacent")
	}
}

func TestManager(t *testing.T) {
	m := NewManager(0)

	s := m.New()
	assert.NotEmpty(t, s.ID())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Reset("missing"), ErrSessionNotFound)

	named, err := m.GetOrCreate("team-alpha")
	require.NoError(t, err)
	again, err := m.GetOrCreate("team-alpha")
	require.NoError(t, err)
	assert.Same(t, named, again)

	fresh, err := m.GetOrCreate("")
	require.NoError(t, err)
	assert.NotEqual(t, named.ID(), fresh.ID())

	_, err = m.GetOrCreate("bad id!")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	named.AppendUser("hi")
	require.NoError(t, m.Reset("team-alpha"))
	assert.Equal(t, 2, named.Len())

	assert.Len(t, m.IDs(), 3)
	m.Delete("team-alpha")
	m.Delete("team-alpha")
	assert.Len(t, m.IDs(), 2)
}
