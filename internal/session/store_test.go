package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "initial", StateInitial.String())
	assert.Equal(t, "awaiting_date_time", StateAwaitingDateTime.String())
	assert.Equal(t, "awaiting_confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.False(t, State(-1).Valid())
	assert.True(t, StateAwaitingEmail.Valid())
}

func TestGetOrCreateStartsInitial(t *testing.T) {
	s := NewStore()
	sess := s.GetOrCreate("10.0.0.1")
	assert.Equal(t, StateInitial, sess.State)
	assert.True(t, sess.Cleared())
	assert.Equal(t, 1, s.Len())

	s.GetOrCreate("10.0.0.1")
	assert.Equal(t, 1, s.Len())
}

func TestPutAndReset(t *testing.T) {
	s := NewStore()
	s.Put("a", Session{State: StateAwaitingEmail, Name: "Jane Doe"})

	got := s.GetOrCreate("a")
	assert.Equal(t, StateAwaitingEmail, got.State)
	assert.Equal(t, "Jane Doe", got.Name)

	s.Reset("a")
	got = s.GetOrCreate("a")
	assert.Equal(t, Session{}, got)
	assert.Equal(t, 1, s.Len(), "reset must not drop the entry")
}

func TestGetOrCreateReturnsCopy(t *testing.T) {
	s := NewStore()
	sess := s.GetOrCreate("a")
	sess.Name = "changed"
	assert.Empty(t, s.GetOrCreate("a").Name)
}

func TestUpdateKeepsChangesOnError(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	err := s.Update("a", func(sess *Session) error {
		sess.State = StateAwaitingName
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateAwaitingName, s.GetOrCreate("a").State)
}

func TestUpdateSerializesSameIdentity(t *testing.T) {
	s := NewStore()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update("shared", func(sess *Session) error {
				// Read-modify-write that would lose updates without the per-key lock.
				sess.Name += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetOrCreate("shared").Name, workers)
}

func TestConcurrentIdentitiesAreIsolated(t *testing.T) {
	s := NewStore()
	const identities = 20

	var wg sync.WaitGroup
	for i := 0; i < identities; i++ {
		id := fmt.Sprintf("10.0.0.%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for step := 0; step < 100; step++ {
				_ = s.Update(id, func(sess *Session) error {
					sess.Name = id
					sess.State = State(step % 7)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, identities, s.Len())
	for i := 0; i < identities; i++ {
		id := fmt.Sprintf("10.0.0.%d", i)
		got := s.GetOrCreate(id)
		assert.Equal(t, id, got.Name)
		assert.Equal(t, State(99%7), got.State)
	}
}
