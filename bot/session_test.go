package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	// unknown users get an empty session, never nil
	session := store.Get(1)
	assert.NotNil(t, session)
	assert.Equal(t, StepNone, session.Step)
	assert.False(t, store.Active(1))

	store.Set(1, &Session{Step: StepFullName})
	assert.True(t, store.Active(1))
	assert.Equal(t, StepFullName, store.Get(1).Step)

	store.Clear(1)
	assert.False(t, store.Active(1))
	assert.Equal(t, StepNone, store.Get(1).Step)
}

func TestSessionStoreConcurrent(t *testing.T) {
	store := NewSessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		userId := int64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Set(userId, &Session{Step: StepReceipt, EventId: userId})
			_ = store.Get(userId)
			store.Clear(userId)
		}()
	}
	wg.Wait()
	for i := 0; i < 50; i++ {
		assert.False(t, store.Active(int64(i)))
	}
}
