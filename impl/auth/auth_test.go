package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDb struct {
	granted map[int64]bool
	err     error
}

func (f *fakeDb) IsAdmin(userId int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.granted[userId], nil
}

func TestIsAdmin(t *testing.T) {
	db := &fakeDb{granted: map[int64]bool{200: true}}
	a := New(db, []int64{100})

	assert.True(t, a.IsAdmin(100), "configured admin")
	assert.True(t, a.IsAdmin(200), "granted admin")
	assert.False(t, a.IsAdmin(300), "regular user")

	assert.True(t, a.Configured(100))
	assert.False(t, a.Configured(200))
}

func TestIsAdminStoreFailure(t *testing.T) {
	db := &fakeDb{err: errors.New("connection lost")}
	a := New(db, []int64{100})

	// configured ids survive a store outage, grants do not
	assert.True(t, a.IsAdmin(100))
	assert.False(t, a.IsAdmin(200))
}

func TestIsAdminNilDatabase(t *testing.T) {
	a := New(nil, []int64{100})
	assert.True(t, a.IsAdmin(100))
	assert.False(t, a.IsAdmin(200))
}
