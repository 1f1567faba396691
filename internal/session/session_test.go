package session

import (
	"context"
	"io"
	"testing"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopStreamLoader struct{}

func (nopStreamLoader) LoadStream(context.Context, string) (io.ReadCloser, error) {
	return nil, nil
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	l, err := logging.New(false, "fatal")
	require.NoError(t, err)
	return NewManager(nopStreamLoader{}, l)
}

func TestCreateAssignsA16CharacterID(t *testing.T) {
	m := newManager(t)
	sender := make(chan []byte, 1)

	s := m.Create("user-1", "test-client", sender)
	assert.Len(t, s.ID, 16)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "test-client", s.ClientName)
	assert.NotNil(t, s.Players)
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	m := newManager(t)
	sender := make(chan []byte, 1)

	a := m.Create("user-1", "c", sender)
	b := m.Create("user-1", "c", sender)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLookupFindsACreatedSession(t *testing.T) {
	m := newManager(t)
	sender := make(chan []byte, 1)
	created := m.Create("user-1", "c", sender)

	found, ok := m.Lookup(created.ID)
	require.True(t, ok)
	assert.Same(t, created, found)

	_, ok = m.Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestResumeRebindsSenderAndPreservesPlayers(t *testing.T) {
	m := newManager(t)
	oldSender := make(chan []byte, 1)
	created := m.Create("user-1", "c", oldSender)
	p := created.Players.GetOrCreate("guild-1")

	newSender := make(chan []byte, 1)
	resumed, ok := m.Resume(created.ID, newSender)
	require.True(t, ok)
	assert.Same(t, created, resumed)
	assert.Same(t, p, resumed.Players.GetOrCreate("guild-1"))

	resumed.Send([]byte("hello"))
	select {
	case msg := <-newSender:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("expected message on the new sender channel")
	}

	select {
	case <-oldSender:
		t.Fatal("old sender should no longer receive messages")
	default:
	}
}

func TestResumeReportsFalseForUnknownSession(t *testing.T) {
	m := newManager(t)
	_, ok := m.Resume("does-not-exist", make(chan []byte, 1))
	assert.False(t, ok)
}

func TestAllListsEveryLiveSession(t *testing.T) {
	m := newManager(t)
	sender := make(chan []byte, 1)
	m.Create("user-1", "c", sender)
	m.Create("user-2", "c", sender)

	assert.Len(t, m.All(), 2)
}
