package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryPutIsLastWriteWins(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Put(Session{ConnID: "c1", UserID: 1, Username: "alice", RoomID: 10})
	r.Put(Session{ConnID: "c1", UserID: 1, Username: "alice", RoomID: 20})

	req.Equal(1, r.Len())
	s, ok := r.Get("c1")
	req.True(ok)
	req.Equal(int64(20), s.RoomID)
	req.Empty(r.MembersOf(10))
	req.Len(r.MembersOf(20), 1)
}

func TestRegistryUpdateRoom(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.False(r.UpdateRoom("missing", 5))

	r.Put(Session{ConnID: "c1", UserID: 1, Username: "alice", RoomID: 10})
	req.True(r.UpdateRoom("c1", 5))

	s, _ := r.Get("c1")
	req.Equal(int64(5), s.RoomID)
	req.Equal("alice", s.Username)
}

func TestRegistryRemoveOnce(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Put(Session{ConnID: "c1", UserID: 1, Username: "alice", RoomID: 10})

	s, ok := r.Remove("c1")
	req.True(ok)
	req.Equal(int64(10), s.RoomID)

	_, ok = r.Remove("c1")
	req.False(ok)
	req.Zero(r.Len())
}

func TestRegistryLeave(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Put(Session{ConnID: "c1", UserID: 1, Username: "alice", RoomID: 10})

	_, ok := r.Leave("c1", 11)
	req.False(ok, "wrong room")

	s, ok := r.Leave("c1", 10)
	req.True(ok)
	req.Equal(int64(10), s.RoomID)

	_, ok = r.Leave("c1", 0)
	req.False(ok)
}

func TestRegistryMembersOfSortedSnapshot(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Put(Session{ConnID: "c3", RoomID: 1})
	r.Put(Session{ConnID: "c1", RoomID: 1})
	r.Put(Session{ConnID: "c2", RoomID: 2})

	members := r.MembersOf(1)
	req.Len(members, 2)
	req.Equal("c1", members[0].ConnID)
	req.Equal("c3", members[1].ConnID)

	r.Remove("c1")
	req.Len(members, 2, "snapshot unaffected by later writes")
	req.Empty(r.MembersOf(0))
}

func TestRegistryConcurrentRemoveExactlyOnce(t *testing.T) {
	r := NewRegistry()
	const conns = 200
	for i := range conns {
		r.Put(Session{ConnID: fmt.Sprintf("c%d", i), RoomID: int64(i%3 + 1)})
	}

	var removed atomic.Int64
	var wg sync.WaitGroup
	for i := range conns {
		id := fmt.Sprintf("c%d", i)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := r.Remove(id); ok {
					removed.Add(1)
				}
				_ = r.MembersOf(1)
			}()
		}
	}
	wg.Wait()

	require.Equal(t, int64(conns), removed.Load())
	require.Zero(t, r.Len())
}
