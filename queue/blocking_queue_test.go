package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingQueueFIFOOrder(t *testing.T) {
	q := NewBlockingQueue[int](0)
	q.Add(1)
	q.Add(2)
	q.Add(3)

	assert.Equal(t, 1, q.Take())
	assert.Equal(t, 2, q.Take())
	assert.Equal(t, 3, q.Take())
}

func TestBlockingQueueTryTakeEmpty(t *testing.T) {
	q := NewBlockingQueue[int](0)
	_, ok := q.TryTake()
	assert.False(t, ok)
}

func TestBlockingQueueTakeItem(t *testing.T) {
	q := NewBlockingQueue[string](0)
	q.Add("a")
	q.Add("b")
	q.Add("c")

	removed := q.TakeItem("b", func(a, b string) bool { return a == b })
	assert.True(t, removed)
	assert.Equal(t, 2, q.Count())

	removedAgain := q.TakeItem("b", func(a, b string) bool { return a == b })
	assert.False(t, removedAgain)
}

func TestBlockingQueueBlocksWhenFull(t *testing.T) {
	q := NewBlockingQueue[int](2)
	q.Add(1)
	q.Add(2)

	var wg sync.WaitGroup
	wg.Add(1)

	unblocked := make(chan struct{})
	go func() {
		defer wg.Done()
		q.Add(3)
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("Add should have blocked while queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, 1, q.Take())

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Add did not unblock after Take freed capacity")
	}

	wg.Wait()
	assert.Equal(t, 2, q.Count())
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry[string, int]()
	r.Add("conn1", 1)
	r.Add("conn2", 2)
	assert.Equal(t, 2, r.Len())

	v, ok := r.Get("conn1")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, r.Remove("conn1"))
	assert.False(t, r.Remove("conn1"))
	assert.Equal(t, 1, r.Len())
}
