package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ashc/internal/ir"
)

func comp(ref string) completion {
	return completion{Candidate: ir.Candidate{Ref: ref}}
}

func TestCompletionQueue_FIFO(t *testing.T) {
	q := newCompletionQueue()

	for _, ref := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(comp(ref)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Candidate.Ref)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCompletionQueue_WaitSignals(t *testing.T) {
	q := newCompletionQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(comp("late"))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait did not signal")
	}
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "late", got.Candidate.Ref)
}

// Close refuses new items and hands back what was still queued.
func TestCompletionQueue_CloseRefusesAndDrains(t *testing.T) {
	q := newCompletionQueue()
	q.Enqueue(comp("queued"))

	late := q.Close()
	require.Len(t, late, 1)
	assert.Equal(t, "queued", late[0].Candidate.Ref)

	assert.False(t, q.Enqueue(comp("refused")))
	assert.Equal(t, 0, q.Len())

	// Wait channel is closed so waiters wake.
	_, open := <-q.Wait()
	assert.False(t, open)

	assert.Nil(t, q.Close(), "second close is a no-op")
}

func TestCompletionQueue_ConcurrentEnqueue(t *testing.T) {
	q := newCompletionQueue()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(comp("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}
