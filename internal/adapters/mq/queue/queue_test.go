package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/squadron/internal/domain/job"
)

func testJob(name string) job.Job {
	return job.Job{ID: name, Name: name, Strategy: "exhaustive"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, testJob("job1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" {
		t.Errorf("expected job1, got %v", got.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, testJob("a")) || !q.Enqueue(ctx, testJob("b")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, testJob("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, testJob("a")) {
		t.Error("expected enqueue to fail on a cancelled context")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		q.Enqueue(ctx, testJob(fmt.Sprintf("j%d", i)))
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, testJob("late")) {
		t.Error("expected enqueue after close to fail")
	}

	var got []string
	for j := range q.Dequeue(ctx) {
		got = append(got, j.ID)
	}
	if len(got) != 3 || got[0] != "j0" || got[2] != "j2" {
		t.Errorf("expected queued jobs in order, got %v", got)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, testJob(fmt.Sprintf("%d-%d", id, i)))
			}
		}(p)
	}
	wg.Wait()
	_ = q.Close()

	count := 0
	timeout := time.After(5 * time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if count != 500 {
					t.Errorf("expected 500 jobs, got %d", count)
				}
				return
			}
			count++
		case <-timeout:
			t.Fatalf("timed out after %d jobs", count)
		}
	}
}
