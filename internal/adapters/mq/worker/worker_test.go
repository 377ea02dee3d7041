package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/squadron/internal/adapters/mq/queue"
	worker "github.com/okian/squadron/internal/adapters/mq/worker"
	"github.com/okian/squadron/internal/domain/job"
	"github.com/okian/squadron/internal/domain/search"
	logging "github.com/okian/squadron/pkg/logger"
)

func init() {
	_ = logging.Init(logging.WithWriter(io.Discard))
}

type mockQueue struct {
	jobs chan job.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan job.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan job.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockRunner struct {
	mu     sync.Mutex
	fail   map[string]error
	panics map[string]bool
	ran    []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{fail: map[string]error{}, panics: map[string]bool{}}
}

func (r *mockRunner) Run(ctx context.Context, j job.Job) ([]search.Ranked, error) { //nolint:gocritic // hugeParam: mirrors Runner
	r.mu.Lock()
	r.ran = append(r.ran, j.Name)
	err := r.fail[j.Name]
	boom := r.panics[j.Name]
	r.mu.Unlock()

	if boom {
		panic("exploded")
	}
	if err != nil {
		return nil, err
	}
	return []search.Ranked{{}}, nil
}

type mockSink struct {
	mu       sync.Mutex
	outcomes map[string]job.Outcome
}

func newMockSink() *mockSink {
	return &mockSink{outcomes: map[string]job.Outcome{}}
}

func (s *mockSink) Record(ctx context.Context, o job.Outcome) { //nolint:gocritic // hugeParam: mirrors Sink
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[o.Name] = o
}

func (s *mockSink) get(name string) (job.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[name]
	return o, ok
}

func (s *mockSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a mock queue, runner and sink", t, func() {
		q := newMockQueue()
		runner := newMockRunner()
		sink := newMockSink()
		w := worker.NewInMemoryWorker(q, runner, sink, worker.WithName("test-worker"), worker.WithLogger(logging.Nop()))

		convey.Convey("When jobs succeed and fail in the same batch", func() {
			runner.fail["bad"] = errors.New("insufficient candidates")
			q.jobs <- job.Job{ID: "1", Name: "good"}
			q.jobs <- job.Job{ID: "2", Name: "bad"}
			q.jobs <- job.Job{ID: "3", Name: "also-good"}
			_ = q.Close()

			w.Run(context.Background())

			convey.Convey("Then every job is reported", func() {
				convey.So(sink.len(), convey.ShouldEqual, 3)
			})

			convey.Convey("Then the failure is isolated to its own outcome", func() {
				bad, ok := sink.get("bad")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(bad.OK(), convey.ShouldBeFalse)
				convey.So(bad.Err.Error(), convey.ShouldContainSubstring, "insufficient candidates")
				convey.So(bad.Teams, convey.ShouldBeEmpty)

				good, _ := sink.get("good")
				convey.So(good.OK(), convey.ShouldBeTrue)
				convey.So(good.Teams, convey.ShouldHaveLength, 1)
				convey.So(good.JobID, convey.ShouldEqual, "1")
			})
		})

		convey.Convey("When the runner panics", func() {
			runner.panics["boom"] = true
			q.jobs <- job.Job{Name: "boom"}
			q.jobs <- job.Job{Name: "after"}
			_ = q.Close()

			w.Run(context.Background())

			convey.Convey("Then the panic becomes an error and the worker continues", func() {
				boom, _ := sink.get("boom")
				convey.So(boom.Err, convey.ShouldNotBeNil)
				convey.So(boom.Err.Error(), convey.ShouldContainSubstring, "panicked")

				after, ok := sink.get("after")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(after.OK(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})

		convey.Convey("When Shutdown is called on an idle worker", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then it stops without error", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		runner := newMockRunner()
		sink := newMockSink()
		pool := worker.NewPool(3, q, runner, sink)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When jobs are enqueued and the pool shuts down", func() {
			pool.Start(context.Background())
			for _, name := range []string{"a", "b", "c", "d", "e"} {
				convey.So(q.Enqueue(context.Background(), job.Job{Name: name}), convey.ShouldBeTrue)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then all queued jobs are drained", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.len(), convey.ShouldEqual, 5)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool is shut down without starting", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})

		convey.Convey("When a non-positive worker count is given", func() {
			p := worker.NewPool(0, queue.NewInMemoryQueue(), runner, sink)
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
