package pdfrelay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testQueue(gap time.Duration) *serialQueue {
	return newSerialQueue(func() time.Duration { return gap }, nil)
}

func TestQueueProcessesInFIFOOrder(t *testing.T) {
	q := testQueue(0)
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	ready := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			// Stagger enqueues so arrival order is deterministic.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			_, _ = q.Enqueue(context.Background(), func() (*Envelope, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return &Envelope{Status: 200, Success: true}, nil
			})
		}()
	}
	close(ready)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("items ran out of order: %v", order)
		}
	}
}

func TestQueueSerializesExecution(t *testing.T) {
	q := testQueue(0)
	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Enqueue(context.Background(), func() (*Envelope, error) {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return &Envelope{Status: 200, Success: true}, nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("Expected at most 1 item in flight, observed %d", maxActive)
	}
}

func TestQueueGapSeparatesItems(t *testing.T) {
	gap := 60 * time.Millisecond
	q := testQueue(gap)
	var mu sync.Mutex
	var firstDone, secondStart time.Time

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = q.Enqueue(context.Background(), func() (*Envelope, error) {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			firstDone = time.Now()
			mu.Unlock()
			return &Envelope{Status: 200, Success: true}, nil
		})
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		defer wg.Done()
		_, _ = q.Enqueue(context.Background(), func() (*Envelope, error) {
			mu.Lock()
			secondStart = time.Now()
			mu.Unlock()
			return &Envelope{Status: 200, Success: true}, nil
		})
	}()
	wg.Wait()

	elapsed := secondStart.Sub(firstDone)
	if elapsed < gap {
		t.Errorf("second item started %v after the first settled, want >= %v", elapsed, gap)
	}
}

func TestQueueEnqueueReturnsItemResult(t *testing.T) {
	q := testQueue(0)
	wantErr := errors.New("boom")

	env, err := q.Enqueue(context.Background(), func() (*Envelope, error) {
		return nil, wantErr
	})
	if env != nil || !errors.Is(err, wantErr) {
		t.Errorf("Expected the item's own failure, got env=%v err=%v", env, err)
	}

	env, err = q.Enqueue(context.Background(), func() (*Envelope, error) {
		return &Envelope{Status: 201, Success: true}, nil
	})
	if err != nil || env.Status != 201 {
		t.Errorf("Expected the item's own envelope, got env=%v err=%v", env, err)
	}
}

func TestQueueCloseRejectsNewSubmissions(t *testing.T) {
	q := testQueue(0)
	q.Close()

	_, err := q.Enqueue(context.Background(), func() (*Envelope, error) {
		t.Error("item must not run after close")
		return nil, nil
	})

	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrorTypeQueueClosed {
		t.Errorf("Expected a queue-closed client error, got %v", err)
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := testQueue(0)
	q.Close()
	q.Close()
}

func TestQueueReportsDepth(t *testing.T) {
	var mu sync.Mutex
	var depths []int
	q := newSerialQueue(func() time.Duration { return 0 }, func(d int) {
		mu.Lock()
		depths = append(depths, d)
		mu.Unlock()
	})

	_, _ = q.Enqueue(context.Background(), func() (*Envelope, error) {
		return &Envelope{Status: 200, Success: true}, nil
	})

	mu.Lock()
	defer mu.Unlock()
	if len(depths) == 0 {
		t.Fatal("expected depth callbacks")
	}
	if depths[0] != 1 {
		t.Errorf("Expected depth 1 on enqueue, got %d", depths[0])
	}
}

func TestWithContextQueued(t *testing.T) {
	if queuedFrom(context.Background()) {
		t.Error("plain context must not be marked queued")
	}
	if !queuedFrom(WithContextQueued(context.Background())) {
		t.Error("marked context must report queued")
	}
}
