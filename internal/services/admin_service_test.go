package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubNotifier counts deliveries and fails the configured recipients.
type stubNotifier struct {
	capacity    int
	failFor     map[int64]bool
	gate        chan struct{} // when set, SendMessage blocks until closed
	inFlight    atomic.Int64
	maxInFlight atomic.Int64

	mu   sync.Mutex
	sent []int64
}

func (n *stubNotifier) SendMessage(ctx context.Context, actorID int64, text string) error {
	cur := n.inFlight.Add(1)
	defer n.inFlight.Add(-1)
	for {
		max := n.maxInFlight.Load()
		if cur <= max || n.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}

	if n.gate != nil {
		<-n.gate
	}
	if n.failFor[actorID] {
		return fmt.Errorf("delivery to %d failed", actorID)
	}
	n.mu.Lock()
	n.sent = append(n.sent, actorID)
	n.mu.Unlock()
	return nil
}

func (n *stubNotifier) Capacity() int {
	return n.capacity
}

func actorIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestFanOutPartialFailures(t *testing.T) {
	failFor := make(map[int64]bool)
	for id := int64(1); id <= 10; id++ {
		failFor[id] = true
	}
	notifier := &stubNotifier{capacity: 10, failFor: failFor}
	svc := &AdminService{notifier: notifier, log: zap.NewNop()}

	result := svc.fanOut(context.Background(), actorIDs(100), "hello")

	if result.Sent != 90 {
		t.Errorf("sent = %d, want 90", result.Sent)
	}
	if result.Failed != 10 {
		t.Errorf("failed = %d, want 10", result.Failed)
	}
	if len(notifier.sent) != 90 {
		t.Errorf("deliveries = %d, want 90", len(notifier.sent))
	}
}

func TestFanOutRespectsCapacity(t *testing.T) {
	notifier := &stubNotifier{capacity: 5}
	svc := &AdminService{notifier: notifier, log: zap.NewNop()}

	result := svc.fanOut(context.Background(), actorIDs(200), "hello")

	if result.Sent != 200 || result.Failed != 0 {
		t.Fatalf("result = %+v, want {200 0}", result)
	}
	if max := notifier.maxInFlight.Load(); max > 5 {
		t.Errorf("max in-flight deliveries = %d, exceeds capacity 5", max)
	}
}

func TestFanOutCancelledBeforeStart(t *testing.T) {
	notifier := &stubNotifier{capacity: 3}
	svc := &AdminService{notifier: notifier, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.fanOut(ctx, actorIDs(50), "hello")
	if result.Sent != 0 || result.Failed != 0 {
		t.Errorf("result = %+v, want {0 0} when already cancelled", result)
	}
}

func TestFanOutCancelledMidFlight(t *testing.T) {
	gate := make(chan struct{})
	notifier := &stubNotifier{capacity: 2, gate: gate}
	svc := &AdminService{notifier: notifier, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan BroadcastResult, 1)
	go func() {
		done <- svc.fanOut(ctx, actorIDs(20), "hello")
	}()

	// Wait until the fan-out has filled its two slots, then cancel and
	// let the in-flight sends drain.
	for notifier.inFlight.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	close(gate)

	result := <-done
	total := result.Sent + result.Failed
	if total < 2 || total >= 20 {
		t.Errorf("result = %+v: in-flight sends must finish and be counted, the rest must not be admitted", result)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
}
