package store

import (
	"testing"
	"time"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/journal"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/lifecycle"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeMetrics struct {
	stored, lost int
	cleaned      int64
}

func (f *fakeMetrics) RecordStored(n int)      { f.stored += n }
func (f *fakeMetrics) RecordCleanedUp(n int64) { f.cleaned += n }
func (f *fakeMetrics) RecordLost(n int)        { f.lost += n }

func testWriter(t *testing.T, cfg config.DatabaseConfig) (*Writer, *fakeMetrics) {
	t.Helper()
	metrics := &fakeMetrics{}
	w := New(cfg, lifecycle.New(nil), nopLogger{}, metrics)
	return w, metrics
}

func records(n int) []journal.Record {
	out := make([]journal.Record, n)
	for i := range out {
		out[i] = journal.Record{MessageID: i + 1, Topic: "t", Text: "x", Time: time.Now()}
	}
	return out
}

// === Batch Size / Wait Clamping Tests ===

func TestNewClampsBatchSize(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 999999})
	if w.batchSize != maxConfiguredBatchSize {
		t.Errorf("batchSize = %d, want clamped %d", w.batchSize, maxConfiguredBatchSize)
	}
}

func TestNewClampsWaitMaxSeconds(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{WaitMaxSeconds: 9999})
	if w.waitMaxSeconds != maxConfiguredWaitSecond {
		t.Errorf("waitMaxSeconds = %d, want clamped %d", w.waitMaxSeconds, maxConfiguredWaitSecond)
	}
}

func TestNewDefaultsBatchSize(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{})
	if w.batchSize != config.DefaultBatchSize {
		t.Errorf("batchSize = %d, want default %d", w.batchSize, config.DefaultBatchSize)
	}
}

// === Queue Tests ===

func TestQueueAppendsRecords(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 10})
	w.Queue(records(3), false)

	if len(w.queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(w.queue))
	}
}

func TestQueueDropsBeyondLimit(t *testing.T) {
	w, metrics := testWriter(t, config.DatabaseConfig{BatchSize: 10})

	w.queue = make([]journal.Record, queueLimit)

	w.Queue(records(5), false)

	if len(w.queue) != queueLimit {
		t.Errorf("queue length = %d, want capped at %d", len(w.queue), queueLimit)
	}
	if metrics.lost != 5 {
		t.Errorf("lost = %d, want 5", metrics.lost)
	}
}

func TestQueueSetsWriteImmediately(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{})
	w.Queue(records(1), true)

	if !w.writeImmediately {
		t.Error("expected writeImmediately to be set")
	}
}

// === shouldStoreMessages Tests ===

func TestShouldStoreMessagesEmptyQueue(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{})
	if w.shouldStoreMessages() {
		t.Error("shouldStoreMessages() = true, want false for empty queue")
	}
}

func TestShouldStoreMessagesWriteImmediately(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 100})
	w.Queue(records(1), true)

	if !w.shouldStoreMessages() {
		t.Error("shouldStoreMessages() = false, want true with writeImmediately set")
	}
}

func TestShouldStoreMessagesBatchSizeReached(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 2})
	w.Queue(records(2), false)

	if !w.shouldStoreMessages() {
		t.Error("shouldStoreMessages() = false, want true when batch size reached")
	}
}

func TestShouldStoreMessagesWaitTimeElapsed(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 100, WaitMaxSeconds: 1})
	w.Queue(records(1), false)
	w.lastStoreTime = time.Now().Add(-2 * time.Second)

	if !w.shouldStoreMessages() {
		t.Error("shouldStoreMessages() = false, want true after wait_max_seconds elapses")
	}
}

func TestShouldStoreMessagesWaitsWhenNeitherConditionMet(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{BatchSize: 100, WaitMaxSeconds: 60})
	w.Queue(records(1), false)
	w.lastStoreTime = time.Now()

	if w.shouldStoreMessages() {
		t.Error("shouldStoreMessages() = true, want false when under batch size and wait time")
	}
}

// === shouldCleanUp Tests ===

func TestShouldCleanUpForceAfterInterval(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{CleanUpAfterDays: 14})
	w.lastCleanUpTime = time.Now().Add(-forceCleanUpInterval - time.Second)

	if !w.shouldCleanUp() {
		t.Error("shouldCleanUp() = false, want true after force interval elapses")
	}
}

func TestShouldCleanUpLazyWhenQueueEmpty(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{CleanUpAfterDays: 14})
	w.lastCleanUpTime = time.Now().Add(-lazyCleanUpInterval - time.Second)
	w.lastStoreTime = time.Now().Add(-2 * time.Second)

	if !w.shouldCleanUp() {
		t.Error("shouldCleanUp() = false, want true for lazy clean-up with idle queue")
	}
}

func TestShouldCleanUpFalseWhenQueueNotEmpty(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{CleanUpAfterDays: 14})
	w.queue = records(1)
	w.lastCleanUpTime = time.Now().Add(-lazyCleanUpInterval - time.Second)

	if w.shouldCleanUp() {
		t.Error("shouldCleanUp() = true, want false while queue has pending records")
	}
}

func TestShouldCleanUpFalseWhenRecentlyDone(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{CleanUpAfterDays: 14})
	w.lastCleanUpTime = time.Now()

	if w.shouldCleanUp() {
		t.Error("shouldCleanUp() = true, want false right after a clean-up")
	}
}

// === handleError Tests ===

func TestHandleErrorTracksLastErrorText(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{})

	w.handleError(ErrDatabase)
	if w.lastErrorText != ErrDatabase.Error() {
		t.Errorf("lastErrorText = %q, want %q", w.lastErrorText, ErrDatabase.Error())
	}
}

// === Close Tests ===

func TestCloseIsIdempotentWithoutRun(t *testing.T) {
	w, _ := testWriter(t, config.DatabaseConfig{})
	w.mu.Lock()
	w.closing = true
	close(w.done)
	w.mu.Unlock()

	w.Close() // must not block or panic on an already-closing writer
}
