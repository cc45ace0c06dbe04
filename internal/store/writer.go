package store

import (
	"sync"
	"time"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/journal"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/lifecycle"
)

// Tuning constants grounded on the original ProxyStore/MessageStore
// pair. queueLimit is the hard cap past which incoming records are
// dropped and counted rather than queued; the remaining constants pace
// the writer's reconnect, clean-up, and backoff behavior.
const (
	queueLimit              = 50000
	reconnectAfterInterval  = time.Hour
	forceCleanUpInterval    = 3000 * time.Second
	lazyCleanUpInterval     = 300 * time.Second
	errorBackoffThreshold   = 10
	errorBackoffSleep       = 2 * time.Second
	loopStep                = 50 * time.Millisecond
	busyLoopStepDivisor     = 100
	maxConfiguredBatchSize  = 10000
	maxConfiguredWaitSecond = 60
)

// Logger is the minimal logging surface the writer needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder receives ingestion counters. A nil recorder is a
// valid no-op (metrics are optional, see config.MetricsConfig).
type MetricsRecorder interface {
	RecordStored(n int)
	RecordCleanedUp(n int64)
	RecordLost(n int)
}

// Writer asynchronously batches journal.Record values and commits them
// to PostgreSQL in a background goroutine, grounded on the original's
// ProxyStore: a bounded FIFO queue, qualify-before-flush batching, and
// a periodic forced reconnect to bound any single connection's
// lifetime.
type Writer struct {
	mu sync.Mutex

	cfg    config.DatabaseConfig
	ctrl   *lifecycle.Controller
	logger Logger
	metric MetricsRecorder

	db *DB

	queue            []journal.Record
	writeImmediately bool
	closing          bool

	batchSize      int
	waitMaxSeconds int

	lastConnectTime  time.Time
	lastStoreTime    time.Time
	lastCleanUpTime  time.Time
	lastErrorText    string

	done chan struct{}
}

// New builds a Writer that has not yet connected. Call Run in a
// goroutine to start the batching loop.
func New(cfg config.DatabaseConfig, ctrl *lifecycle.Controller, logger Logger, metric MetricsRecorder) *Writer {
	batchSize := cfg.EffectiveBatchSize(maxConfiguredBatchSize)

	waitMaxSeconds := cfg.WaitMaxSeconds
	if waitMaxSeconds <= 0 {
		waitMaxSeconds = config.DefaultWaitMaxSeconds
	}
	if waitMaxSeconds > maxConfiguredWaitSecond {
		waitMaxSeconds = maxConfiguredWaitSecond
	}

	now := time.Now()

	return &Writer{
		cfg:             cfg,
		ctrl:            ctrl,
		logger:          logger,
		metric:          metric,
		batchSize:       batchSize,
		waitMaxSeconds:  waitMaxSeconds,
		lastStoreTime:   now,
		lastCleanUpTime: now,
		done:            make(chan struct{}),
	}
}

// Queue appends records to the bounded pending queue, dropping and
// counting any that would exceed queueLimit. writeImmediately forces
// the next loop iteration to flush regardless of batch size or wait
// time.
func (w *Writer) Queue(records []journal.Record, writeImmediately bool) {
	if len(records) == 0 && !writeImmediately {
		return
	}

	w.mu.Lock()
	if writeImmediately {
		w.writeImmediately = true
	}

	added := 0
	lost := 0
	for _, r := range records {
		if len(w.queue) >= queueLimit {
			lost = len(records) - added
			break
		}
		w.queue = append(w.queue, r)
		added++
	}
	w.mu.Unlock()

	if lost > 0 {
		w.logger.Error("message queue limit reached, dropping messages", "limit", queueLimit, "lost", lost)
		if w.metric != nil {
			w.metric.RecordLost(lost)
		}
	}
}

// Close requests the run loop to stop and blocks until it exits and
// the database connection (if any) is closed.
func (w *Writer) Close() {
	w.mu.Lock()
	alreadyClosing := w.closing
	w.closing = true
	w.mu.Unlock()

	if alreadyClosing {
		return
	}
	<-w.done
}

func (w *Writer) isClosing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closing
}

// Run is the writer's main loop: connect, batch, flush, clean up,
// reconnect periodically. Intended to run on its own goroutine for the
// lifetime of the process; returns once Close is called or the shared
// Controller signals shutdown.
func (w *Writer) Run() {
	defer close(w.done)
	defer w.closeConnection()

	consecutiveErrors := 0

	for w.ctrl.ShouldProceed() && !w.isClosing() {
		busy := false

		if consecutiveErrors > errorBackoffThreshold {
			w.ctrl.Sleep(errorBackoffSleep)
		}

		err := w.step(&busy)
		if err != nil {
			consecutiveErrors++
			w.handleError(err)
			w.closeConnection()
		} else {
			consecutiveErrors = 0
		}

		if busy {
			w.ctrl.Sleep(loopStep / busyLoopStepDivisor)
		} else {
			w.ctrl.Sleep(loopStep)
		}
	}
}

// step runs one iteration's worth of connect/store/clean-up/reconnect
// decisions, setting *busy if any real work happened.
func (w *Writer) step(busy *bool) error {
	connected, err := w.checkConnection()
	if err != nil {
		return err
	}
	if connected {
		*busy = true
	}

	if w.shouldStoreMessages() {
		stored, err := w.storeMessages()
		if err != nil {
			return err
		}
		if stored {
			*busy = true
		}
	}

	if !*busy {
		cleaned, err := w.cleanUpIfDue()
		if err != nil {
			return err
		}
		if cleaned {
			*busy = true
		}
	}

	w.mu.Lock()
	lastConnect := w.lastConnectTime
	w.mu.Unlock()

	if !lastConnect.IsZero() && time.Since(lastConnect) > reconnectAfterInterval {
		w.logger.Debug("closing connection for periodic reconnect")
		w.closeConnection()
		*busy = true
	}

	return nil
}

// checkConnection opens the database connection if not already open,
// returning true if it just connected.
func (w *Writer) checkConnection() (bool, error) {
	w.mu.Lock()
	connected := w.db != nil
	w.mu.Unlock()

	if connected {
		return false, nil
	}

	db, err := Open(w.cfg)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	w.db = db
	w.lastConnectTime = time.Now()
	w.mu.Unlock()

	w.ctrl.Notify(lifecycle.EventMessageStoreConnected)
	return true, nil
}

func (w *Writer) closeConnection() {
	w.mu.Lock()
	db := w.db
	w.db = nil
	w.mu.Unlock()

	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		w.logger.Error("closing database connection", "error", err)
	}
	w.ctrl.Notify(lifecycle.EventMessageStoreClosed)
}

func (w *Writer) shouldStoreMessages() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.queue) == 0 {
		return false
	}
	if w.writeImmediately {
		return true
	}
	if len(w.queue) >= w.batchSize {
		return true
	}
	return time.Since(w.lastStoreTime) > time.Duration(w.waitMaxSeconds)*time.Second
}

// storeMessages pops up to batchSize records from the front of the
// queue and commits them in one batch. If the commit fails, the batch
// is returned to the front of the queue.
func (w *Writer) storeMessages() (bool, error) {
	w.mu.Lock()
	n := len(w.queue)
	if n > w.batchSize {
		n = w.batchSize
	}
	batch := append([]journal.Record(nil), w.queue[:n]...)
	w.queue = w.queue[n:]
	if len(w.queue) == 0 {
		w.writeImmediately = false
	}
	db := w.db
	w.mu.Unlock()

	if len(batch) == 0 {
		return false, nil
	}
	var err error
	if db == nil {
		err = ErrDatabase
	} else {
		err = db.Store(batch)
	}
	if err != nil {
		// Put the batch back at the front of the queue so the next
		// iteration retries it in order after reconnecting.
		w.mu.Lock()
		w.queue = append(batch, w.queue...)
		w.mu.Unlock()
		return false, err
	}

	w.mu.Lock()
	w.lastStoreTime = time.Now()
	w.lastErrorText = ""
	w.mu.Unlock()

	w.ctrl.Notify(lifecycle.EventMessageStoreStored)
	if w.metric != nil {
		w.metric.RecordStored(len(batch))
	}

	return true, nil
}

func (w *Writer) cleanUpIfDue() (bool, error) {
	if w.cfg.CleanUpAfterDays <= 0 {
		return false, nil
	}
	if !w.shouldCleanUp() {
		return false, nil
	}

	w.mu.Lock()
	db := w.db
	w.mu.Unlock()
	if db == nil {
		return false, ErrDatabase
	}

	rows, err := db.CleanUp(w.cfg.CleanUpAfterDays)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	w.lastCleanUpTime = time.Now()
	w.mu.Unlock()

	if w.metric != nil {
		w.metric.RecordCleanedUp(rows)
	}
	w.logger.Debug("cleaned up old journal rows", "rows", rows)

	return true, nil
}

func (w *Writer) shouldCleanUp() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	sinceCleanUp := time.Since(w.lastCleanUpTime)
	if sinceCleanUp >= forceCleanUpInterval {
		return true
	}
	if len(w.queue) == 0 && sinceCleanUp > lazyCleanUpInterval {
		return time.Since(w.lastStoreTime) > time.Second
	}
	return false
}

// handleError logs err, suppressing repeated stack traces for the same
// recurring error the way the original's exception handler does.
func (w *Writer) handleError(err error) {
	text := err.Error()

	w.mu.Lock()
	repeat := text == w.lastErrorText
	w.lastErrorText = text
	w.mu.Unlock()

	if repeat {
		w.logger.Error(text)
	} else {
		w.logger.Error("writer loop error", "error", err)
	}
}
