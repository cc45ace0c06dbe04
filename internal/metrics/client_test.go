package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
)

func TestConnectReturnsErrDisabledWhenNotEnabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectRejectsOversizedBatch(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{
		Enabled:   true,
		URL:       "http://localhost:8086",
		Bucket:    "journal",
		BatchSize: maxBatchSize + 1,
	})
	if err == nil {
		t.Fatal("Connect() error = nil, want error for oversized batch_size")
	}
}

func TestConnectRejectsOversizedFlushInterval(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://localhost:8086",
		Bucket:        "journal",
		FlushInterval: maxFlushIntervalSeconds + 1,
	})
	if err == nil {
		t.Fatal("Connect() error = nil, want error for oversized flush_interval")
	}
}

func TestRecorderNilClientIsNoop(t *testing.T) {
	r := NewRecorder(nil)

	// must not panic with a nil underlying client
	r.RecordStored(5)
	r.RecordCleanedUp(3)
	r.RecordLost(1)
	r.RecordReceived(10)
	r.RecordSkipped(2)
}

func TestRecorderSkipsZeroCounts(t *testing.T) {
	// A connected client with no write API panics if a point is
	// written, so this only passes if a zero count is skipped.
	r := NewRecorder(&Client{connected: true})
	r.RecordStored(0)
}
