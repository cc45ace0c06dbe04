package metrics

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurement is the single InfluxDB measurement ingestion counters
// are written to, distinguished by the "counter" tag.
const measurement = "mqtt_pg_logger"

// WritePoint writes a custom point with full control over tags and
// fields, kept generic (unlike the teacher's per-domain helpers) since
// the journal's metrics surface is a handful of simple counters.
func (c *Client) WritePoint(tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// Recorder adapts a Client to store.MetricsRecorder and
// mqttlistener's status-counter surface, recording each ingestion
// event as a single-field point tagged by counter name.
type Recorder struct {
	client *Client
}

// NewRecorder wraps client for use as the writer/listener's metrics
// sink. A nil client is valid and makes every method a no-op, so
// callers can construct a Recorder unconditionally even when metrics
// are disabled.
func NewRecorder(client *Client) *Recorder {
	return &Recorder{client: client}
}

// RecordStored records the number of rows committed in one batch.
func (r *Recorder) RecordStored(n int) {
	r.record("stored", n)
}

// RecordCleanedUp records the number of rows deleted in one clean-up pass.
func (r *Recorder) RecordCleanedUp(n int64) {
	r.record("cleaned_up", int(n))
}

// RecordLost records the number of messages dropped due to a full queue.
func (r *Recorder) RecordLost(n int) {
	r.record("lost", n)
}

// RecordReceived records the number of messages the listener accepted.
func (r *Recorder) RecordReceived(n int) {
	r.record("received", n)
}

// RecordSkipped records the number of messages the listener filtered out.
func (r *Recorder) RecordSkipped(n int) {
	r.record("skipped", n)
}

func (r *Recorder) record(counter string, n int) {
	if r.client == nil || n == 0 {
		return
	}
	r.client.WritePoint(
		map[string]string{"counter": counter},
		map[string]interface{}{"count": n},
	)
}
