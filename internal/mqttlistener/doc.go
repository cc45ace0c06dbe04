// Package mqttlistener implements the broker-facing half of the
// pipeline: connect, subscribe, and buffer accepted messages as
// journal.Record values for the runner to drain.
package mqttlistener
