// Package journal defines the in-memory representation of an MQTT
// message destined for the database journal.
package journal

import "time"

// Record is the unit of the ingestion pipeline: a single MQTT message
// accepted by the listener and not yet (or already) persisted.
//
// A Record is immutable once created. It is created by the listener on
// the MQTT message callback, passed by value through the listener
// buffer and the writer queue, and discarded after a successful batch
// commit.
type Record struct {
	// MessageID is the broker-assigned MQTT packet id. 0 is reserved
	// as an invalid id per the MQTT v3 specification.
	MessageID int

	Topic  string
	Text   string
	QoS    byte
	Retain bool

	// Time is stamped by the listener at receipt, using the local zone.
	Time time.Time
}

// Build constructs a Record from raw MQTT callback data, decoding the
// payload as UTF-8 and stamping the receipt time.
func Build(messageID int, topic string, payload []byte, qos byte, retain bool, now time.Time) Record {
	return Record{
		MessageID: messageID,
		Topic:     topic,
		Text:      string(payload),
		QoS:       qos,
		Retain:    retain,
		Time:      now,
	}
}
