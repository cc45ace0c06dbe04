// Package runner wires the MQTT listener's received-message buffer to
// the store writer's queue.
package runner
