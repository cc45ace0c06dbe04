// Package mqttlistener subscribes to configured MQTT topics and buffers
// accepted messages for the runner to drain into the journal writer.
//
// The listener is a small explicit state machine
// (disconnected -> connecting -> connected -> subscribed) rather than
// paho's built-in auto-reconnect, so Connect can report a clear
// subscribe-timeout error and EnsureConnection can distinguish "never
// connected" from "lost connection" the way the tool this was ported
// from does.
package mqttlistener

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/journal"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/lifecycle"
)

// subscribeQoS is used for every subscription. Not semantically
// meaningful to the journal (messages are stored with their own QoS),
// but required by the subscribe call.
const subscribeQoS = 1

// maxSubscribeWait bounds how long Connect waits for the on-connect
// callback to fire and the subscribe to be acknowledged before giving
// up and returning ErrSubscribeTimeout.
const maxSubscribeWait = 15 * time.Second

const subscribeWaitStep = 50 * time.Millisecond

// statusLogInterval matches the original's 300-second throttle on the
// periodic received/skipped summary log line.
const statusLogInterval = 300 * time.Second

// Logger is the minimal logging surface the listener needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder receives per-message ingestion counters. A nil
// recorder is valid: every call site checks before recording.
type MetricsRecorder interface {
	RecordReceived(n int)
	RecordSkipped(n int)
}

// Listener subscribes to MQTT topics and buffers accepted journal
// records for the runner to collect.
type Listener struct {
	mu sync.Mutex

	client pahomqtt.Client
	logger Logger
	ctrl   *lifecycle.Controller
	metric MetricsRecorder

	subscriptions    []string
	skipRegexes      []*regexp.Regexp
	filterMessageID0 bool

	connected  bool
	subscribed bool
	lastErr    error

	messages []journal.Record

	statusReceived int
	statusSkipped  int
	statusLastLog  time.Time
}

// New builds a Listener from config and the shared shutdown
// controller, but does not connect yet. metric may be nil, in which
// case per-message ingestion counters are simply not recorded.
func New(cfg config.MQTTConfig, ctrl *lifecycle.Controller, logger Logger, metric MetricsRecorder) (*Listener, error) {
	l := &Listener{
		logger:           logger,
		ctrl:             ctrl,
		metric:           metric,
		subscriptions:    append([]string(nil), cfg.Subscriptions...),
		filterMessageID0: cfg.FilterMessageID0,
		statusLastLog:    time.Now(),
	}

	for _, pattern := range cfg.SkipSubscriptionRegexes {
		if pattern == "" {
			continue
		}
		// Anchored at the start to match the original's use of
		// Python's re.match, which anchors there implicitly.
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("compiling skip_subscription_regexes %q: %w", pattern, err)
		}
		l.skipRegexes = append(l.skipRegexes, re)
	}

	if len(l.subscriptions) == 0 {
		// No topics configured at all means there is nothing to wait
		// for: treat as already subscribed, same as the original.
		l.subscribed = true
	}

	opts, err := buildClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(l.onConnectionLost)

	l.client = pahomqtt.NewClient(opts)

	return l, nil
}

// IsConnected reports whether the client is connected and subscribed.
func (l *Listener) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && l.subscribed
}

// Connect dials the broker and blocks (polling via the shared
// Controller's Sleep) until the subscription is acknowledged. It
// returns ErrSubscribeFailed if the subscribe call fails, or
// ErrSubscribeTimeout after maxSubscribeWait.
func (l *Listener) Connect() error {
	token := l.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	var waited time.Duration
	for l.ctrl.ShouldProceed() {
		subscribed, err := l.trySubscribe()
		if err != nil {
			return err
		}
		if subscribed {
			return nil
		}
		waited += l.ctrl.Sleep(subscribeWaitStep)
		if waited > maxSubscribeWait {
			return ErrSubscribeTimeout
		}
	}

	return nil
}

// trySubscribe issues the subscribe call once the connect callback has
// marked the client connected, returning true once subscribed, or an
// error wrapping ErrSubscribeFailed if the subscribe call fails.
func (l *Listener) trySubscribe() (bool, error) {
	l.mu.Lock()
	alreadySubscribed := l.subscribed
	connected := l.connected
	topics := append([]string(nil), l.subscriptions...)
	l.mu.Unlock()

	if alreadySubscribed || !connected {
		return alreadySubscribed, nil
	}

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = subscribeQoS
	}

	token := l.client.SubscribeMultiple(filters, l.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		l.logger.Error("mqtt subscribe failed", "error", err, "topics", topics)
		return false, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	l.mu.Lock()
	l.subscribed = true
	l.mu.Unlock()

	l.ctrl.Notify(lifecycle.EventMQTTListenerSubscribed)
	l.logger.Info("subscribed to MQTT topics", "topics", topics)
	return true, nil
}

// EnsureConnection reports ErrConnectionLost if the client observed an
// unexpected disconnect, or ErrNotConnected if it was never connected.
// Mirrors the original's fail-fast health check that lets systemd
// restart the process rather than attempt in-process recovery.
func (l *Listener) EnsureConnection() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastErr != nil {
		return l.lastErr
	}
	if !l.connected {
		return ErrNotConnected
	}
	return nil
}

// GetMessages atomically swaps out and returns the buffered records
// accepted since the last call.
func (l *Listener) GetMessages() []journal.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) == 0 {
		return nil
	}
	messages := l.messages
	l.messages = nil
	return messages
}

// Close disconnects the client. Safe to call even if Connect never
// succeeded.
func (l *Listener) Close() {
	l.client.Disconnect(250)
}

func (l *Listener) onConnect(pahomqtt.Client) {
	l.mu.Lock()
	l.connected = true
	l.lastErr = nil
	l.mu.Unlock()

	l.ctrl.Notify(lifecycle.EventMQTTListenerConnected)
	l.logger.Debug("mqtt connected")
}

func (l *Listener) onConnectionLost(_ pahomqtt.Client, err error) {
	l.mu.Lock()
	l.connected = false
	l.subscribed = len(l.subscriptions) == 0
	if l.lastErr == nil {
		l.lastErr = fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	l.mu.Unlock()

	l.logger.Error("mqtt connection lost unexpectedly", "error", err)
}

// onMessage is the paho callback invoked on the client's network
// goroutine for every received message. Any panic here is recovered
// so a single malformed message can never take down the listener.
func (l *Listener) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic handling mqtt message", "recovered", r)
		}
	}()

	now := time.Now()
	record := journal.Build(int(msg.MessageID()), msg.Topic(), msg.Payload(), msg.Qos(), msg.Retained(), now)

	l.logger.Debug("message received", "topic", record.Topic, "message_id", record.MessageID)

	accept := l.acceptTopic(record.Topic)

	l.mu.Lock()
	if accept && record.MessageID <= 0 && l.filterMessageID0 {
		accept = false
	}
	if accept {
		l.messages = append(l.messages, record)
	}
	l.statusReceived++
	if !accept {
		l.statusSkipped++
	}
	lastLog := l.statusLastLog
	l.mu.Unlock()

	if l.metric != nil {
		l.metric.RecordReceived(1)
		if !accept {
			l.metric.RecordSkipped(1)
		}
	}

	if time.Since(lastLog) > statusLogInterval {
		l.mu.Lock()
		received := l.statusReceived
		skipped := l.statusSkipped
		l.statusLastLog = now
		l.mu.Unlock()

		if skipped > 0 {
			l.logger.Info("overall messages", "received", received, "skipped", skipped)
		} else {
			l.logger.Info("overall messages", "received", received)
		}
	}
}

// acceptTopic reports whether topic matches none of the configured
// skip-subscription regexes. Reads l.skipRegexes without locking: the
// slice is built once in New and never mutated afterward.
func (l *Listener) acceptTopic(topic string) bool {
	for _, re := range l.skipRegexes {
		if re.MatchString(topic) {
			return false
		}
	}
	return true
}
