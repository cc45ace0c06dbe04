package mqttlistener

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
)

// connectTimeout bounds the initial TCP/TLS handshake, independent of
// the higher-level subscribe wait loop in Connect.
const connectTimeout = 10 * time.Second

// buildClientOptions translates config.MQTTConfig into paho's
// ClientOptions, grounded on the teacher's buildClientOptions but
// generalized from a fixed internal broker to an arbitrary one, and
// with auto-reconnect disabled: a lost connection stays lost, and the
// listener reports it through EnsureConnection.
func buildClientOptions(cfg config.MQTTConfig) (*pahomqtt.ClientOptions, error) {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.IsTLS() {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.EffectivePort())
	opts.AddBroker(brokerURL)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "mqtt-pg-logger-" + uuid.NewString()
	}
	opts.SetClientID(clientID)

	if cfg.User != "" || cfg.Password != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}

	keepalive := cfg.Keepalive
	if keepalive <= 0 {
		keepalive = config.DefaultKeepalive
	}
	opts.SetKeepAlive(time.Duration(keepalive) * time.Second)

	opts.SetProtocolVersion(uint(cfg.Protocol))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(connectTimeout)

	if cfg.IsTLS() {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// buildTLSConfig assembles a tls.Config from the configured CA/cert/key
// material, mirroring the original's tls_set/tls_insecure_set calls.
func buildTLSConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.SSLInsecure,
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.SSLCACerts != "" {
		pem, err := os.ReadFile(cfg.SSLCACerts)
		if err != nil {
			return nil, fmt.Errorf("reading ssl_ca_certs %s: %w", cfg.SSLCACerts, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from ssl_ca_certs %s", cfg.SSLCACerts)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.SSLCertFile != "" && cfg.SSLKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.SSLCertFile, cfg.SSLKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading ssl_certfile/ssl_keyfile: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
