package mqtbridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

const (
	sensorQoS = 1
	// quiesce is how long Disconnect lets in-flight work finish, in milliseconds
	quiesce = 250
	// AutoClientID asks for a generated client id
	AutoClientID = "auto"
)

// SessionFactory builds the broker session from prepared client options
type SessionFactory func(opts *mqtt.ClientOptions) Session

func pahoSession(opts *mqtt.ClientOptions) Session {
	return mqtt.NewClient(opts)
}

// Bridge moves readings from the sensor topic into data_sensor. It owns the
// broker session and the writer, and closes both in Shutdown.
type Bridge struct {
	cfg       config.MQTTConfig
	schema    interfaces.SchemaBootstrapper
	writer    interfaces.SensorWriter
	announcer *Announcer
	state     *Machine
	metrics   *Metrics
	logger    *logger.Logger

	newSession SessionFactory

	mu      sync.Mutex
	session Session
}

func New(cfg config.MQTTConfig, schema interfaces.SchemaBootstrapper, writer interfaces.SensorWriter, metrics *Metrics, log *logger.Logger) *Bridge {
	b := &Bridge{
		cfg:        cfg,
		schema:     schema,
		writer:     writer,
		announcer:  NewAnnouncer(cfg.StatusTopic, cfg.PublishTimeout),
		state:      NewMachine(),
		metrics:    metrics,
		logger:     log.WithComponent("bridge"),
		newSession: pahoSession,
	}
	b.state.OnTransition(metrics.observeState)
	return b
}

// Start prepares the schema and connects to the broker. It returns once the
// first connection is up, or when ctx ends while paho is still retrying.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.schema.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("schema bootstrap failed: %w", err)
	}

	opts, err := b.clientOptions()
	if err != nil {
		return err
	}

	session := b.newSession(opts)
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()

	if err := b.transition(StateConnecting); err != nil {
		return err
	}

	b.logger.Logger.Info().Str("broker", b.cfg.GetBrokerURL()).Str("client_id", opts.ClientID).Msg("Connecting to MQTT broker")
	token := session.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", b.cfg.GetBrokerURL(), err)
	}
	return nil
}

// Shutdown announces OFFLINE, disconnects and closes the database. Only the
// first call does anything.
func (b *Bridge) Shutdown() error {
	if err := b.state.Transition(StateShuttingDown); err != nil {
		return nil
	}
	b.logger.Info("Bridge shutting down")

	session := b.currentSession()
	return Teardown(b.logger,
		Step{Name: "announce offline", Run: func() error {
			if session == nil || !session.IsConnected() {
				return nil
			}
			return b.announcer.AnnounceOffline(session)
		}},
		Step{Name: "disconnect", Run: func() error {
			if session != nil {
				session.Disconnect(quiesce)
			}
			return nil
		}},
		Step{Name: "close database", Run: b.writer.Close},
	)
}

// State returns the current connection state
func (b *Bridge) State() State {
	return b.state.Current()
}

func (b *Bridge) IsConnected() bool {
	s := b.currentSession()
	return s != nil && s.IsConnected()
}

func (b *Bridge) currentSession() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *Bridge) clientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.GetBrokerURL()).
		SetClientID(resolveClientID(b.cfg.ClientID)).
		SetOrderMatters(true).
		SetKeepAlive(b.cfg.KeepAlive).
		SetPingTimeout(b.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(b.cfg.ReconnectMin).
		SetMaxReconnectInterval(b.cfg.ReconnectMax).
		SetCleanSession(b.cfg.CleanSession)

	if b.cfg.BrokerUser != "" {
		opts.SetUsername(b.cfg.BrokerUser)
		opts.SetPassword(b.cfg.BrokerPass)
	}

	if b.cfg.UseTLS {
		tlsCfg, err := tlsConfig(b.cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	b.announcer.ArmWill(opts)

	opts.SetOnConnectHandler(func(c mqtt.Client) { b.handleConnect(c) })
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { b.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) { b.handleReconnecting() })
	return opts, nil
}

func resolveClientID(id string) string {
	if id == "" || id == AutoClientID {
		return "bridge-saver-" + uuid.NewString()[:8]
	}
	return id
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file %s", caFile)
	}
	cfg.RootCAs = cp
	return cfg, nil
}
