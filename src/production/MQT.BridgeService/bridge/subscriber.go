package mqtbridge

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	mqtmodels "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Models"
)

// handleConnect runs on every successful (re)connect: subscribe, then
// refresh the retained ONLINE marker. Only shutdown suppresses it.
func (b *Bridge) handleConnect(s Session) {
	if err := b.transition(StateConnected); err != nil && b.state.Current() == StateShuttingDown {
		return
	}

	topic := b.cfg.Topic
	b.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
	if err := b.subscribe(s, topic); err != nil {
		b.logger.Logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
	} else {
		_ = b.transition(StateSubscribed)
	}

	if err := b.announcer.AnnounceOnline(s); err != nil {
		b.logger.Logger.Warn().Err(err).Str("topic", b.cfg.StatusTopic).Msg("Failed to announce ONLINE")
	}
}

func (b *Bridge) subscribe(s Session, topic string) error {
	token := s.Subscribe(topic, sensorQoS, b.onMessage)
	if !token.WaitTimeout(b.announcer.timeout) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	return token.Error()
}

func (b *Bridge) handleConnectionLost(err error) {
	b.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	_ = b.transition(StateDisconnected)
}

func (b *Bridge) handleReconnecting() {
	b.logger.Logger.Info().Str("broker", b.cfg.GetBrokerURL()).Msg("Reconnecting to MQTT broker")
	_ = b.transition(StateConnecting)
}

func (b *Bridge) onMessage(_ mqtt.Client, m mqtt.Message) {
	b.handleMessage(context.Background(), m.Topic(), m.Payload())
}

// handleMessage decodes and stores one reading. paho delivers in order and
// waits for the handler, so inserts happen one at a time.
func (b *Bridge) handleMessage(ctx context.Context, topic string, payload []byte) {
	log := b.logger.WithMessageID(uuid.NewString())
	b.metrics.Received.Inc()
	log.Logger.Debug().Str("topic", topic).Str("payload", string(payload)).Msg("Received MQTT message")

	reading, err := mqtmodels.ParseReading(payload)
	if err != nil {
		b.metrics.Dropped.WithLabelValues(DropDecode).Inc()
		log.Logger.Warn().Err(err).Str("topic", topic).Int("bytes", len(payload)).Msg("Dropping undecodable payload")
		return
	}

	suhu, humidity, lux := reading.Values()
	log = log.WithFields(map[string]interface{}{"suhu": suhu, "humidity": humidity, "lux": lux})
	start := time.Now()
	err = b.writer.Save(ctx, suhu, humidity, lux)
	b.metrics.SaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		b.metrics.PersistFailures.Inc()
		log.ErrorWithError(err, "Failed to save reading")
		return
	}

	b.metrics.Saved.Inc()
	log.Info("Reading saved")
}

func (b *Bridge) transition(to State) error {
	from := b.state.Current()
	if err := b.state.Transition(to); err != nil {
		if from == StateShuttingDown {
			b.logger.WithField("to", to.String()).Debug("Ignoring connection event during shutdown")
		} else {
			b.logger.WarnWithError(err, "Rejected connection state change")
		}
		return err
	}
	b.logger.Logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Connection state changed")
	return nil
}
