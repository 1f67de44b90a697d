package mqtbridge

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	mqtmodels "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Models"
)

const presenceQoS = 1

// Announcer keeps the retained presence marker on the status topic current
type Announcer struct {
	topic   string
	timeout time.Duration
}

func NewAnnouncer(topic string, timeout time.Duration) *Announcer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Announcer{topic: topic, timeout: timeout}
}

// ArmWill makes the broker publish OFFLINE if the bridge drops without saying goodbye
func (a *Announcer) ArmWill(opts *mqtt.ClientOptions) {
	opts.SetWill(a.topic, mqtmodels.PresenceOffline.String(), presenceQoS, true)
}

func (a *Announcer) AnnounceOnline(s Session) error {
	return a.publish(s, mqtmodels.PresenceOnline)
}

func (a *Announcer) AnnounceOffline(s Session) error {
	return a.publish(s, mqtmodels.PresenceOffline)
}

func (a *Announcer) publish(s Session, marker mqtmodels.PresenceMarker) error {
	token := s.Publish(a.topic, presenceQoS, true, marker.String())
	if !token.WaitTimeout(a.timeout) {
		return fmt.Errorf("publish %s to %s: timed out after %s", marker, a.topic, a.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", marker, a.topic, err)
	}
	return nil
}
