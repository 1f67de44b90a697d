package mqtbridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Session is the part of mqtt.Client the bridge drives
type Session interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

var _ Session = (mqtt.Client)(nil)
