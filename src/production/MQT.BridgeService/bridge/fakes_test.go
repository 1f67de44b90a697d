package mqtbridge

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return sensorQoS }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type publication struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeSession records what the bridge asks of the broker
type fakeSession struct {
	mu sync.Mutex

	opts         *mqtt.ClientOptions
	connected    bool
	connectToken mqtt.Token
	subscribeErr error
	publishErr   error

	events        []string
	publications  []publication
	subscriptions map[string]byte
	handler       mqtt.MessageHandler
}

func newFakeSession() *fakeSession {
	return &fakeSession{subscriptions: make(map[string]byte)}
}

func (s *fakeSession) factory(opts *mqtt.ClientOptions) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	return s
}

func (s *fakeSession) Connect() mqtt.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "connect")
	if s.connectToken != nil {
		return s.connectToken
	}
	s.connected = true
	return completedToken(nil)
}

func (s *fakeSession) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "subscribe:"+topic)
	if s.subscribeErr != nil {
		return completedToken(s.subscribeErr)
	}
	s.subscriptions[topic] = qos
	s.handler = callback
	return completedToken(nil)
}

func (s *fakeSession) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	default:
		body = fmt.Sprint(p)
	}
	s.events = append(s.events, "publish:"+topic+":"+body)
	s.publications = append(s.publications, publication{topic: topic, qos: qos, retained: retained, payload: body})
	return completedToken(s.publishErr)
}

func (s *fakeSession) Disconnect(quiesce uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fmt.Sprintf("disconnect:%d", quiesce))
	s.connected = false
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) deliver(topic, payload string) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(nil, &fakeMessage{topic: topic, payload: []byte(payload)})
}

func (s *fakeSession) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}
