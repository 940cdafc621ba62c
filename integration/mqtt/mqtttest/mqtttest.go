// Package mqtttest provides an in-memory paho client for tests.
package mqtttest

import (
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type Message struct {
	topic    string
	payload  []byte
	retained bool
}

// paho.Message
var _ paho.Message = (*Message)(nil)

func NewMessage(topic string, payload []byte) *Message {
	return &Message{topic: topic, payload: payload}
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return 1 }
func (m *Message) Retained() bool    { return m.retained }
func (m *Message) Topic() string     { return m.topic }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.payload }
func (m *Message) Ack()              {}

type token struct{}

// paho.Token
var _ paho.Token = token{}

func (token) Wait() bool                     { return true }
func (token) WaitTimeout(time.Duration) bool { return true }
func (token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (token) Error() error { return nil }

// Client records publications and routes Deliver calls to subscribers.
// Methods other than Publish, Subscribe and Unsubscribe panic.
type Client struct {
	paho.Client

	mu        sync.Mutex
	published []*Message
	handlers  map[string]paho.MessageHandler
}

func New() *Client {
	return &Client{handlers: make(map[string]paho.MessageHandler)}
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var b []byte
	switch p := payload.(type) {
	case string:
		b = []byte(p)
	case []byte:
		b = p
	}

	c.mu.Lock()
	c.published = append(c.published, &Message{topic: topic, payload: b, retained: retained})
	c.mu.Unlock()

	return token{}
}

func (c *Client) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[topic] = callback
	return token{}
}

func (c *Client) Unsubscribe(topics ...string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	return token{}
}

func (c *Client) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.handlers[topic]
	return ok
}

// Published returns everything published on topic, oldest first.
func (c *Client) Published(topic string) []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Message
	for _, m := range c.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}

	return out
}

// Deliver hands a message to every subscription matching topic.
func (c *Client) Deliver(topic string, payload []byte) {
	c.mu.Lock()
	var handlers []paho.MessageHandler
	for filter, h := range c.handlers {
		if Match(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(c, NewMessage(topic, payload))
	}
}

func Match(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")

	for i, part := range f {
		if part == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if part != "+" && part != t[i] {
			return false
		}
	}

	return len(f) == len(t)
}
