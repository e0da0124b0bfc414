package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 64

// ClientOptions configures a RealClient.
type ClientOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// Will, if set, is published by the broker when the connection drops.
	Will *Message

	// BufferSize caps the offline buffer; 0 means DefaultBufferSize.
	BufferSize int

	Log logr.Logger
}

// RealClient publishes to and subscribes on an actual MQTT broker.
// Publishing never waits for the network: while disconnected messages go to
// a ring buffer that is replayed, oldest first, on reconnect.
type RealClient struct {
	client paho.Client
	log    logr.Logger

	mu   sync.Mutex
	buf  *ringBuffer
	subs map[string]Handler
}

// NewRealClient creates a client and starts connecting to the broker.
// If the broker is unreachable the client keeps retrying in the background
// and buffers publications meanwhile.
func NewRealClient(o ClientOptions) (*RealClient, error) {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	c := &RealClient{
		log:  o.Log,
		buf:  newRingBuffer(size),
		subs: make(map[string]Handler),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Error(err, "mqtt connection lost")
		})
	if o.Will != nil {
		opts.SetWill(o.Will.Topic, string(o.Will.Payload), o.Will.QoS, o.Will.Retained)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		c.log.Info("mqtt broker not reachable yet, retrying in background", "broker", o.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

// onConnect restores subscriptions and flushes the offline buffer. It runs
// on a paho goroutine after every (re)connect.
func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))
	for f, h := range c.subs {
		subs[f] = h
	}
	pending := c.buf.drainAll()
	c.mu.Unlock()

	c.log.Info("mqtt connected", "subscriptions", len(subs), "replay", len(pending))

	for filter, h := range subs {
		client.Subscribe(filter, 1, wrap(h))
	}
	for _, msg := range pending {
		c.send(msg)
	}
}

// Publish sends msg, or buffers it while the connection is down.
func (c *RealClient) Publish(msg Message) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		dropped := c.buf.push(msg)
		c.mu.Unlock()
		if dropped {
			c.log.Info("mqtt offline buffer full, dropping oldest", "capacity", c.buf.capacity)
		}
		return nil
	}
	c.send(msg)
	return nil
}

func (c *RealClient) send(msg Message) {
	token := c.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			c.log.Error(err, "mqtt publish", "topic", msg.Topic)
		}
	}()
}

// Subscribe registers handler for filter and subscribes now if connected.
func (c *RealClient) Subscribe(filter string, handler Handler) error {
	c.mu.Lock()
	c.subs[filter] = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	token := c.client.Subscribe(filter, 1, wrap(handler))
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

// IsConnected reports whether the connection to the broker is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a reconnect.
func (c *RealClient) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}
